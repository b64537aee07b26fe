// Package fmc is a small REST client for the Firepower Management Center
// and the policy operations built on top of it.
package fmc

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"FirepowerKit/internal/config"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

// DefaultDomain is the global domain present on every FMC.
const DefaultDomain = "e276abec-e0f2-11e3-8169-6d9ed49b625f"

const (
	authPath = "/api/fmc_platform/v1/auth/generatetoken"

	headerAccessToken  = "X-auth-access-token"
	headerRefreshToken = "X-auth-refresh-token"
	headerDomain       = "DOMAIN_UUID"

	defaultPageLimit = 200
)

type JSON = gjson.Result

// StatusError is returned for every non-2xx response.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Status string
	Body   string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if msg := gjson.Get(body, "error.messages.0.description").Str; msg != "" {
		body = msg
	}
	return fmt.Sprintf("%s %s: HTTP response %s: %s", e.Method, e.Path, e.Status, body)
}

// StatusCode extracts the HTTP status of err, or 0 when err is not a StatusError.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}

// Client talks to one FMC. It is not safe for concurrent authentication.
type Client struct {
	server    string
	username  string
	password  string
	domain    string
	pageLimit int
	http      *http.Client

	accessToken  string
	refreshToken string
}

// NewClient builds a client from the fmc config section.
func NewClient(cfg config.FMCConfig) *Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: cfg.InsecureSkipVerify}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	pageLimit := cfg.PageLimit
	if pageLimit <= 0 {
		pageLimit = defaultPageLimit
	}
	return &Client{
		server:    strings.TrimRight(cfg.Server, "/"),
		username:  cfg.Username,
		password:  cfg.Password,
		domain:    cfg.Domain,
		pageLimit: pageLimit,
		http:      &http.Client{Timeout: timeout, Transport: transport},
	}
}

// Domain returns the domain UUID used in config paths.
func (c *Client) Domain() string {
	if c.domain == "" {
		return DefaultDomain
	}
	return c.domain
}

// Authenticate requests an access token with basic auth. The domain from
// the response is used when none was configured.
func (c *Client) Authenticate(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.server+authPath, nil)
	if err != nil {
		return errors.Wrap(err, "failed to build auth request")
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to generate auth token")
	}
	defer res.Body.Close()
	if res.StatusCode/100 != 2 {
		body, err := io.ReadAll(res.Body)
		if err != nil {
			return errors.Wrapf(err, "failed to read auth response (%s)", res.Status)
		}
		return &StatusError{Method: http.MethodPost, Path: authPath, Code: res.StatusCode, Status: res.Status, Body: string(body)}
	}

	c.accessToken = res.Header.Get(headerAccessToken)
	if c.accessToken == "" {
		return errors.New("auth token not found in response")
	}
	c.refreshToken = res.Header.Get(headerRefreshToken)
	if c.domain == "" {
		c.domain = res.Header.Get(headerDomain)
	}
	log.Infof("Authenticated to %s (domain %s)", c.server, c.Domain())
	return nil
}

// ConfigPath builds a path under the fmc_config API of the current domain.
func (c *Client) ConfigPath(resource string, elems ...string) string {
	p := "/api/fmc_config/v1/domain/" + c.Domain() + "/" + strings.Trim(resource, "/")
	for _, e := range elems {
		p += "/" + url.PathEscape(e)
	}
	return p
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload interface{}) (int, []byte, error) {
	if c.accessToken == "" {
		return 0, nil, errors.New("client is not authenticated")
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, errors.Wrapf(err, "failed to encode %s body", path)
		}
		body = bytes.NewReader(data)
	}

	target := c.server + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return 0, nil, errors.Wrapf(err, "failed to build %s request", method)
	}
	req.Header.Set(headerAccessToken, c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	log.Debugf("%s request to %s", method, path)
	res, err := c.http.Do(req)
	if err != nil {
		return 0, nil, errors.Wrapf(err, "%s %s failed", method, path)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return res.StatusCode, nil, errors.Wrapf(err, "failed to read %s response", path)
	}
	if res.StatusCode/100 != 2 {
		return res.StatusCode, data, &StatusError{Method: method, Path: path, Code: res.StatusCode, Status: res.Status, Body: string(data)}
	}
	return res.StatusCode, data, nil
}

// Get fetches one resource.
func (c *Client) Get(ctx context.Context, path string) (JSON, error) {
	_, data, err := c.do(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return JSON{}, err
	}
	return gjson.ParseBytes(data), nil
}

// Post creates a resource and returns the HTTP status with the response.
func (c *Client) Post(ctx context.Context, path string, payload interface{}) (int, JSON, error) {
	code, data, err := c.do(ctx, http.MethodPost, path, nil, payload)
	return code, gjson.ParseBytes(data), err
}

// Put replaces a resource.
func (c *Client) Put(ctx context.Context, path string, payload interface{}) (JSON, error) {
	_, data, err := c.do(ctx, http.MethodPut, path, nil, payload)
	if err != nil {
		return JSON{}, err
	}
	return gjson.ParseBytes(data), nil
}

// List pages through a collection and returns every item.
func (c *Client) List(ctx context.Context, path string) ([]JSON, error) {
	var items []JSON
	offset := 0
	for {
		query := url.Values{}
		query.Set("limit", strconv.Itoa(c.pageLimit))
		query.Set("offset", strconv.Itoa(offset))

		_, data, err := c.do(ctx, http.MethodGet, path, query, nil)
		if err != nil {
			return nil, err
		}
		page := gjson.ParseBytes(data)
		batch := page.Get("items").Array()
		items = append(items, batch...)

		total := int(page.Get("paging.count").Int())
		offset += len(batch)
		if len(batch) == 0 || offset >= total {
			return items, nil
		}
	}
}
