package fmc

import (
	"context"
	"fmt"
	"net/http"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// StaticRoute describes an IPv4 static route by object names.
type StaticRoute struct {
	Device    string
	Interface string
	Networks  []string
	Gateway   string
	Metric    int
	Tunneled  bool
}

type routeGateway struct {
	Object Ref `json:"object"`
}

type staticRouteBody struct {
	InterfaceName    string       `json:"interfaceName"`
	SelectedNetworks []Ref        `json:"selectedNetworks"`
	Gateway          routeGateway `json:"gateway"`
	MetricValue      int          `json:"metricValue"`
	Type             string       `json:"type"`
	IsTunneled       bool         `json:"isTunneled"`
}

func newStaticRouteBody(iface string, networks []Ref, gateway Ref, metric int, tunneled bool) staticRouteBody {
	if metric <= 0 {
		metric = 1
	}
	return staticRouteBody{
		InterfaceName:    iface,
		SelectedNetworks: networks,
		Gateway:          routeGateway{Object: gateway},
		MetricValue:      metric,
		Type:             "IPv4StaticRoute",
		IsTunneled:       tunneled,
	}
}

// AddStaticRoute resolves the names of r and posts the route to the device.
func (c *Client) AddStaticRoute(ctx context.Context, r StaticRoute) (JSON, error) {
	if len(r.Networks) == 0 {
		return JSON{}, errors.New("static route needs at least one network")
	}
	device, err := c.FindByName(ctx, ResourceDeviceRecords, r.Device)
	if err != nil {
		return JSON{}, err
	}
	networks, err := c.Catalog(ctx, ResourceNetworks)
	if err != nil {
		return JSON{}, err
	}
	selected, err := lookupAll(networks, r.Networks)
	if err != nil {
		return JSON{}, err
	}
	gateway, err := c.FindByName(ctx, ResourceHosts, r.Gateway)
	if err != nil {
		return JSON{}, err
	}

	path := c.ConfigPath(ResourceDeviceRecords, device.ID, "routing", "ipv4staticroutes")
	code, resp, err := c.Post(ctx, path, newStaticRouteBody(r.Interface, selected, gateway, r.Metric, r.Tunneled))
	if err != nil {
		return JSON{}, errors.Wrap(err, "failed to post static route")
	}
	if code != http.StatusCreated && code != http.StatusAccepted {
		return resp, fmt.Errorf("unexpected status %d posting static route", code)
	}
	log.Infof("Static route via %s on %s/%s created", r.Gateway, r.Device, r.Interface)
	return resp, nil
}
