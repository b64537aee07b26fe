package fmc

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"
)

// ObjectKind selects the collection objects are imported into.
type ObjectKind string

const (
	KindNetwork ObjectKind = "network"
	KindHost    ObjectKind = "host"
)

// ParseObjectKind validates a kind name.
func ParseObjectKind(s string) (ObjectKind, error) {
	switch k := ObjectKind(strings.ToLower(s)); k {
	case KindNetwork, KindHost:
		return k, nil
	}
	return "", fmt.Errorf("unknown object type %q (network, host)", s)
}

func (k ObjectKind) resource() (string, string) {
	if k == KindHost {
		return ResourceHosts, "Host"
	}
	return ResourceNetworks, "Network"
}

// ObjectRow is one line of an import file.
type ObjectRow struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Value       string `json:"value"`
	Description string `json:"description,omitempty"`
}

// ReadObjectsCSV reads name,value,description rows. A first row whose
// first cell is "name" is treated as a header.
func ReadObjectsCSV(r io.Reader) ([]ObjectRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var rows []ObjectRow
	line := 0
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read objects file: %w", err)
		}
		line++
		if line == 1 && strings.EqualFold(strings.TrimSpace(rec[0]), "name") {
			continue
		}
		if len(rec) < 2 || strings.TrimSpace(rec[0]) == "" {
			return nil, fmt.Errorf("line %d: expected name,value[,description]", line)
		}
		row := ObjectRow{Name: strings.TrimSpace(rec[0]), Value: strings.TrimSpace(rec[1])}
		if len(rec) > 2 {
			row.Description = strings.TrimSpace(rec[2])
		}
		rows = append(rows, row)
	}
}

// ImportSummary counts the outcome of an import.
type ImportSummary struct {
	Added   int
	Skipped int
	Failed  int
}

func (s ImportSummary) String() string {
	return fmt.Sprintf("%d added, %d already present, %d failed", s.Added, s.Skipped, s.Failed)
}

// ImportObjects posts every row. 400 means the object exists and the row
// is skipped; any other error is counted and the import continues.
func (c *Client) ImportObjects(ctx context.Context, rows []ObjectRow, kind ObjectKind) (ImportSummary, error) {
	resource, objType := kind.resource()
	path := c.ConfigPath(resource)

	var sum ImportSummary
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		row.Type = objType
		code, _, err := c.Post(ctx, path, row)
		switch {
		case err == nil && code == http.StatusCreated:
			log.Infof("%s %s with value %s successfully added", objType, row.Name, row.Value)
			sum.Added++
		case StatusCode(err) == http.StatusBadRequest:
			log.Infof("%s %s seems to exist already, skipping", objType, row.Name)
			sum.Skipped++
		case err != nil:
			log.Errorf("Failed to add %s %s: %v", objType, row.Name, err)
			sum.Failed++
		default:
			log.Warnf("Unexpected status %d adding %s %s", code, objType, row.Name)
			sum.Failed++
		}
	}
	return sum, nil
}
