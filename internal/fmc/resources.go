package fmc

import (
	"context"
	"fmt"
	"strings"
)

const (
	ResourceAccessPolicies    = "policy/accesspolicies"
	ResourceIntrusionPolicies = "policy/intrusionpolicies"
	ResourceSecurityZones     = "object/securityzones"
	ResourceVariableSets      = "object/variablesets"
	ResourceNetworkGroups     = "object/networkgroups"
	ResourcePortObjectGroups  = "object/portobjectgroups"
	ResourceNetworks          = "object/networks"
	ResourceHosts             = "object/hosts"
	ResourceDeviceRecords     = "devices/devicerecords"
)

// Ref is the id/name/type triple FMC uses to reference objects.
type Ref struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// RefFrom reads a reference out of a resource.
func RefFrom(j JSON) Ref {
	return Ref{ID: j.Get("id").Str, Name: j.Get("name").Str, Type: j.Get("type").Str}
}

// NotFoundError reports a name that does not exist in a collection.
type NotFoundError struct {
	Resource string
	Name     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("unable to find %s with name %q", e.Resource, e.Name)
}

// Catalog maps names to references for one collection.
type Catalog struct {
	Resource string
	byName   map[string]Ref
}

// NewCatalog indexes refs by name.
func NewCatalog(resource string, refs []Ref) *Catalog {
	c := &Catalog{Resource: resource, byName: make(map[string]Ref, len(refs))}
	for _, r := range refs {
		c.byName[r.Name] = r
	}
	return c
}

// Lookup resolves one name.
func (c *Catalog) Lookup(name string) (Ref, error) {
	r, ok := c.byName[strings.TrimSpace(name)]
	if !ok {
		return Ref{}, &NotFoundError{Resource: c.Resource, Name: strings.TrimSpace(name)}
	}
	return r, nil
}

// Len returns the number of indexed names.
func (c *Catalog) Len() int { return len(c.byName) }

// Catalog lists a collection of the current domain.
func (c *Client) Catalog(ctx context.Context, resource string) (*Catalog, error) {
	items, err := c.List(ctx, c.ConfigPath(resource))
	if err != nil {
		return nil, err
	}
	refs := make([]Ref, 0, len(items))
	for _, it := range items {
		refs = append(refs, RefFrom(it))
	}
	return NewCatalog(resource, refs), nil
}

// FindByName resolves a single name in a collection.
func (c *Client) FindByName(ctx context.Context, resource, name string) (Ref, error) {
	cat, err := c.Catalog(ctx, resource)
	if err != nil {
		return Ref{}, err
	}
	return cat.Lookup(name)
}
