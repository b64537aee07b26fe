package fmc

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// ComplexityHeader names the columns of RuleComplexity.Row.
const ComplexityHeader = "Policy Name\tRule Name\tRule ID\tSourceZoneCount\tDestinationZoneCount\tSourceNetworkCount\tDestinationNetworkCount\tDestinationPortCount\tTotal Complexity"

// RuleComplexity is the expansion size of one access rule.
type RuleComplexity struct {
	Policy      string
	Rule        string
	ID          string
	SrcZones    int
	DstZones    int
	SrcNetworks int
	DstNetworks int
	DstPorts    int
}

// Total is the product of the five factors.
func (r RuleComplexity) Total() int {
	return r.SrcZones * r.DstZones * r.SrcNetworks * r.DstNetworks * r.DstPorts
}

// Row formats r as a tab separated line.
func (r RuleComplexity) Row() string {
	return fmt.Sprintf("%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\t%d",
		r.Policy, r.Rule, r.ID, r.SrcZones, r.DstZones, r.SrcNetworks, r.DstNetworks, r.DstPorts, r.Total())
}

type groupKind struct {
	resource  string
	groupType string
}

var (
	networkGroups = groupKind{ResourceNetworkGroups, "NetworkGroup"}
	portGroups    = groupKind{ResourcePortObjectGroups, "PortObjectGroup"}
)

// Crawler computes rule complexity for one access policy.
type Crawler struct {
	client   *Client
	policyID string
	delay    time.Duration

	cache map[string]int
}

// NewCrawler waits delay between rules when crawling more than one.
func NewCrawler(c *Client, policyID string, delay time.Duration) *Crawler {
	return &Crawler{client: c, policyID: policyID, delay: delay, cache: map[string]int{}}
}

// Rule computes the complexity of a single rule.
func (cr *Crawler) Rule(ctx context.Context, ruleID string) (RuleComplexity, error) {
	path := cr.client.ConfigPath(ResourceAccessPolicies, cr.policyID, "accessrules", ruleID)
	rule, err := cr.client.Get(ctx, path)
	if err != nil {
		return RuleComplexity{}, errors.Wrapf(err, "failed to fetch rule %s", ruleID)
	}

	rc := RuleComplexity{
		Policy:   rule.Get("metadata.accessPolicy.name").Str,
		Rule:     rule.Get("name").Str,
		ID:       rule.Get("id").Str,
		SrcZones: zoneCount(rule, "sourceZones"),
		DstZones: zoneCount(rule, "destinationZones"),
	}
	if rc.SrcNetworks, err = cr.fieldCount(ctx, rule, "sourceNetworks", networkGroups); err != nil {
		return rc, err
	}
	if rc.DstNetworks, err = cr.fieldCount(ctx, rule, "destinationNetworks", networkGroups); err != nil {
		return rc, err
	}
	if rc.DstPorts, err = cr.fieldCount(ctx, rule, "destinationPorts", portGroups); err != nil {
		return rc, err
	}
	return rc, nil
}

func zoneCount(rule JSON, field string) int {
	f := rule.Get(field)
	if !f.Exists() {
		return 1
	}
	return atLeastOne(len(f.Get("objects").Array()))
}

func atLeastOne(n int) int {
	if n == 0 {
		return 1
	}
	return n
}

func (cr *Crawler) fieldCount(ctx context.Context, rule JSON, field string, kind groupKind) (int, error) {
	f := rule.Get(field)
	if !f.Exists() {
		return 1, nil
	}
	n, _, err := cr.countMembers(ctx, f.Get("objects").Array(), kind, map[string]bool{})
	if err != nil {
		return 0, err
	}
	n += len(f.Get("literals").Array())
	return atLeastOne(n), nil
}

// countMembers reports whether a reference cycle was cut anywhere below members.
func (cr *Crawler) countMembers(ctx context.Context, members []JSON, kind groupKind, visiting map[string]bool) (int, bool, error) {
	n, cut := 0, false
	for _, m := range members {
		if m.Get("type").Str != kind.groupType {
			n++
			continue
		}
		sub, subCut, err := cr.group(ctx, m.Get("id").Str, kind, visiting)
		if err != nil {
			return 0, false, err
		}
		n += sub
		cut = cut || subCut
	}
	return n, cut, nil
}

// group counts the members of a group. Read-only groups are system
// defined and only their literals are counted. A count that depended on
// cutting a cycle is relative to where the walk entered it and is not cached.
func (cr *Crawler) group(ctx context.Context, id string, kind groupKind, visiting map[string]bool) (int, bool, error) {
	key := kind.resource + "/" + id
	if n, ok := cr.cache[key]; ok {
		return n, false, nil
	}
	if visiting[key] {
		log.Warnf("Group %s references itself, not expanding it again", id)
		return 0, true, nil
	}
	visiting[key] = true
	defer delete(visiting, key)

	g, err := cr.client.Get(ctx, cr.client.ConfigPath(kind.resource, id))
	if err != nil {
		return 0, false, errors.Wrapf(err, "failed to fetch group %s", id)
	}

	n, cut := len(g.Get("literals").Array()), false
	if !g.Get("metadata.readOnly").Exists() {
		sub, subCut, err := cr.countMembers(ctx, g.Get("objects").Array(), kind, visiting)
		if err != nil {
			return 0, false, err
		}
		n += sub
		cut = subCut
	}
	if !cut {
		cr.cache[key] = n
	}
	return n, cut, nil
}

func (cr *Crawler) wait(ctx context.Context) error {
	if cr.delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(cr.delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// All computes every rule of the policy, pausing between rules.
func (cr *Crawler) All(ctx context.Context, fn func(RuleComplexity) error) error {
	rules, err := cr.client.List(ctx, cr.client.ConfigPath(ResourceAccessPolicies, cr.policyID, "accessrules"))
	if err != nil {
		return err
	}
	ids := make([]string, 0, len(rules))
	for _, r := range rules {
		ids = append(ids, r.Get("id").Str)
	}
	return cr.each(ctx, ids, fn)
}

// Incremental computes count rules starting at startID, incrementing the
// last group of the id each time.
func (cr *Crawler) Incremental(ctx context.Context, startID string, count int, fn func(RuleComplexity) error) error {
	ids := make([]string, 0, count)
	id := startID
	for i := 0; i < count; i++ {
		ids = append(ids, id)
		next, err := NextRuleID(id)
		if err != nil {
			return err
		}
		id = next
	}
	return cr.each(ctx, ids, fn)
}

func (cr *Crawler) each(ctx context.Context, ids []string, fn func(RuleComplexity) error) error {
	for i, id := range ids {
		if i > 0 {
			if err := cr.wait(ctx); err != nil {
				return err
			}
		}
		rc, err := cr.Rule(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(rc); err != nil {
			return err
		}
	}
	return nil
}

// NextRuleID increments the last dash group of a rule id as a decimal
// number, keeping its zero padded width.
func NextRuleID(id string) (string, error) {
	if _, err := uuid.Parse(id); err != nil {
		return "", fmt.Errorf("invalid rule id %q: %w", id, err)
	}
	cut := strings.LastIndex(id, "-")
	prefix, last := id[:cut+1], id[cut+1:]
	n, err := strconv.ParseUint(last, 10, 64)
	if err != nil {
		return "", fmt.Errorf("rule id %q does not end in a decimal counter", id)
	}
	next := strconv.FormatUint(n+1, 10)
	if len(next) > len(last) {
		return "", fmt.Errorf("rule id %q cannot be incremented further", id)
	}
	return prefix + strings.Repeat("0", len(last)-len(next)) + next, nil
}
