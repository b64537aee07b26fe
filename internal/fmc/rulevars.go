package fmc

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const anyZone = "any"

// RuleVarsEntry is one line of a rule map file:
// index;srcZones;dstZones[;ips,variableSet]. A nil zone list means any.
type RuleVarsEntry struct {
	Line             int
	Index            int
	SourceZones      []string
	DestinationZones []string
	IPSPolicy        string
	VariableSet      string
}

// ParseRuleMap reads a rule map. Blank lines and lines starting with # are
// ignored; indices must run 1, 2, 3 and so on.
func ParseRuleMap(r io.Reader) ([]RuleVarsEntry, error) {
	var entries []RuleVarsEntry
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		cols := strings.Split(line, ";")
		if len(cols) < 3 {
			return nil, fmt.Errorf("line %d: invalid line %q, expect a minimum of 3 semicolon separated entries", lineNo, line)
		}
		index, err := strconv.Atoi(strings.TrimSpace(cols[0]))
		if err != nil || index != len(entries)+1 {
			return nil, fmt.Errorf("line %d: rule map is not sorted by rule index or is missing entries (expected %d, got %q)", lineNo, len(entries)+1, cols[0])
		}

		e := RuleVarsEntry{Line: lineNo, Index: index}
		if e.SourceZones, err = parseZones(cols[1]); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if e.DestinationZones, err = parseZones(cols[2]); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}

		if len(cols) > 3 && strings.TrimSpace(cols[3]) != "" {
			parts := strings.Split(cols[3], ",")
			if len(parts) != 2 {
				return nil, fmt.Errorf("line %d: invalid IPS/variable set entry %q, expect comma separated IPS and variable set", lineNo, cols[3])
			}
			e.IPSPolicy = strings.TrimSpace(parts[0])
			e.VariableSet = strings.TrimSpace(parts[1])
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rule map: %w", err)
	}
	return entries, nil
}

func parseZones(col string) ([]string, error) {
	var zones []string
	for _, z := range strings.Split(col, ",") {
		z = strings.TrimSpace(z)
		if z == "" {
			continue
		}
		zones = append(zones, z)
	}
	for _, z := range zones {
		if z == anyZone {
			if len(zones) > 1 {
				return nil, errors.New(`cannot specify zone "any" in conjunction with other zones`)
			}
			return nil, nil
		}
	}
	if len(zones) == 0 {
		return nil, errors.New("zone column is empty")
	}
	return zones, nil
}

// RuleVars is a rule map entry resolved against the FMC objects.
type RuleVars struct {
	Index            int
	SourceZones      []Ref
	DestinationZones []Ref
	IPSPolicy        *Ref
	VariableSet      *Ref
}

// ResolveRuleMap turns names into references. The first unknown name is an error.
func ResolveRuleMap(entries []RuleVarsEntry, zones, ipsPolicies, variableSets *Catalog) ([]RuleVars, error) {
	out := make([]RuleVars, 0, len(entries))
	for _, e := range entries {
		rv := RuleVars{Index: e.Index}
		var err error
		if rv.SourceZones, err = lookupAll(zones, e.SourceZones); err != nil {
			return nil, fmt.Errorf("line %d: %w", e.Line, err)
		}
		if rv.DestinationZones, err = lookupAll(zones, e.DestinationZones); err != nil {
			return nil, fmt.Errorf("line %d: %w", e.Line, err)
		}
		if e.IPSPolicy != "" {
			ips, err := ipsPolicies.Lookup(e.IPSPolicy)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", e.Line, err)
			}
			vs, err := variableSets.Lookup(e.VariableSet)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", e.Line, err)
			}
			rv.IPSPolicy, rv.VariableSet = &ips, &vs
		}
		out = append(out, rv)
	}
	return out, nil
}

func lookupAll(cat *Catalog, names []string) ([]Ref, error) {
	var refs []Ref
	for _, n := range names {
		r, err := cat.Lookup(n)
		if err != nil {
			return nil, err
		}
		refs = append(refs, r)
	}
	return refs, nil
}

// ApplyRuleVars rewrites a decoded access rule for a PUT.
func ApplyRuleVars(rule map[string]interface{}, rv RuleVars) error {
	setZones(rule, "sourceZones", rv.SourceZones)
	setZones(rule, "destinationZones", rv.DestinationZones)

	if rv.IPSPolicy != nil && rv.VariableSet != nil {
		if action, _ := rule["action"].(string); action != "ALLOW" {
			return fmt.Errorf("cannot set IPS policy and variable set on rule %q because the rule action is not ALLOW", rule["name"])
		}
		rule["ipsPolicy"] = *rv.IPSPolicy
		rule["variableSet"] = *rv.VariableSet
	}

	// Read-only attributes are rejected by PUT.
	for _, attr := range []string{"metadata", "links", "commentHistoryList"} {
		delete(rule, attr)
	}
	for _, field := range []string{"sourcePorts", "destinationPorts"} {
		ports, ok := rule[field].(map[string]interface{})
		if !ok {
			continue
		}
		objects, _ := ports["objects"].([]interface{})
		for _, o := range objects {
			if ref, ok := o.(map[string]interface{}); ok {
				delete(ref, "protocol")
			}
		}
	}
	return nil
}

func setZones(rule map[string]interface{}, field string, zones []Ref) {
	if len(zones) == 0 {
		delete(rule, field)
		return
	}
	rule[field] = map[string]interface{}{"objects": zones}
}

// SetRuleVars applies a resolved rule map to every rule of an access
// policy, in policy order. It stops at the first failure.
func (c *Client) SetRuleVars(ctx context.Context, policyName string, entries []RuleVarsEntry) (int, error) {
	policy, err := c.FindByName(ctx, ResourceAccessPolicies, policyName)
	if err != nil {
		return 0, err
	}
	rulesPath := c.ConfigPath(ResourceAccessPolicies, policy.ID, "accessrules")
	rules, err := c.List(ctx, rulesPath)
	if err != nil {
		return 0, err
	}

	zones, err := c.Catalog(ctx, ResourceSecurityZones)
	if err != nil {
		return 0, err
	}
	ipsPolicies, err := c.Catalog(ctx, ResourceIntrusionPolicies)
	if err != nil {
		return 0, err
	}
	variableSets, err := c.Catalog(ctx, ResourceVariableSets)
	if err != nil {
		return 0, err
	}

	vars, err := ResolveRuleMap(entries, zones, ipsPolicies, variableSets)
	if err != nil {
		return 0, errors.Wrap(err, "error building rule map")
	}
	if len(rules) != len(vars) {
		return 0, fmt.Errorf("number of rules in the rule map (%d) does not match number of rules in access policy %q (%d)", len(vars), policyName, len(rules))
	}

	for i, r := range rules {
		rulePath := c.ConfigPath(ResourceAccessPolicies, policy.ID, "accessrules", r.Get("id").Str)
		current, err := c.Get(ctx, rulePath)
		if err != nil {
			return i, errors.Wrapf(err, "failed to fetch rule %d", i+1)
		}
		decoded, ok := current.Value().(map[string]interface{})
		if !ok {
			return i, fmt.Errorf("rule %d is not a JSON object", i+1)
		}
		if err := ApplyRuleVars(decoded, vars[i]); err != nil {
			return i, err
		}
		if _, err := c.Put(ctx, rulePath, decoded); err != nil {
			return i, errors.Wrapf(err, "failed to update rule %q", current.Get("name").Str)
		}
		log.Infof("Updated rule %d %q", i+1, current.Get("name").Str)
	}
	return len(rules), nil
}
