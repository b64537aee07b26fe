// Package netmap labels addresses by the most specific configured network.
package netmap

import (
	"errors"
	"fmt"
	"sort"

	"github.com/kentik/patricia"
	"github.com/kentik/patricia/generics_tree"
)

// ErrNotFound is returned by Lookup when no network covers the address.
var ErrNotFound = errors.New("not found")

// Labeler maps CIDRs to labels.
type Labeler struct {
	treeV4 *generics_tree.TreeV4[string]
	treeV6 *generics_tree.TreeV6[string]
	size   int
}

func New() *Labeler {
	return &Labeler{
		treeV4: generics_tree.NewTreeV4[string](),
		treeV6: generics_tree.NewTreeV6[string](),
	}
}

// FromMap builds a Labeler from a CIDR to label map, as found in the config.
func FromMap(networks map[string]string) (*Labeler, error) {
	l := New()
	cidrs := make([]string, 0, len(networks))
	for cidr := range networks {
		cidrs = append(cidrs, cidr)
	}
	sort.Strings(cidrs)
	for _, cidr := range cidrs {
		if err := l.Set(cidr, networks[cidr]); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// Set labels every address in cidr. A bare address is a host route.
func (l *Labeler) Set(cidr, label string) error {
	v4, v6, err := patricia.ParseIPFromString(cidr)
	if err != nil {
		return fmt.Errorf("invalid network %q: %w", cidr, err)
	}
	if v4 != nil {
		l.treeV4.Set(*v4, label)
	} else {
		l.treeV6.Set(*v6, label)
	}
	l.size++
	return nil
}

// Lookup returns the label of the most specific network containing ip.
func (l *Labeler) Lookup(ip string) (string, error) {
	v4, v6, err := patricia.ParseIPFromString(ip)
	if err != nil {
		return "", err
	}
	var found bool
	var label string
	if v4 != nil {
		found, label = l.treeV4.FindDeepestTag(*v4)
	} else {
		found, label = l.treeV6.FindDeepestTag(*v6)
	}
	if !found {
		return "", ErrNotFound
	}
	return label, nil
}

// Label is Lookup without the error: unknown or unparsable addresses get "".
func (l *Labeler) Label(ip string) string {
	if l == nil || l.size == 0 {
		return ""
	}
	label, err := l.Lookup(ip)
	if err != nil {
		return ""
	}
	return label
}

// Len returns the number of configured networks.
func (l *Labeler) Len() int {
	if l == nil {
		return 0
	}
	return l.size
}
