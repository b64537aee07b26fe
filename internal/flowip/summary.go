package flowip

import (
	"cmp"
	"slices"
)

// HostTotal is one host's byte counts across every displayed pair it took part in.
type HostTotal struct {
	Host       string
	TCPBytes   uint64
	UDPBytes   uint64
	OtherBytes uint64
	Total      uint64
	// Label is the network label of Host, if any.
	Label string
}

// Bytes returns the host's bytes for class c.
func (h *HostTotal) Bytes(c Class) uint64 {
	switch c {
	case ClassTCP:
		return h.TCPBytes
	case ClassUDP:
		return h.UDPBytes
	case ClassOther:
		return h.OtherBytes
	}
	return 0
}

// Percent returns class c's share of the host total, or 0 for an idle host.
func (h *HostTotal) Percent(c Class) float64 {
	if h.Total == 0 {
		return 0
	}
	return float64(h.Bytes(c)) / float64(h.Total) * 100
}

func (h *HostTotal) add(c Class, bytes uint64) {
	switch c {
	case ClassTCP:
		h.TCPBytes += bytes
	case ClassUDP:
		h.UDPBytes += bytes
	case ClassOther:
		h.OtherBytes += bytes
	}
	h.Total += bytes
}

// Summary accumulates per-host totals.
type Summary struct {
	hosts map[string]*HostTotal
}

func NewSummary() *Summary {
	return &Summary{hosts: make(map[string]*HostTotal)}
}

// AddPair credits the pair's bytes to both of its hosts.
func (s *Summary) AddPair(c Class, p PairStats) {
	s.host(p.Source).add(c, p.Bytes)
	s.host(p.Destination).add(c, p.Bytes)
}

func (s *Summary) host(ip string) *HostTotal {
	h, ok := s.hosts[ip]
	if !ok {
		h = &HostTotal{Host: ip}
		s.hosts[ip] = h
	}
	return h
}

// Host returns the totals for ip.
func (s *Summary) Host(ip string) (HostTotal, bool) {
	h, ok := s.hosts[ip]
	if !ok {
		return HostTotal{}, false
	}
	return *h, true
}

// Len returns the number of distinct hosts.
func (s *Summary) Len() int {
	return len(s.hosts)
}

// Top returns up to limit hosts by total bytes, descending, ties by host.
// A limit of zero returns every host.
func (s *Summary) Top(limit int) []HostTotal {
	out := make([]HostTotal, 0, len(s.hosts))
	for _, h := range s.hosts {
		out = append(out, *h)
	}
	slices.SortFunc(out, func(a, b HostTotal) int {
		if c := cmp.Compare(b.Total, a.Total); c != 0 {
			return c
		}
		return cmp.Compare(a.Host, b.Host)
	})
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out
}
