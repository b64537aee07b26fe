package netmap

import (
	"errors"
	"testing"
)

func TestLabeler_DeepestMatchWins(t *testing.T) {
	l, err := FromMap(map[string]string{
		"10.0.0.0/8":    "corp",
		"10.20.0.0/16":  "datacenter",
		"10.20.30.40":   "fmc",
		"2001:db8::/32": "v6-lab",
	})
	if err != nil {
		t.Fatalf("FromMap failed: %v", err)
	}

	tests := map[string]string{
		"10.1.2.3":    "corp",
		"10.20.1.1":   "datacenter",
		"10.20.30.40": "fmc",
		"2001:db8::1": "v6-lab",
		"192.168.1.1": "",
		"not-an-ip":   "",
	}
	for ip, want := range tests {
		if got := l.Label(ip); got != want {
			t.Errorf("Label(%s) = %q, want %q", ip, got, want)
		}
	}

	if _, err := l.Lookup("192.168.1.1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if l.Len() != 4 {
		t.Errorf("Expected 4 networks, got %d", l.Len())
	}
}

func TestLabeler_InvalidNetwork(t *testing.T) {
	if _, err := FromMap(map[string]string{"10.0.0.0/99": "bad"}); err == nil {
		t.Fatal("Expected an error for an invalid prefix")
	}
	var nilLabeler *Labeler
	if nilLabeler.Label("10.0.0.1") != "" {
		t.Errorf("Nil labeler should return empty labels")
	}
}
