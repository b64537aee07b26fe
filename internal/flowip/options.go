// Package flowip reads flow-ip-stats CSV exports and ranks the busiest IP
// pairs per protocol class.
//
// A file is a sequence of intervals. Each interval starts with an
// "epoch,num_records" header and carries one line per IP pair. Every interval
// contributes only its top Options.Limit pairs to the per-file totals, so the
// precision of the final ranking is a function of the limit.
package flowip

import (
	"fmt"
	"strings"
)

// Class is a protocol class counted separately by the exporter.
type Class int

const (
	ClassTCP Class = iota
	ClassUDP
	ClassOther
	numClasses
)

// AllClasses lists the classes in report order.
var AllClasses = []Class{ClassTCP, ClassUDP, ClassOther}

func (c Class) String() string {
	switch c {
	case ClassTCP:
		return "tcp"
	case ClassUDP:
		return "udp"
	case ClassOther:
		return "other"
	default:
		return fmt.Sprintf("class(%d)", int(c))
	}
}

// ParseClass accepts "tcp", "udp" or "other".
func ParseClass(s string) (Class, error) {
	for _, c := range AllClasses {
		if strings.EqualFold(s, c.String()) {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown traffic class %q", s)
}

// Field names a sortable column.
type Field string

const (
	FieldIPA            Field = "ipA"
	FieldIPB            Field = "ipB"
	FieldTCPPackets     Field = "tcp_packets"
	FieldTCPBytes       Field = "tcp_bytes"
	FieldTCPEstablished Field = "tcp_established"
	FieldTCPClosed      Field = "tcp_closed"
	FieldUDPPackets     Field = "udp_packets"
	FieldUDPBytes       Field = "udp_bytes"
	FieldUDPCreated     Field = "udp_created"
	FieldOtherPackets   Field = "other_packets"
	FieldOtherBytes     Field = "other_bytes"
)

var classFields = [numClasses][]Field{
	ClassTCP:   {FieldTCPPackets, FieldTCPBytes, FieldTCPEstablished, FieldTCPClosed},
	ClassUDP:   {FieldUDPPackets, FieldUDPBytes, FieldUDPCreated},
	ClassOther: {FieldOtherPackets, FieldOtherBytes},
}

// FieldsFor returns the numeric sort keys offered for class c, in menu order.
func FieldsFor(c Class) []Field {
	return append([]Field(nil), classFields[c]...)
}

// IsIP reports whether f sorts lexicographically.
func (f Field) IsIP() bool {
	return f == FieldIPA || f == FieldIPB
}

// ParseField validates s as a sort key for class c. The IP fields are valid for every class.
func ParseField(c Class, s string) (Field, error) {
	f := Field(s)
	if f.IsIP() {
		return f, nil
	}
	for _, candidate := range classFields[c] {
		if candidate == f {
			return f, nil
		}
	}
	return "", fmt.Errorf("invalid %s sort key %q (valid: %s, ipA, ipB)", c, s, joinFields(classFields[c]))
}

func joinFields(fields []Field) string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}

// Selection is the "data to include" menu choice.
type Selection int

const (
	SelectTCP   Selection = 1
	SelectUDP   Selection = 2
	SelectOther Selection = 3
	SelectAll   Selection = 4
)

// Classes expands the selection.
func (s Selection) Classes() []Class {
	switch s {
	case SelectTCP:
		return []Class{ClassTCP}
	case SelectUDP:
		return []Class{ClassUDP}
	case SelectOther:
		return []Class{ClassOther}
	case SelectAll:
		return AllClasses
	default:
		return nil
	}
}

// Options configures one analysis run.
type Options struct {
	// Keys holds the sort key per class; an empty key disables the class.
	Keys [numClasses]Field
	// Limit is the number of pairs each interval contributes per class. Zero keeps all.
	Limit int
}

// SetKey enables class c sorted by f.
func (o *Options) SetKey(c Class, f Field) {
	o.Keys[c] = f
}

// Key returns the sort key of class c, or "" when the class is disabled.
func (o *Options) Key(c Class) Field {
	return o.Keys[c]
}

// Enabled reports whether class c is part of the run.
func (o *Options) Enabled(c Class) bool {
	return o.Keys[c] != ""
}

// EnabledClasses returns the enabled classes in report order.
func (o *Options) EnabledClasses() []Class {
	var out []Class
	for _, c := range AllClasses {
		if o.Enabled(c) {
			out = append(out, c)
		}
	}
	return out
}

// Validate checks that at least one class is enabled with a valid key.
func (o *Options) Validate() error {
	if o.Limit < 0 {
		return fmt.Errorf("limit must not be negative, got %d", o.Limit)
	}
	enabled := 0
	for _, c := range AllClasses {
		if !o.Enabled(c) {
			continue
		}
		enabled++
		if _, err := ParseField(c, string(o.Keys[c])); err != nil {
			return err
		}
	}
	if enabled == 0 {
		return fmt.Errorf("no traffic class selected")
	}
	return nil
}
