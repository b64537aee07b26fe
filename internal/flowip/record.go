package flowip

// Record is one IP pair's counters within one interval.
type Record struct {
	IPA string
	IPB string

	TCPPackets   uint64
	TCPBytes     uint64
	UDPPackets   uint64
	UDPBytes     uint64
	OtherPackets uint64
	OtherBytes   uint64

	TCPEstablished uint64
	TCPClosed      uint64
	UDPCreated     uint64
}

// Value returns the numeric column named by f. IP fields yield 0.
func (r *Record) Value(f Field) uint64 {
	switch f {
	case FieldTCPPackets:
		return r.TCPPackets
	case FieldTCPBytes:
		return r.TCPBytes
	case FieldTCPEstablished:
		return r.TCPEstablished
	case FieldTCPClosed:
		return r.TCPClosed
	case FieldUDPPackets:
		return r.UDPPackets
	case FieldUDPBytes:
		return r.UDPBytes
	case FieldUDPCreated:
		return r.UDPCreated
	case FieldOtherPackets:
		return r.OtherPackets
	case FieldOtherBytes:
		return r.OtherBytes
	default:
		return 0
	}
}

// IP returns the address column named by f.
func (r *Record) IP(f Field) string {
	if f == FieldIPB {
		return r.IPB
	}
	return r.IPA
}

// Pair projects the record onto class c.
func (r *Record) Pair(c Class) PairStats {
	p := PairStats{Source: r.IPA, Destination: r.IPB}
	switch c {
	case ClassTCP:
		p.Packets, p.Bytes = r.TCPPackets, r.TCPBytes
		p.Established, p.Closed = r.TCPEstablished, r.TCPClosed
	case ClassUDP:
		p.Packets, p.Bytes = r.UDPPackets, r.UDPBytes
		p.Created = r.UDPCreated
	case ClassOther:
		p.Packets, p.Bytes = r.OtherPackets, r.OtherBytes
	}
	return p
}

// PairStats holds one class's counters for an IP pair. Established and Closed
// are only meaningful for TCP, Created only for UDP.
type PairStats struct {
	Source      string
	Destination string
	Packets     uint64
	Bytes       uint64
	Established uint64
	Closed      uint64
	Created     uint64
}

// Key identifies the pair in the direction the exporter wrote it.
func (p *PairStats) Key() string {
	return p.Source + "," + p.Destination
}

// Value returns the counter selected by f.
func (p *PairStats) Value(f Field) uint64 {
	switch f {
	case FieldTCPPackets, FieldUDPPackets, FieldOtherPackets:
		return p.Packets
	case FieldTCPBytes, FieldUDPBytes, FieldOtherBytes:
		return p.Bytes
	case FieldTCPEstablished:
		return p.Established
	case FieldTCPClosed:
		return p.Closed
	case FieldUDPCreated:
		return p.Created
	default:
		return 0
	}
}

// IP returns the address named by f.
func (p *PairStats) IP(f Field) string {
	if f == FieldIPB {
		return p.Destination
	}
	return p.Source
}

func (p *PairStats) add(o PairStats) {
	p.Packets += o.Packets
	p.Bytes += o.Bytes
	p.Established += o.Established
	p.Closed += o.Closed
	p.Created += o.Created
}
