package model

import (
	"net"
	"time"

	"FirepowerKit/internal/flowip"
)

// IP protocol numbers that get their own traffic class.
const (
	ProtocolTCP uint8 = 6
	ProtocolUDP uint8 = 17
)

// FiveTuple represents the 5-tuple of a network packet.
type FiveTuple struct {
	SrcIP    net.IP
	DstIP    net.IP
	SrcPort  uint16
	DstPort  uint16
	Protocol uint8
}

// TCPFlags carries the handshake and teardown bits the flow exporter counts.
type TCPFlags struct {
	SYN bool
	ACK bool
	FIN bool
	RST bool
}

// PacketInfo holds the metadata extracted from a single packet.
type PacketInfo struct {
	Timestamp time.Time
	FiveTuple FiveTuple
	Length    int
	Flags     TCPFlags
}

// Class maps the IP protocol onto a flow-ip-stats traffic class.
func (p *PacketInfo) Class() flowip.Class {
	switch p.FiveTuple.Protocol {
	case ProtocolTCP:
		return flowip.ClassTCP
	case ProtocolUDP:
		return flowip.ClassUDP
	default:
		return flowip.ClassOther
	}
}
