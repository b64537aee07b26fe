package protocol

import (
	"errors"

	"FirepowerKit/internal/model"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// ErrNotIP is returned for frames without an IPv4 or IPv6 layer.
var ErrNotIP = errors.New("not an IP packet")

// ParsePacket extracts the addresses, ports and TCP flags the flow exporter counts.
// Packets that are neither TCP nor UDP keep zero ports and count as other traffic.
func ParsePacket(packet gopacket.Packet) (*model.PacketInfo, error) {
	info := &model.PacketInfo{Length: len(packet.Data())}
	if meta := packet.Metadata(); meta != nil {
		info.Timestamp = meta.Timestamp
		if meta.Length > 0 {
			info.Length = meta.Length
		}
	}

	var tuple model.FiveTuple
	switch ip := packet.NetworkLayer().(type) {
	case *layers.IPv4:
		tuple.SrcIP = ip.SrcIP
		tuple.DstIP = ip.DstIP
		tuple.Protocol = uint8(ip.Protocol)
	case *layers.IPv6:
		tuple.SrcIP = ip.SrcIP
		tuple.DstIP = ip.DstIP
		tuple.Protocol = uint8(ip.NextHeader)
	default:
		return nil, ErrNotIP
	}

	if l := packet.Layer(layers.LayerTypeTCP); l != nil {
		tcp := l.(*layers.TCP)
		tuple.SrcPort = uint16(tcp.SrcPort)
		tuple.DstPort = uint16(tcp.DstPort)
		info.Flags = model.TCPFlags{SYN: tcp.SYN, ACK: tcp.ACK, FIN: tcp.FIN, RST: tcp.RST}
	} else if l := packet.Layer(layers.LayerTypeUDP); l != nil {
		udp := l.(*layers.UDP)
		tuple.SrcPort = uint16(udp.SrcPort)
		tuple.DstPort = uint16(udp.DstPort)
	}

	info.FiveTuple = tuple
	return info, nil
}
