package protocol

import (
	"errors"
	"net"
	"testing"

	"FirepowerKit/internal/flowip"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

func ethernet(t *testing.T, network gopacket.SerializableLayer, rest ...gopacket.SerializableLayer) gopacket.Packet {
	t.Helper()
	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0, 1, 2, 3, 4, 5},
		DstMAC:       net.HardwareAddr{0, 1, 2, 3, 4, 6},
		EthernetType: layers.EthernetTypeIPv4,
	}
	switch network.(type) {
	case *layers.IPv6:
		eth.EthernetType = layers.EthernetTypeIPv6
	case *layers.ARP:
		eth.EthernetType = layers.EthernetTypeARP
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	all := append([]gopacket.SerializableLayer{eth, network}, rest...)
	if err := gopacket.SerializeLayers(buf, opts, all...); err != nil {
		t.Fatalf("Failed to serialize: %v", err)
	}
	return gopacket.NewPacket(buf.Bytes(), layers.LayerTypeEthernet, gopacket.Default)
}

func ipv4(proto layers.IPProtocol) *layers.IPv4 {
	return &layers.IPv4{Version: 4, IHL: 5, TTL: 64, Protocol: proto, SrcIP: net.IP{192, 168, 1, 10}, DstIP: net.IP{192, 168, 1, 20}}
}

func TestParsePacket_TCP(t *testing.T) {
	ip := ipv4(layers.IPProtocolTCP)
	tcp := &layers.TCP{SrcPort: 51000, DstPort: 22, SYN: true, ACK: true, Window: 512}
	tcp.SetNetworkLayerForChecksum(ip)

	info, err := ParsePacket(ethernet(t, ip, tcp, gopacket.Payload(make([]byte, 26))))
	if err != nil {
		t.Fatalf("ParsePacket failed: %v", err)
	}
	if !info.FiveTuple.SrcIP.Equal(ip.SrcIP) || !info.FiveTuple.DstIP.Equal(ip.DstIP) {
		t.Errorf("Unexpected addresses: %+v", info.FiveTuple)
	}
	if info.FiveTuple.SrcPort != 51000 || info.FiveTuple.DstPort != 22 {
		t.Errorf("Unexpected ports: %+v", info.FiveTuple)
	}
	if !info.Flags.SYN || !info.Flags.ACK || info.Flags.FIN {
		t.Errorf("Unexpected flags: %+v", info.Flags)
	}
	if info.Length != 80 {
		t.Errorf("Expected length 80, got %d", info.Length)
	}
	if info.Class() != flowip.ClassTCP {
		t.Errorf("Expected tcp class, got %s", info.Class())
	}
}

func TestParsePacket_UDPv6(t *testing.T) {
	ip := &layers.IPv6{Version: 6, HopLimit: 64, NextHeader: layers.IPProtocolUDP, SrcIP: net.ParseIP("2001:db8::1"), DstIP: net.ParseIP("2001:db8::2")}
	udp := &layers.UDP{SrcPort: 5353, DstPort: 53}
	udp.SetNetworkLayerForChecksum(ip)

	info, err := ParsePacket(ethernet(t, ip, udp, gopacket.Payload([]byte("query"))))
	if err != nil {
		t.Fatalf("ParsePacket failed: %v", err)
	}
	if info.FiveTuple.DstPort != 53 || info.Class() != flowip.ClassUDP {
		t.Errorf("Unexpected udp packet: %+v", info.FiveTuple)
	}
	if info.FiveTuple.SrcIP.String() != "2001:db8::1" {
		t.Errorf("Unexpected source: %s", info.FiveTuple.SrcIP)
	}
}

func TestParsePacket_Other(t *testing.T) {
	icmp := &layers.ICMPv4{TypeCode: layers.CreateICMPv4TypeCode(layers.ICMPv4TypeEchoRequest, 0)}
	info, err := ParsePacket(ethernet(t, ipv4(layers.IPProtocolICMPv4), icmp))
	if err != nil {
		t.Fatalf("ParsePacket failed: %v", err)
	}
	if info.Class() != flowip.ClassOther || info.FiveTuple.SrcPort != 0 {
		t.Errorf("Expected other traffic without ports, got %+v", info.FiveTuple)
	}
}

func TestParsePacket_NotIP(t *testing.T) {
	arp := &layers.ARP{
		AddrType:          layers.LinkTypeEthernet,
		Protocol:          layers.EthernetTypeIPv4,
		HwAddressSize:     6,
		ProtAddressSize:   4,
		Operation:         layers.ARPRequest,
		SourceHwAddress:   []byte{0, 1, 2, 3, 4, 5},
		SourceProtAddress: []byte{192, 168, 1, 10},
		DstHwAddress:      make([]byte, 6),
		DstProtAddress:    []byte{192, 168, 1, 20},
	}
	if _, err := ParsePacket(ethernet(t, arp)); !errors.Is(err, ErrNotIP) {
		t.Fatalf("Expected ErrNotIP, got %v", err)
	}
}
