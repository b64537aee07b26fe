package main

import (
	"math/rand/v2"
	"net"
	"os"
	"time"

	"github.com/alexflint/go-arg"
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	log "github.com/sirupsen/logrus"
)

type args struct {
	Output   string        `arg:"-o" default:"test.pcap" help:"output pcap file path"`
	Count    int           `arg:"-c" default:"1000" help:"number of packets to generate"`
	Hosts    int           `arg:"--hosts" default:"20" help:"size of the 10.0.0.0/24 host pool"`
	Duration time.Duration `arg:"-d" default:"30s" help:"capture time the packets are spread over"`
	Seed     uint64        `arg:"--seed" help:"random seed, 0 picks one from the clock"`
}

func (args) Description() string {
	return "Generates a synthetic capture of TCP, UDP and ICMP traffic for pcap2flowip."
}

var (
	srcMAC = net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
	dstMAC = net.HardwareAddr{0x00, 0x66, 0x77, 0x88, 0x99, 0xAA}
)

func main() {
	var a args
	p := arg.MustParse(&a)
	if a.Hosts < 1 || a.Hosts > 254 {
		p.Fail("--hosts must be between 1 and 254")
	}
	if a.Seed == 0 {
		a.Seed = uint64(time.Now().UnixNano())
	}
	rng := rand.New(rand.NewPCG(a.Seed, a.Seed>>1))

	f, err := os.Create(a.Output)
	if err != nil {
		log.Fatalf("Failed to create output file: %v", err)
	}
	defer f.Close()

	pcapWriter := pcapgo.NewWriter(f)
	if err := pcapWriter.WriteFileHeader(65536, layers.LinkTypeEthernet); err != nil {
		log.Fatalf("Failed to write pcap header: %v", err)
	}

	log.Infof("Generating %d packets between %d hosts into %s (seed %d)...", a.Count, a.Hosts, a.Output, a.Seed)

	start := time.Now().Truncate(time.Second)
	step := a.Duration / time.Duration(max(a.Count, 1))
	opts := gopacket.SerializeOptions{ComputeChecksums: true, FixLengths: true}

	for i := 0; i < a.Count; i++ {
		if (i+1)%100000 == 0 {
			log.Infof("Generated %d packets...", i+1)
		}

		// A few low numbered hosts carry most of the traffic so the report has clear top talkers.
		src := net.IP{10, 0, 0, byte(1 + skewed(rng, a.Hosts))}
		dst := net.IP{10, 0, 0, byte(1 + rng.IntN(a.Hosts))}
		ip := &layers.IPv4{SrcIP: src, DstIP: dst, Version: 4, TTL: 64}
		eth := &layers.Ethernet{SrcMAC: srcMAC, DstMAC: dstMAC, EthernetType: layers.EthernetTypeIPv4}
		payload := make([]byte, rng.IntN(1400)+50)

		var transport gopacket.SerializableLayer
		switch n := rng.IntN(10); {
		case n < 6:
			ip.Protocol = layers.IPProtocolTCP
			tcp := &layers.TCP{
				SrcPort: layers.TCPPort(rng.IntN(65535-1024) + 1024),
				DstPort: 443,
				Seq:     rng.Uint32(),
				ACK:     true,
				Window:  14600,
			}
			switch rng.IntN(20) {
			case 0:
				tcp.SYN = true
			case 1:
				tcp.FIN = true
			}
			tcp.SetNetworkLayerForChecksum(ip)
			transport = tcp
		case n < 9:
			ip.Protocol = layers.IPProtocolUDP
			udp := &layers.UDP{SrcPort: layers.UDPPort(rng.IntN(65535-1024) + 1024), DstPort: 53}
			udp.SetNetworkLayerForChecksum(ip)
			transport = udp
		default:
			ip.Protocol = layers.IPProtocolICMPv4
			transport = &layers.ICMPv4{TypeCode: layers.CreateICMPv4TypeCode(layers.ICMPv4TypeEchoRequest, 0)}
		}

		buf := gopacket.NewSerializeBuffer()
		if err := gopacket.SerializeLayers(buf, opts, eth, ip, transport, gopacket.Payload(payload)); err != nil {
			log.Fatalf("Failed to serialize layers: %v", err)
		}

		ci := gopacket.CaptureInfo{
			Timestamp:     start.Add(time.Duration(i) * step),
			CaptureLength: len(buf.Bytes()),
			Length:        len(buf.Bytes()),
		}
		if err := pcapWriter.WritePacket(ci, buf.Bytes()); err != nil {
			log.Fatalf("Failed to write packet: %v", err)
		}
	}

	log.Infof("Successfully generated %d packets into %s.", a.Count, a.Output)
}

// skewed picks an index below n, favouring small values.
func skewed(rng *rand.Rand, n int) int {
	n = max(n, 1)
	return min(rng.IntN(n), rng.IntN(n))
}
