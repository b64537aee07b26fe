package pcap

import (
	"net"
	"strings"
	"testing"
	"time"

	"FirepowerKit/internal/flowip"
	"FirepowerKit/internal/model"

	"github.com/google/gopacket/layers"
)

func packet(at time.Duration, src, dst string, proto uint8, length int, flags model.TCPFlags) *model.PacketInfo {
	return &model.PacketInfo{
		Timestamp: baseTime.Add(at),
		FiveTuple: model.FiveTuple{SrcIP: net.ParseIP(src), DstIP: net.ParseIP(dst), Protocol: proto},
		Length:    length,
		Flags:     flags,
	}
}

func TestFlowWriter_Intervals(t *testing.T) {
	var out strings.Builder
	fw := NewFlowWriter(&out, time.Second)

	packets := []*model.PacketInfo{
		packet(0, "10.0.0.1", "10.0.0.2", model.ProtocolTCP, 64, model.TCPFlags{SYN: true}),
		packet(100*time.Millisecond, "10.0.0.2", "10.0.0.1", model.ProtocolTCP, 64, model.TCPFlags{SYN: true, ACK: true}),
		packet(200*time.Millisecond, "10.0.0.3", "10.0.0.1", model.ProtocolUDP, 72, model.TCPFlags{}),
		packet(time.Second, "10.0.0.1", "10.0.0.2", model.ProtocolTCP, 60, model.TCPFlags{FIN: true, ACK: true}),
		packet(1500*time.Millisecond, "10.0.0.3", "10.0.0.1", model.ProtocolUDP, 72, model.TCPFlags{}),
		packet(1600*time.Millisecond, "10.0.0.1", "10.0.0.4", 1, 98, model.TCPFlags{}),
	}
	for _, p := range packets {
		if err := fw.Add(p); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}
	if err := fw.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	want := "1700000000,2\n" +
		"10.0.0.1,10.0.0.2,1,64,1,64,0,0,0,0,0,0,0,0,1,0,0\n" +
		"10.0.0.3,10.0.0.1,0,0,0,0,1,72,0,0,0,0,0,0,0,0,1\n" +
		"1700000001,3\n" +
		"10.0.0.1,10.0.0.2,1,60,0,0,0,0,0,0,0,0,0,0,0,1,0\n" +
		"10.0.0.3,10.0.0.1,0,0,0,0,1,72,0,0,0,0,0,0,0,0,0\n" +
		"10.0.0.1,10.0.0.4,0,0,0,0,0,0,0,0,1,98,0,0,0,0,0\n"
	if out.String() != want {
		t.Errorf("Unexpected output:\n%s\nwant\n%s", out.String(), want)
	}
	if fw.Intervals() != 2 {
		t.Errorf("Expected 2 intervals, got %d", fw.Intervals())
	}
}

func TestFlowWriter_EmptyFlush(t *testing.T) {
	var out strings.Builder
	fw := NewFlowWriter(&out, 0)
	if err := fw.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if out.Len() != 0 || fw.Intervals() != 0 {
		t.Errorf("Expected no output, got %q", out.String())
	}
}

func TestFlowWriter_RoundTrip(t *testing.T) {
	capture := buildPcap(t,
		frame{src: "10.0.0.1", dst: "10.0.0.2", proto: layers.IPProtocolTCP, payload: 10},
		frame{at: 10 * time.Millisecond, src: "10.0.0.2", dst: "10.0.0.1", proto: layers.IPProtocolTCP, syn: true, ack: true, payload: 10},
		frame{at: time.Second, src: "10.0.0.5", dst: "10.0.0.1", proto: layers.IPProtocolTCP, payload: 100},
	)
	reader, err := NewReader(capture)
	if err != nil {
		t.Fatalf("Failed to create reader: %v", err)
	}

	var csv strings.Builder
	fw := NewFlowWriter(&csv, time.Second)
	for _, p := range readAll(t, reader) {
		if err := fw.Add(p); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}
	if err := fw.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	var opts flowip.Options
	opts.SetKey(flowip.ClassTCP, flowip.FieldTCPBytes)
	res, err := flowip.Analyze(t.Context(), strings.NewReader(csv.String()), opts)
	if err != nil {
		t.Fatalf("Analyze failed: %v\n%s", err, csv.String())
	}
	if res.Stats.Intervals != 2 {
		t.Errorf("Expected 2 intervals, got %d", res.Stats.Intervals)
	}
	pairs := res.Pairs(flowip.ClassTCP)
	if len(pairs) != 2 {
		t.Fatalf("Expected 2 tcp pairs, got %+v", pairs)
	}
	if pairs[0].Source != "10.0.0.5" || pairs[0].Bytes != 154 {
		t.Errorf("Expected the larger pair first, got %+v", pairs[0])
	}
	if pairs[1].Bytes != 128 || pairs[1].Established != 1 {
		t.Errorf("Unexpected handshake pair: %+v", pairs[1])
	}
}

func TestFlowWriter_SkipsIPv6(t *testing.T) {
	var out strings.Builder
	fw := NewFlowWriter(&out, time.Second)
	for _, p := range []*model.PacketInfo{
		packet(0, "10.0.0.1", "10.0.0.2", model.ProtocolTCP, 64, model.TCPFlags{}),
		packet(0, "2001:db8::1", "2001:db8::2", model.ProtocolUDP, 80, model.TCPFlags{}),
		packet(0, "::ffff:10.0.0.3", "10.0.0.1", model.ProtocolUDP, 72, model.TCPFlags{}),
	} {
		if err := fw.Add(p); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}
	if err := fw.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if fw.Skipped() != 1 {
		t.Errorf("Expected 1 skipped packet, got %d", fw.Skipped())
	}

	var intervals []*flowip.Interval
	stats, err := flowip.ParseIntervals(t.Context(), strings.NewReader(out.String()), func(iv *flowip.Interval) error {
		intervals = append(intervals, iv)
		return nil
	})
	if err != nil {
		t.Fatalf("ParseIntervals failed: %v", err)
	}
	if stats.Skipped != 0 || stats.Records != 2 {
		t.Errorf("Expected 2 parsed records and none dropped, got %+v\n%s", stats, out.String())
	}
	if len(intervals) != 1 || intervals[0].Declared != len(intervals[0].Records) {
		t.Fatalf("Expected the header count to match the records:\n%s", out.String())
	}
	if intervals[0].Records[1].IPA != "10.0.0.3" {
		t.Errorf("Expected a mapped address to be written as IPv4, got %q", intervals[0].Records[1].IPA)
	}
}
