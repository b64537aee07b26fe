package pcap

import (
	"io"
	"time"

	"FirepowerKit/internal/flowip"
	"FirepowerKit/internal/model"
)

type pairKey struct{ lo, hi string }

// packetColumn is the A to B packet counter of each class; bytes follow it
// and the B to A pair comes two columns later.
var packetColumn = map[flowip.Class]int{
	flowip.ClassTCP:   flowip.ColTCPPacketsAB,
	flowip.ClassUDP:   flowip.ColUDPPacketsAB,
	flowip.ClassOther: flowip.ColOtherPacketsAB,
}

// FlowWriter folds packets into flow-ip-stats intervals of a fixed period.
// A pair is written in the direction it was first seen.
type FlowWriter struct {
	w      io.Writer
	period time.Duration

	start     time.Time
	records   map[pairKey]*flowip.RawRecord
	order     []pairKey
	udpSeen   map[pairKey]bool
	tcpOpen   map[pairKey]bool
	intervals int
	skipped   int
}

// NewFlowWriter writes intervals to w. A period below one second is raised to one second.
func NewFlowWriter(w io.Writer, period time.Duration) *FlowWriter {
	return &FlowWriter{
		w:       w,
		period:  max(period, time.Second),
		records: make(map[pairKey]*flowip.RawRecord),
		udpSeen: make(map[pairKey]bool),
		tcpOpen: make(map[pairKey]bool),
	}
}

// Add counts p. A packet from a later period closes and writes the current interval;
// late packets are counted in the current one. The flow-ip-stats format only
// carries IPv4 addresses, so other packets are skipped.
func (fw *FlowWriter) Add(p *model.PacketInfo) error {
	if p.FiveTuple.SrcIP.To4() == nil || p.FiveTuple.DstIP.To4() == nil {
		fw.skipped++
		return nil
	}

	ts := p.Timestamp.Truncate(fw.period)
	if fw.start.IsZero() {
		fw.start = ts
	} else if ts.After(fw.start) {
		if err := fw.Flush(); err != nil {
			return err
		}
		fw.start = ts
	}

	src, dst := p.FiveTuple.SrcIP.To4().String(), p.FiveTuple.DstIP.To4().String()
	key := pairKey{src, dst}
	if dst < src {
		key = pairKey{dst, src}
	}
	rec, ok := fw.records[key]
	if !ok {
		rec = &flowip.RawRecord{IPA: src, IPB: dst}
		fw.records[key] = rec
		fw.order = append(fw.order, key)
	}

	class := p.Class()
	col := packetColumn[class]
	if rec.IPA != src {
		col += 2
	}
	rec.Counters[col]++
	rec.Counters[col+1] += uint64(p.Length)

	switch class {
	case flowip.ClassTCP:
		switch {
		case p.Flags.SYN && p.Flags.ACK && !fw.tcpOpen[key]:
			fw.tcpOpen[key] = true
			rec.Counters[flowip.ColTCPEstablished]++
		case (p.Flags.FIN || p.Flags.RST) && fw.tcpOpen[key]:
			delete(fw.tcpOpen, key)
			rec.Counters[flowip.ColTCPClosed]++
		}
	case flowip.ClassUDP:
		if !fw.udpSeen[key] {
			fw.udpSeen[key] = true
			rec.Counters[flowip.ColUDPCreated]++
		}
	}
	return nil
}

// Flush writes the current interval, if it holds any records.
func (fw *FlowWriter) Flush() error {
	if len(fw.order) == 0 {
		return nil
	}
	recs := make([]flowip.RawRecord, 0, len(fw.order))
	for _, k := range fw.order {
		recs = append(recs, *fw.records[k])
	}
	if err := flowip.WriteInterval(fw.w, fw.start.Unix(), recs); err != nil {
		return err
	}
	fw.intervals++
	clear(fw.records)
	fw.order = fw.order[:0]
	return nil
}

// Intervals returns how many intervals have been written.
func (fw *FlowWriter) Intervals() int {
	return fw.intervals
}

// Skipped returns how many non-IPv4 packets were left out.
func (fw *FlowWriter) Skipped() int {
	return fw.skipped
}
