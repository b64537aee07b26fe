package flowip

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Column positions of the counters that follow the two addresses on a record line.
const (
	ColTCPPacketsAB = iota
	ColTCPBytesAB
	ColTCPPacketsBA
	ColTCPBytesBA
	ColUDPPacketsAB
	ColUDPBytesAB
	ColUDPPacketsBA
	ColUDPBytesBA
	ColOtherPacketsAB
	ColOtherBytesAB
	ColOtherPacketsBA
	ColOtherBytesBA
	ColTCPEstablished
	ColTCPClosed
	ColUDPCreated
	NumColumns
)

// RawRecord is a record line as the exporter writes it, with directional counters.
type RawRecord struct {
	IPA      string
	IPB      string
	Counters [NumColumns]uint64
}

// Record folds the directional counters into per-class totals.
func (r *RawRecord) Record() Record {
	c := &r.Counters
	return Record{
		IPA:            r.IPA,
		IPB:            r.IPB,
		TCPPackets:     c[ColTCPPacketsAB] + c[ColTCPPacketsBA],
		TCPBytes:       c[ColTCPBytesAB] + c[ColTCPBytesBA],
		UDPPackets:     c[ColUDPPacketsAB] + c[ColUDPPacketsBA],
		UDPBytes:       c[ColUDPBytesAB] + c[ColUDPBytesBA],
		OtherPackets:   c[ColOtherPacketsAB] + c[ColOtherPacketsBA],
		OtherBytes:     c[ColOtherBytesAB] + c[ColOtherBytesBA],
		TCPEstablished: c[ColTCPEstablished],
		TCPClosed:      c[ColTCPClosed],
		UDPCreated:     c[ColUDPCreated],
	}
}

// FormatRecord renders r as a record line without the trailing newline.
func FormatRecord(r *RawRecord) string {
	var b strings.Builder
	b.WriteString(r.IPA)
	b.WriteByte(',')
	b.WriteString(r.IPB)
	for _, v := range r.Counters {
		b.WriteByte(',')
		b.WriteString(strconv.FormatUint(v, 10))
	}
	return b.String()
}

// WriteInterval writes one header line followed by the records of an interval.
func WriteInterval(w io.Writer, epoch int64, records []RawRecord) error {
	if _, err := fmt.Fprintf(w, "%010d,%d\n", epoch, len(records)); err != nil {
		return fmt.Errorf("failed to write interval header: %w", err)
	}
	for i := range records {
		if _, err := io.WriteString(w, FormatRecord(&records[i])+"\n"); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}
	return nil
}
