package flowip

import (
	"strings"
	"testing"
)

// buildCSV renders intervals in the exporter format for tests.
func buildCSV(t *testing.T, intervals ...[]RawRecord) string {
	t.Helper()
	var b strings.Builder
	for i, recs := range intervals {
		if err := WriteInterval(&b, 1700000000+int64(i), recs); err != nil {
			t.Fatalf("WriteInterval failed: %v", err)
		}
	}
	return b.String()
}

// tcpRecord builds a record that only carries TCP traffic.
func tcpRecord(a, b string, pktsAB, bytesAB, pktsBA, bytesBA uint64) RawRecord {
	r := RawRecord{IPA: a, IPB: b}
	r.Counters[ColTCPPacketsAB] = pktsAB
	r.Counters[ColTCPBytesAB] = bytesAB
	r.Counters[ColTCPPacketsBA] = pktsBA
	r.Counters[ColTCPBytesBA] = bytesBA
	return r
}

func udpRecord(a, b string, pkts, bytes, created uint64) RawRecord {
	r := RawRecord{IPA: a, IPB: b}
	r.Counters[ColUDPPacketsAB] = pkts
	r.Counters[ColUDPBytesAB] = bytes
	r.Counters[ColUDPCreated] = created
	return r
}
