// Package snort reads Snort profiling output from syslog files and flags
// expensive rules.
package snort

import "time"

// RuleProfile is one row of the rule profile statistics table.
type RuleProfile struct {
	Num         int
	SID         uint32
	GID         uint32
	Rev         uint32
	Checks      uint64
	Matches     uint64
	Alerts      uint64
	Microsecs   uint64
	AvgCheck    float64
	AvgMatch    float64
	AvgNonmatch float64
	Disabled    uint64
}

// PreprocProfile is one row of the preprocessor profile statistics table.
type PreprocProfile struct {
	Name      string
	Layer     int
	Checks    uint64
	Exits     uint64
	Microsecs uint64
	AvgCheck  float64
	PctCaller float64
	PctTotal  float64
}

// PortStat is one flow port statistic. Raw keeps the percentage as logged.
type PortStat struct {
	Key int
	Pct float64
	Raw string
}

// FlowPorts holds the flow statistics sections.
type FlowPorts struct {
	TCP   []PortStat
	UDP   []PortStat
	ICMP  []PortStat
	Bytes []PortStat
}

func (f *FlowPorts) empty() bool {
	return len(f.TCP) == 0 && len(f.UDP) == 0 && len(f.ICMP) == 0 && len(f.Bytes) == 0
}

// Process is everything logged by one Snort PID.
type Process struct {
	PID int
	// Start is the syslog timestamp of the first line, as logged.
	Start      string
	StartTime  time.Time
	ConfigFile string
	DEUUID     string

	Rules    []RuleProfile
	Preprocs []PreprocProfile

	TotalPackets    uint64
	HasTotalPackets bool

	Flow FlowPorts
}

// TotalPreprocMicrosecs returns the microseconds of the preprocessor "total" row.
func (p *Process) TotalPreprocMicrosecs() (uint64, bool) {
	for _, pp := range p.Preprocs {
		if pp.Name == "total" {
			return pp.Microsecs, true
		}
	}
	return 0, false
}
