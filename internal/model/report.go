package model

import (
	"time"

	"FirepowerKit/internal/flowip"
)

// InstanceReport is the displayed part of one input file's ranking.
type InstanceReport struct {
	Instance    int
	Path        string
	CPUAffinity string
	Intervals   int
	// Pairs holds at most the pair limit of ranked pairs per enabled class.
	Pairs map[flowip.Class][]flowip.PairStats
	// Err is set when the file could not be analyzed.
	Err string
}

// Report is a finished flow-ip-stats analysis, ready for any writer.
type Report struct {
	RunID        string
	Generated    time.Time
	Options      flowip.Options
	PairLimit    int
	SummaryLimit int
	Instances    []InstanceReport
	// Hosts is the ranked summary, already cut to SummaryLimit.
	Hosts []flowip.HostTotal
	// HostCount is the number of distinct hosts before the cut.
	HostCount int
}
