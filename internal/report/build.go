// Package report turns per-file rankings into the flow-ip-stats report.
package report

import (
	"sort"
	"time"

	"FirepowerKit/internal/deinfo"
	"FirepowerKit/internal/engine/manager"
	"FirepowerKit/internal/flowip"
	"FirepowerKit/internal/model"
	"FirepowerKit/internal/netmap"
)

// Settings controls what the report shows.
type Settings struct {
	RunID        string
	Options      flowip.Options
	PairLimit    int
	SummaryLimit int
	// DE supplies CPU affinity labels; nil means no directory was given.
	DE *deinfo.Info
	// Labels tags summary hosts with network names; nil disables tagging.
	Labels *netmap.Labeler
	Now    time.Time
}

// Build assembles a report from the manager results. Only the first
// PairLimit pairs of each class are shown per instance, and only those rows
// feed the host summary.
func Build(results []manager.Result, s Settings) *model.Report {
	if s.Now.IsZero() {
		s.Now = time.Now()
	}
	rep := &model.Report{
		RunID:        s.RunID,
		Generated:    s.Now,
		Options:      s.Options,
		PairLimit:    s.PairLimit,
		SummaryLimit: s.SummaryLimit,
	}

	ordered := make([]manager.Result, 0, len(results))
	for _, r := range results {
		if r.Source.Instance == 0 {
			continue
		}
		ordered = append(ordered, r)
	}
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Source.Instance < ordered[j].Source.Instance })

	summary := flowip.NewSummary()
	for _, r := range ordered {
		inst := model.InstanceReport{
			Instance:    r.Source.Instance,
			Path:        r.Source.Path,
			CPUAffinity: s.DE.Label(r.Source.Instance),
			Pairs:       make(map[flowip.Class][]flowip.PairStats),
		}
		if r.Err != nil || r.File == nil {
			if r.Err != nil {
				inst.Err = r.Err.Error()
			} else {
				inst.Err = "not analyzed"
			}
			rep.Instances = append(rep.Instances, inst)
			continue
		}

		inst.Intervals = r.File.Stats.Intervals
		for _, c := range s.Options.EnabledClasses() {
			shown := r.File.Pairs(c)
			if s.PairLimit > 0 && len(shown) > s.PairLimit {
				shown = shown[:s.PairLimit]
			}
			inst.Pairs[c] = shown
			for _, p := range shown {
				summary.AddPair(c, p)
			}
		}
		rep.Instances = append(rep.Instances, inst)
	}

	rep.HostCount = summary.Len()
	rep.Hosts = summary.Top(s.SummaryLimit)
	for i := range rep.Hosts {
		rep.Hosts[i].Label = s.Labels.Label(rep.Hosts[i].Host)
	}
	return rep
}
