package snort

import (
	"cmp"
	"slices"
)

// defaultThreshold applies when only a minimum percentage is given.
const defaultThreshold = 100000

// FilterTop keeps the threshold highest entries by percentage, dropping
// those under minPct. Entries tied with the last kept one are kept too.
// With neither filter set the input is returned unchanged. The result is
// ordered by key.
func FilterTop(stats []PortStat, threshold int, minPct float64) []PortStat {
	if threshold <= 0 && minPct <= 0 {
		return sortedByKey(stats)
	}
	if threshold <= 0 {
		threshold = defaultThreshold
	}

	ranked := slices.Clone(stats)
	slices.SortStableFunc(ranked, func(a, b PortStat) int {
		return cmp.Compare(b.Pct, a.Pct)
	})

	var kept []PortStat
	for _, s := range ranked {
		if minPct > 0 && s.Pct < minPct {
			continue
		}
		if len(kept) >= threshold && s.Pct != kept[len(kept)-1].Pct {
			break
		}
		kept = append(kept, s)
	}
	return sortedByKey(kept)
}

func sortedByKey(stats []PortStat) []PortStat {
	out := slices.Clone(stats)
	slices.SortStableFunc(out, func(a, b PortStat) int { return cmp.Compare(a.Key, b.Key) })
	return out
}
