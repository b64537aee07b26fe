package flowip

import (
	"cmp"
	"slices"
)

// SelectTop orders records by key and keeps the first limit of them. Numeric
// keys sort descending, IP keys ascending. Equal keys keep input order. A limit
// of zero, or one above len(records), keeps everything.
func SelectTop(records []Record, key Field, limit int) []Record {
	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, func(a, b Record) int {
		if key.IsIP() {
			return cmp.Compare(a.IP(key), b.IP(key))
		}
		return cmp.Compare(b.Value(key), a.Value(key))
	})
	if limit > 0 && limit < len(sorted) {
		sorted = sorted[:limit]
	}
	return sorted
}

// rankPairs sorts pairs in place with the same ordering rules as SelectTop.
func rankPairs(pairs []PairStats, key Field) {
	slices.SortStableFunc(pairs, func(a, b PairStats) int {
		if key.IsIP() {
			return cmp.Compare(a.IP(key), b.IP(key))
		}
		return cmp.Compare(b.Value(key), a.Value(key))
	})
}
