package flowip

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
)

// Accumulator sums the per-interval selections of one file by IP pair.
type Accumulator struct {
	opts  Options
	index [numClasses]map[string]int
	pairs [numClasses][]PairStats
}

// NewAccumulator returns an empty accumulator for opts.
func NewAccumulator(opts Options) *Accumulator {
	a := &Accumulator{opts: opts}
	for _, c := range AllClasses {
		a.index[c] = make(map[string]int)
	}
	return a
}

// AddInterval selects the interval's top records per enabled class and folds them in.
func (a *Accumulator) AddInterval(iv *Interval) {
	for _, c := range a.opts.EnabledClasses() {
		for _, rec := range SelectTop(iv.Records, a.opts.Key(c), a.opts.Limit) {
			a.add(c, rec.Pair(c))
		}
	}
}

func (a *Accumulator) add(c Class, p PairStats) {
	key := p.Key()
	if i, ok := a.index[c][key]; ok {
		a.pairs[c][i].add(p)
		return
	}
	a.index[c][key] = len(a.pairs[c])
	a.pairs[c] = append(a.pairs[c], p)
}

// Ranked returns the summed pairs of class c ordered by the class key. Pairs
// with equal keys stay in first-seen order.
func (a *Accumulator) Ranked(c Class) []PairStats {
	if !a.opts.Enabled(c) {
		return nil
	}
	out := slices.Clone(a.pairs[c])
	rankPairs(out, a.opts.Key(c))
	return out
}

// FileResult is the ranked outcome of one flow-ip-stats file.
type FileResult struct {
	Instance int
	Path     string
	Stats    ParseStats
	Ranked   [numClasses][]PairStats
}

// Pairs returns the ranked pairs of class c.
func (r *FileResult) Pairs(c Class) []PairStats {
	return r.Ranked[c]
}

// Analyze reads one file's worth of intervals from src.
func Analyze(ctx context.Context, src io.Reader, opts Options) (*FileResult, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	acc := NewAccumulator(opts)
	stats, err := ParseIntervals(ctx, src, func(iv *Interval) error {
		acc.AddInterval(iv)
		return nil
	})
	if err != nil {
		return nil, err
	}

	res := &FileResult{Stats: stats}
	for _, c := range opts.EnabledClasses() {
		res.Ranked[c] = acc.Ranked(c)
	}
	return res, nil
}

// AnalyzeFile opens path and analyzes it as the given instance.
func AnalyzeFile(ctx context.Context, path string, instance int, opts Options) (*FileResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	res, err := Analyze(ctx, f, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to analyze %s: %w", path, err)
	}
	res.Instance = instance
	res.Path = path
	return res, nil
}
