package flowip

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Calibration constants for the pre-run estimate. They were measured on
// exports written with 1 second perfmon.
const (
	bytesPerRetainedRecord = 250
	baseMemory             = 230834176
	MaxMemory              = 11561938944
	minFileReserve         = 104857600
	sampleIntervals        = 25
	slowPerfmonSeconds     = 3

	lineCostRatio  = 0.82
	flowCostRatio  = 0.28
	secondsPerUnit = 0.0000315
)

// ErrTooMuchData means no usable limit fits in memory for this many workers.
var ErrTooMuchData = errors.New("too much data per csv file for the configured number of workers")

// FileSample describes a file from its first intervals.
type FileSample struct {
	Path               string
	Size               int64
	Sampled            int
	AvgPeriod          int64
	AvgRecords         int
	PredictedIntervals int
	EstimatedLines     float64
}

// SlowPerfmon reports whether the exporter ran with an interval above a few seconds.
func (s *FileSample) SlowPerfmon() bool {
	return s.AvgPeriod > slowPerfmonSeconds
}

// SampleFile reads up to the first 25 intervals of path and extrapolates the rest from the file size.
func SampleFile(path string) (FileSample, error) {
	sample := FileSample{Path: path}
	f, err := os.Open(path)
	if err != nil {
		return sample, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return sample, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	sample.Size = info.Size()

	var (
		count, nonEmpty, records int
		first, last              int64
		truncated                bool
	)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if !headerPrefix.MatchString(line) {
			if count > 0 {
				records++
			}
			continue
		}
		m := headerPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if count == sampleIntervals {
			truncated = true
			break
		}
		count++
		epoch, _ := strconv.ParseInt(m[1], 10, 64)
		if count == 1 {
			first = epoch
		}
		last = epoch
		if m[2] != "0" {
			nonEmpty++
		}
	}
	if err := scanner.Err(); err != nil {
		return sample, fmt.Errorf("failed to read %s: %w", path, err)
	}

	sample.Sampled = count
	if count == 0 {
		return sample, nil
	}
	sample.AvgPeriod = (last - first) / int64(count)
	sample.AvgRecords = records / count

	if !truncated {
		sample.PredictedIntervals = nonEmpty
		sample.EstimatedLines = float64(records)
		return sample, nil
	}

	bytesPerLine := 63.7
	if sample.AvgPeriod < slowPerfmonSeconds {
		bytesPerLine = 61.5
	}
	sample.EstimatedLines = float64(sample.Size) / bytesPerLine
	if sample.AvgRecords > 0 {
		sample.PredictedIntervals = int(sample.EstimatedLines / float64(sample.AvgRecords))
	}
	return sample, nil
}

// Estimate is the predicted cost of a run.
type Estimate struct {
	Samples     []FileSample
	MemoryBytes uint64
	Limit       int
	LimitCapped bool
	Runtime     time.Duration
}

// SlowPerfmonFiles lists the files not exported with 1 second perfmon.
func (e *Estimate) SlowPerfmonFiles() []string {
	var out []string
	for i := range e.Samples {
		if e.Samples[i].SlowPerfmon() {
			out = append(out, e.Samples[i].Path)
		}
	}
	return out
}

// EstimateRun predicts memory and run time for analyzing samples with the
// given limit, class count and worker count. When the prediction exceeds
// MaxMemory the limit is lowered to the largest value that fits.
func EstimateRun(samples []FileSample, limit, classes, workers int) (Estimate, error) {
	est := Estimate{Samples: samples, Limit: limit}
	if len(samples) == 0 {
		return est, nil
	}
	classes = max(classes, 1)
	workers = max(workers, 1)
	n := len(samples)

	var retained, totalSize, totalIntervals uint64
	var work float64
	for i := range samples {
		s := &samples[i]
		perInterval := limit
		if perInterval == 0 || perInterval > s.AvgRecords {
			perInterval = s.AvgRecords
		}
		retained += uint64(perInterval) * uint64(s.PredictedIntervals) * bytesPerRetainedRecord * uint64(classes)
		totalSize += uint64(s.Size)
		totalIntervals += uint64(s.PredictedIntervals)
		work += lineCostRatio*s.EstimatedLines + flowCostRatio*float64(s.PredictedIntervals*classes*perInterval)
	}

	base := uint64(baseMemory) + max(totalSize/uint64(n), minFileReserve)*uint64(workers)
	est.MemoryBytes = base + retained/uint64(n)*uint64(workers)

	if est.MemoryBytes > MaxMemory+10 {
		avgIntervals := totalIntervals / uint64(n)
		if avgIntervals == 0 || base >= MaxMemory {
			return est, ErrTooMuchData
		}
		capped := (MaxMemory - base) / uint64(workers) / avgIntervals / bytesPerRetainedRecord / uint64(classes)
		if capped < 2 {
			return est, ErrTooMuchData
		}
		est.Limit = int(capped)
		est.LimitCapped = true
		est.MemoryBytes = MaxMemory
		return est, nil
	}

	perFile := work * secondsPerUnit / float64(n)
	rounds := (n + workers - 1) / workers
	est.Runtime = time.Duration(int64(perFile)*int64(rounds)+2) * time.Second
	return est, nil
}
