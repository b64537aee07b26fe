package flowip

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
)

const ipPattern = `\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}`

var (
	headerPrefix  = regexp.MustCompile(`^\d{10}`)
	headerPattern = regexp.MustCompile(`^(\d+),(\d+)$`)
	recordPattern = regexp.MustCompile(`^(` + ipPattern + `),(` + ipPattern + `)` + strings.Repeat(`,(\d+)`, NumColumns) + `$`)
)

// Interval is the group of records between two header lines.
type Interval struct {
	// Index is 1 for the interval after the first header, 0 for records that precede any header.
	Index    int
	Epoch    int64
	Declared int
	Records  []Record
}

// ParseStats summarizes one pass over a file.
type ParseStats struct {
	Intervals  int
	Records    int
	Skipped    int
	FirstEpoch int64
	LastEpoch  int64
}

// ParseIntervals streams r and calls fn once per interval. Lines that are
// neither headers nor well-formed records are dropped and only counted.
// ctx is checked between intervals.
func ParseIntervals(ctx context.Context, r io.Reader, fn func(*Interval) error) (ParseStats, error) {
	var stats ParseStats
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	current := &Interval{Declared: -1}
	seenHeader := false

	emit := func() error {
		if !seenHeader && len(current.Records) == 0 {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Intervals++
		return fn(current)
	}

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n")

		if headerPrefix.MatchString(line) {
			if err := emit(); err != nil {
				return stats, err
			}
			next := &Interval{Index: current.Index + 1, Declared: -1}
			if m := headerPattern.FindStringSubmatch(line); m != nil {
				next.Epoch, _ = strconv.ParseInt(m[1], 10, 64)
				next.Declared, _ = strconv.Atoi(m[2])
			} else {
				next.Epoch, _ = strconv.ParseInt(line[:10], 10, 64)
			}
			if !seenHeader {
				stats.FirstEpoch = next.Epoch
			}
			stats.LastEpoch = next.Epoch
			seenHeader = true
			current = next
			continue
		}

		raw, ok := parseRecord(line)
		if !ok {
			stats.Skipped++
			continue
		}
		current.Records = append(current.Records, raw.Record())
		stats.Records++
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("failed to read flow-ip-stats data: %w", err)
	}
	if err := emit(); err != nil {
		return stats, err
	}

	if stats.Skipped > 0 {
		log.Debugf("Skipped %d malformed lines.", stats.Skipped)
	}
	return stats, nil
}

func parseRecord(line string) (RawRecord, bool) {
	m := recordPattern.FindStringSubmatch(line)
	if m == nil {
		return RawRecord{}, false
	}
	raw := RawRecord{IPA: m[1], IPB: m[2]}
	for i := 0; i < NumColumns; i++ {
		v, err := strconv.ParseUint(m[i+3], 10, 64)
		if err != nil {
			return RawRecord{}, false
		}
		raw.Counters[i] = v
	}
	return raw, true
}
