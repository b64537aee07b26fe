package flowip

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
)

var statsFilePattern = regexp.MustCompile(`^flow-ip-stats-([1-9][0-9]?)\.csv$`)

// ErrNoStatsFiles is returned when a directory holds no flow-ip-stats-N.csv files.
var ErrNoStatsFiles = errors.New("no flow-ip-stats-#.csv files found")

// Source is one input file and the instance number it reports as.
type Source struct {
	Instance int
	Path     string
}

// Discover finds flow-ip-stats-N.csv files in dir. The instance numbers must
// run from 1 without gaps.
func Discover(dir string) ([]Source, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var sources []Source
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := statsFilePattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		sources = append(sources, Source{Instance: n, Path: filepath.Join(dir, e.Name())})
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoStatsFiles, dir)
	}

	sort.Slice(sources, func(i, j int) bool { return sources[i].Instance < sources[j].Instance })
	for i, s := range sources {
		if s.Instance != i+1 {
			return nil, fmt.Errorf("flow-ip-stats files must be numbered 1..%d without gaps: expected flow-ip-stats-%d.csv, found flow-ip-stats-%d.csv", len(sources), i+1, s.Instance)
		}
	}
	return sources, nil
}

// SingleSource wraps one explicitly named file as instance 1.
func SingleSource(path string) ([]Source, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	return []Source{{Instance: 1, Path: path}}, nil
}
