// Package deinfo reads CPU affinity of Snort instances from a detection engine
// directory inside a troubleshooting bundle.
package deinfo

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
)

// NotDefined is shown for every instance when no directory was given.
const NotDefined = "CPU Affinity: de dir was not defined!"

// pmtoolRelPath is where pmtool output sits relative to a detection engine directory.
var pmtoolRelPath = filepath.Join("..", "..", "..", "..", "..", "command-outputs", "usr-local-sf-bin-pmtool status.output")

var (
	instanceDirPattern = regexp.MustCompile(`^instance-[1-9][0-9]?$`)
	affinityPattern    = regexp.MustCompile(`^(CPU Affinity:?\s*\S+)`)
)

// Info is what was learned from a detection engine directory.
type Info struct {
	Dir       string
	UUID      string
	Instances int
	// Affinity maps instance number to its "CPU Affinity: ..." label.
	Affinity map[int]string
}

// Label returns the affinity line for instance, or a placeholder.
func (i *Info) Label(instance int) string {
	if i == nil {
		return NotDefined
	}
	if a, ok := i.Affinity[instance]; ok {
		return a
	}
	return fmt.Sprintf("CPU Affinity: unknown for instance-%d", instance)
}

// Load inspects dir. A missing pmtool output only produces a warning.
func Load(dir string) (*Info, error) {
	dir = strings.TrimRight(dir, string(filepath.Separator))
	st, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to stat de directory: %w", err)
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	info := &Info{Dir: dir, UUID: filepath.Base(dir), Affinity: map[int]string{}}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read de directory: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() && instanceDirPattern.MatchString(e.Name()) {
			info.Instances++
		}
	}

	f, err := os.Open(filepath.Join(dir, pmtoolRelPath))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Warnf("No pmtool status output found for %s, CPU affinity will be unknown.", info.UUID)
			return info, nil
		}
		return nil, fmt.Errorf("failed to open pmtool output: %w", err)
	}
	defer f.Close()

	affinity, err := ParsePmtool(f, info.UUID)
	if err != nil {
		return nil, err
	}
	info.Affinity = affinity
	return info, nil
}

// ParsePmtool extracts per-instance CPU affinity for the engine uuid from
// "pmtool status" output. An instance line starts with the uuid followed by a
// separator and the instance number; the affinity is on the next matching line.
func ParsePmtool(r io.Reader, uuid string) (map[int]string, error) {
	out := make(map[int]string)
	scanner := bufio.NewScanner(r)
	pending := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.Contains(line, "detection_engine") || strings.Contains(line, "react") || strings.Contains(line, "alert") {
			continue
		}
		if strings.HasPrefix(line, uuid) && len(line) > len(uuid)+1 {
			pending = leadingNumber(line[len(uuid)+1:])
			continue
		}
		if pending > 0 {
			if m := affinityPattern.FindStringSubmatch(line); m != nil {
				out[pending] = m[1]
				pending = 0
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read pmtool output: %w", err)
	}
	return out, nil
}

func leadingNumber(s string) int {
	end := 0
	for end < len(s) && end < 2 && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, _ := strconv.Atoi(s[:end])
	return n
}
