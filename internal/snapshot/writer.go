package snapshot

import (
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"FirepowerKit/internal/model"
)

const (
	reportFile  = "report.gob"
	summaryFile = "summary.json"
)

// SummaryData describes a saved report without decoding it.
type SummaryData struct {
	RunID     string `json:"run_id"`
	Generated string `json:"generated"`
	Instances int    `json:"instances"`
	Failed    int    `json:"failed"`
	HostCount int    `json:"host_count"`
}

// Writer saves finished reports so they can be rendered again later.
type Writer struct {
	rootPath string
}

// NewWriter creates a snapshot writer under rootPath.
func NewWriter(rootPath string) *Writer {
	return &Writer{rootPath: rootPath}
}

// Write stores rep in a directory named after its generation time and returns that directory.
func (w *Writer) Write(rep *model.Report) (string, error) {
	dir := filepath.Join(w.rootPath, rep.Generated.UTC().Format("20060102-150405"))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	if err := writeFile(filepath.Join(dir, reportFile), func(f *os.File) error {
		return gob.NewEncoder(f).Encode(rep)
	}); err != nil {
		return "", fmt.Errorf("failed to encode report to gob: %w", err)
	}

	summary := SummaryData{
		RunID:     rep.RunID,
		Generated: rep.Generated.UTC().Format(time.RFC3339),
		Instances: len(rep.Instances),
		HostCount: rep.HostCount,
	}
	for _, inst := range rep.Instances {
		if inst.Err != "" {
			summary.Failed++
		}
	}
	if err := writeFile(filepath.Join(dir, summaryFile), func(f *os.File) error {
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}); err != nil {
		return "", fmt.Errorf("failed to encode summary to json: %w", err)
	}
	return dir, nil
}

// Read loads the report saved in dir.
func Read(dir string) (*model.Report, error) {
	f, err := os.Open(filepath.Join(dir, reportFile))
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()

	var rep model.Report
	if err := gob.NewDecoder(f).Decode(&rep); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", dir, err)
	}
	return &rep, nil
}

func writeFile(path string, encode func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := encode(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
