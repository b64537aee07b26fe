package writer

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"FirepowerKit/internal/config"
	"FirepowerKit/internal/factory"
	"FirepowerKit/internal/model"
	"FirepowerKit/internal/report"

	log "github.com/sirupsen/logrus"
)

func init() {
	factory.RegisterWriter("text", func(def config.WriterDef) (model.Writer, error) {
		return NewDirTextWriter(def.Text.RootPath), nil
	})
}

// TextWriter renders the report into a file.
type TextWriter struct {
	path     string
	rootPath string
	written  string
	file     *os.File
}

// NewTextWriter writes to an explicit file path.
func NewTextWriter(path string) *TextWriter {
	return &TextWriter{path: path}
}

// NewDirTextWriter writes a timestamped file under rootPath.
func NewDirTextWriter(rootPath string) *TextWriter {
	return &TextWriter{rootPath: rootPath}
}

func (w *TextWriter) Name() string { return "text" }

// Path returns the file the last Write produced.
func (w *TextWriter) Path() string { return w.written }

func (w *TextWriter) target(now time.Time) string {
	if w.path != "" {
		return w.path
	}
	name := fmt.Sprintf("flow_report-%s.txt", now.Format("20060102-150405"))
	return filepath.Join(w.rootPath, name)
}

// Open creates the report file ahead of Write, so a path that cannot be
// created is reported before any csv file is analyzed.
func (w *TextWriter) Open(now time.Time) error {
	f, path, err := CreateWithFallback(w.target(now), now)
	if err != nil {
		return err
	}
	w.file, w.written = f, path
	return nil
}

// Discard closes and removes the file created by Open.
func (w *TextWriter) Discard() error {
	if w.file == nil {
		return nil
	}
	w.file.Close()
	err := os.Remove(w.written)
	w.file, w.written = nil, ""
	return err
}

func (w *TextWriter) Write(rep *model.Report) error {
	f, path := w.file, w.written
	w.file = nil
	if f == nil {
		var err error
		if f, path, err = CreateWithFallback(w.target(rep.Generated), rep.Generated); err != nil {
			return err
		}
	}
	if err := report.RenderText(f, rep); err != nil {
		f.Close()
		return fmt.Errorf("failed to write report to %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close report %s: %w", path, err)
	}
	w.written = path
	log.Infof("Report file '%s' created!", path)
	return nil
}

func (w *TextWriter) Close() error { return nil }

// CreateWithFallback creates path. When that fails it tries a temporary
// report name in the working directory and then in the system temp dir.
func CreateWithFallback(path string, now time.Time) (*os.File, string, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Warnf("Could not create report directory %s: %v", dir, err)
		}
	}
	f, err := os.Create(path)
	if err == nil {
		return f, path, nil
	}
	log.Warnf("Unable to create report %s: %v", path, err)

	tmpName := fmt.Sprintf("flow_report_tmp-%d.txt", now.Unix())
	for _, candidate := range []string{tmpName, filepath.Join(os.TempDir(), tmpName)} {
		f, tmpErr := os.Create(candidate)
		if tmpErr == nil {
			log.Warnf("Writing report to %s instead", candidate)
			return f, candidate, nil
		}
		log.Warnf("Unable to create report %s: %v", candidate, tmpErr)
	}
	return nil, "", fmt.Errorf("failed to create report file %s: %w", path, err)
}
