package writer

import (
	"FirepowerKit/internal/config"
	"FirepowerKit/internal/factory"
	"FirepowerKit/internal/model"
	"FirepowerKit/internal/snapshot"

	log "github.com/sirupsen/logrus"
)

func init() {
	factory.RegisterWriter("snapshot", func(def config.WriterDef) (model.Writer, error) {
		return NewSnapshotWriter(def.Snapshot.RootPath), nil
	})
}

// SnapshotWriter saves the report so flowip-report --render can print it again.
type SnapshotWriter struct {
	w *snapshot.Writer
}

func NewSnapshotWriter(rootPath string) *SnapshotWriter {
	if rootPath == "" {
		rootPath = "snapshots"
	}
	return &SnapshotWriter{w: snapshot.NewWriter(rootPath)}
}

func (s *SnapshotWriter) Name() string { return "snapshot" }

func (s *SnapshotWriter) Write(rep *model.Report) error {
	dir, err := s.w.Write(rep)
	if err != nil {
		return err
	}
	log.Infof("Report snapshot saved to %s", dir)
	return nil
}

func (s *SnapshotWriter) Close() error { return nil }
