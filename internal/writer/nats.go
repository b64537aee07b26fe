package writer

import (
	"FirepowerKit/internal/config"
	"FirepowerKit/internal/factory"
	"FirepowerKit/internal/model"
	"FirepowerKit/internal/publish"
)

func init() {
	factory.RegisterWriter("nats", func(def config.WriterDef) (model.Writer, error) {
		p, err := publish.NewPublisher(def.NATS)
		if err != nil {
			return nil, err
		}
		return &NATSWriter{publisher: p}, nil
	})
}

// NATSWriter publishes the report summary for subscribers such as report-tail.
type NATSWriter struct {
	publisher *publish.Publisher
}

func (w *NATSWriter) Name() string { return "nats" }

func (w *NATSWriter) Write(rep *model.Report) error {
	return w.publisher.PublishReport(rep)
}

func (w *NATSWriter) Close() error {
	return w.publisher.Close()
}
