package writer

import (
	"fmt"

	"FirepowerKit/internal/config"
	"FirepowerKit/internal/factory"
	"FirepowerKit/internal/model"
	"FirepowerKit/internal/notification"
	"FirepowerKit/internal/report"
)

func init() {
	factory.RegisterWriter("email", func(def config.WriterDef) (model.Writer, error) {
		return NewEmailWriter(notification.NewEmailNotifier(def.SMTP)), nil
	})
}

// EmailWriter mails the rendered report.
type EmailWriter struct {
	notifier model.Notifier
}

func NewEmailWriter(n model.Notifier) *EmailWriter {
	return &EmailWriter{notifier: n}
}

func (w *EmailWriter) Name() string { return "email" }

func (w *EmailWriter) Write(rep *model.Report) error {
	subject := fmt.Sprintf("Flow IP stats report %s", rep.Generated.Format("2006-01-02 15:04"))
	return w.notifier.Send(subject, report.Render(rep))
}

func (w *EmailWriter) Close() error { return nil }
