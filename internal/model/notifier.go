package model

// Notifier delivers a rendered report out of band, for example by mail.
type Notifier interface {
	Send(subject, body string) error
}
