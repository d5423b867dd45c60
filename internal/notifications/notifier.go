package notifications

import (
	"github.com/containrrr/shoutrrr/pkg/router"
	"github.com/containrrr/shoutrrr/pkg/types"
	"github.com/sirupsen/logrus"
)

// Notifier handles sending notifications via Shoutrrr.
type Notifier struct {
	sr *router.ServiceRouter
}

// NewNotifier initializes a new Notifier with the provided Shoutrrr URLs.
func NewNotifier(urls []string) (*Notifier, error) {
	sr, err := router.New(nil, urls...)
	if err != nil {
		return nil, err
	}
	return &Notifier{sr: sr}, nil
}

// Send sends a notification message to all configured services. Failures are
// logged only.
func (n *Notifier) Send(title, message string) {
	params := types.Params{
		"title": title,
	}
	failed := 0
	for _, err := range n.sr.Send(message, &params) {
		if err != nil {
			failed++
			logrus.WithError(err).Error("Failed to send notification")
		}
	}
	if failed == 0 {
		logrus.WithField("title", title).Info("Notification sent successfully")
	}
}
