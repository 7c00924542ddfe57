package service

import "github.com/mehrbod2002/equitywatch/internal/models"

// Notifier delivers notifications to live sessions. Delivery is best effort.
type Notifier interface {
	Publish(n *models.Notification)
}

type nopNotifier struct{}

func (nopNotifier) Publish(*models.Notification) {}

// NopNotifier drops every notification.
func NopNotifier() Notifier { return nopNotifier{} }
