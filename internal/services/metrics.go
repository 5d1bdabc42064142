package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	notificationsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notifications_created_total",
		Help: "Notifications persisted by Send.",
	})

	deliveryAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_delivery_attempts_total",
		Help: "Delivery attempts by channel and outcome.",
	}, []string{"channel", "status"})

	pushDeactivations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "push_subscriptions_deactivated_total",
		Help: "Push subscriptions deactivated after the endpoint reported gone.",
	})
)
