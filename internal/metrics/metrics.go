package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BookingAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "supplybot_booking_attempts_total",
		Help: "Total number of booking attempts committed to the portal.",
	})

	BookingsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "supplybot_bookings_total",
		Help: "Total number of supplies booked successfully.",
	})

	TasksFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "supplybot_tasks_failed_total",
		Help: "Total number of supply tasks that ended in a terminal failure.",
	},
		[]string{"reason"},
	)

	PopupsDismissedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "supplybot_popups_dismissed_total",
		Help: "Total number of interstitial popups dismissed.",
	},
		[]string{"popup"},
	)

	AuthFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "supplybot_auth_failures_total",
		Help: "Total number of failed session authentication checks.",
	})

	IdentityMismatchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "supplybot_identity_mismatches_total",
		Help: "Total number of identity-guard mismatches that deactivated an account.",
	})
)
