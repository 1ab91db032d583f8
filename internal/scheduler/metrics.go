package scheduler

import "github.com/prometheus/client_golang/prometheus"

type metrics struct {
	notificationsSent   *prometheus.CounterVec
	checkFailures       *prometheus.CounterVec
	completedByReaction prometheus.Counter
	messagesDeleted     prometheus.Counter
	remindersArchived   prometheus.Counter
}

// newMetrics registers the scheduler counters on reg. A nil reg leaves
// them unregistered.
func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		notificationsSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dash_notifications_sent_total",
				Help: "Notifications posted to the chat channel",
			},
			[]string{"kind"},
		),
		checkFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dash_check_failures_total",
				Help: "Scheduler routines that returned an error",
			},
			[]string{"check"},
		),
		completedByReaction: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dash_tasks_completed_by_reaction_total",
			Help: "Tasks completed through a chat reaction",
		}),
		messagesDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dash_messages_deleted_total",
			Help: "Notification messages removed after completion",
		}),
		remindersArchived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dash_reminders_archived_total",
			Help: "Reminders archived after their date passed",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.notificationsSent,
			m.checkFailures,
			m.completedByReaction,
			m.messagesDeleted,
			m.remindersArchived,
		)
	}
	return m
}
