package services

import "github.com/prometheus/client_golang/prometheus"

var (
	// turnsTotal counts conversation turns by intent and outcome.
	turnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pantry_turns_total",
			Help: "Conversation turns by intent and outcome.",
		},
		[]string{"intent", "outcome"},
	)

	// reminderRuns counts scheduler cycles by result (ok, noop, error).
	reminderRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pantry_reminder_runs_total",
			Help: "Reminder scheduler runs by result.",
		},
		[]string{"result"},
	)

	// reminderPushes counts individual push attempts by result (sent, failed).
	reminderPushes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pantry_reminder_pushes_total",
			Help: "Reminder push attempts by result.",
		},
		[]string{"result"},
	)

	// sessionsActive is the number of users currently mid-flow.
	sessionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pantry_sessions_active",
		Help: "Users with a conversation flow in progress.",
	})
)

func init() {
	prometheus.MustRegister(turnsTotal, reminderRuns, reminderPushes, sessionsActive)
}

func observeTurn(r Reply) {
	intent := string(r.Intent)
	if intent == "" {
		intent = "none"
	}
	turnsTotal.WithLabelValues(intent, r.Outcome).Inc()
}
