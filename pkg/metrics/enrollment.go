package metrics

import "github.com/prometheus/client_golang/prometheus"

// Enrollment lifecycle events.
const (
	EventRequested       = "requested"
	EventApproved        = "approved"
	EventReverted        = "reverted"
	EventBlocked         = "blocked"
	EventUnblocked       = "unblocked"
	EventLessonCompleted = "lesson_completed"
	EventReminderSent    = "reminder_sent"
)

// EnrollmentMetrics counts enrollment transitions and access decisions.
type EnrollmentMetrics struct {
	transitions *prometheus.CounterVec
	decisions   *prometheus.CounterVec
}

func NewEnrollmentMetrics(reg prometheus.Registerer) *EnrollmentMetrics {
	if reg == nil {
		return &EnrollmentMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "academia_enrollment_transitions_total",
		Help: "Enrollment lifecycle transitions by event.",
	}, []string{"event"})
	decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "academia_access_decisions_total",
		Help: "Access evaluations by decision.",
	}, []string{"decision"})
	reg.MustRegister(transitions, decisions)
	return &EnrollmentMetrics{transitions: transitions, decisions: decisions}
}

func (m *EnrollmentMetrics) IncTransition(event string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(event)).Inc()
}

func (m *EnrollmentMetrics) IncDecision(decision string) {
	if m == nil || m.decisions == nil {
		return
	}
	m.decisions.WithLabelValues(normalizeLabel(decision)).Inc()
}
