package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	intentResolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aquaguard",
			Name:      "intent_resolutions_total",
			Help:      "Assistant replies by matching pass",
		},
		[]string{"outcome"},
	)

	voiceTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aquaguard",
			Name:      "voice_transitions_total",
			Help:      "Voice session state transitions by target state",
		},
		[]string{"state"},
	)

	voiceNotices = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aquaguard",
			Name:      "voice_notices_total",
			Help:      "User-visible voice notices by severity",
		},
		[]string{"severity"},
	)
)

// Register adds the collectors to reg. Registering twice with the same
// registry is a no-op.
func Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{intentResolutions, voiceTransitions, voiceNotices} {
		if err := reg.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				continue
			}
			return err
		}
	}
	return nil
}

// RecordResolution counts one assistant reply.
func RecordResolution(outcome string) {
	intentResolutions.WithLabelValues(outcome).Inc()
}

// RecordVoiceTransition counts one voice controller state change.
func RecordVoiceTransition(state string) {
	voiceTransitions.WithLabelValues(state).Inc()
}

// RecordVoiceNotice counts one notice surfaced to the user.
func RecordVoiceNotice(severity string) {
	voiceNotices.WithLabelValues(severity).Inc()
}
