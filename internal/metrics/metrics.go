// Package metrics exposes prometheus collectors for the chat service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// AssistantInFlight tracks prompts accepted but not yet answered.
	AssistantInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "rumorchat_assistant_inflight",
			Help: "Number of assistant prompts currently in flight.",
		},
	)

	// MessagesAppended counts chat messages recorded, synthetic notices included.
	MessagesAppended = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rumorchat_messages_appended_total",
			Help: "Total chat messages appended to room logs.",
		},
	)

	// CommentsSubmitted counts comments accepted into room forests.
	CommentsSubmitted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rumorchat_comments_submitted_total",
			Help: "Total comments submitted.",
		},
	)

	// VotesApplied counts vote toggles applied, rescissions included.
	VotesApplied = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rumorchat_votes_applied_total",
			Help: "Total vote toggles applied to comments.",
		},
	)

	// MembersEvicted counts members removed by the presence sweeper.
	MembersEvicted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rumorchat_members_evicted_total",
			Help: "Total members evicted for missed heartbeats.",
		},
	)

	// AssistantFailures counts upstream assistant calls that fell back to
	// the apology reply.
	AssistantFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rumorchat_assistant_failures_total",
			Help: "Total assistant dispatches that failed upstream.",
		},
	)
)

func init() {
	prometheus.MustRegister(AssistantInFlight)
	prometheus.MustRegister(MessagesAppended)
	prometheus.MustRegister(CommentsSubmitted)
	prometheus.MustRegister(VotesApplied)
	prometheus.MustRegister(MembersEvicted)
	prometheus.MustRegister(AssistantFailures)
}
