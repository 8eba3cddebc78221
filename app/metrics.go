package app

import (
	"errors"

	"github.com/calehh/democracy-app/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts governance activity of finalized blocks.
type Metrics struct {
	submissions *prometheus.CounterVec
	votes       *prometheus.CounterVec
	// Reputations counted into tallies.
	spent       prometheus.Counter
	transitions *prometheus.CounterVec
	enactments  *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		submissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "democracy",
				Name:      "proposals_submitted",
				Help:      "How many proposals were submitted, partitioned by action kind.",
			},
			[]string{"kind"},
		),
		votes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "democracy",
				Name:      "votes",
				Help:      "How many vote calls were applied, partitioned by vote.",
			},
			[]string{"vote"},
		),
		spent: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "democracy",
				Name:      "reputations_spent",
				Help:      "How many reputations were counted into tallies.",
			},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "democracy",
				Name:      "proposal_transitions",
				Help:      "How many proposal state changes occurred, partitioned by target state.",
			},
			[]string{"state"},
		),
		enactments: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "democracy",
				Name:      "enactments",
				Help:      "How many queued actions were enacted, partitioned by action kind.",
			},
			[]string{"kind"},
		),
	}
	m.submissions = registerOnce(m.submissions).(*prometheus.CounterVec)
	m.votes = registerOnce(m.votes).(*prometheus.CounterVec)
	m.spent = registerOnce(m.spent).(prometheus.Counter)
	m.transitions = registerOnce(m.transitions).(*prometheus.CounterVec)
	m.enactments = registerOnce(m.enactments).(*prometheus.CounterVec)
	return m
}

// registerOnce registers the collector on the default registry, returning the
// already registered one when an identical collector exists.
func registerOnce(collector prometheus.Collector) prometheus.Collector {
	if err := prometheus.Register(collector); err != nil {
		are := &prometheus.AlreadyRegisteredError{}
		if errors.As(err, are) {
			return are.ExistingCollector
		}
		panic(err)
	}
	return collector
}

// observe updates the counters from the events of a finalized block.
func (m *Metrics) observe(events []abcitypes.Event) {
	if m == nil {
		return
	}
	for _, event := range events {
		switch event.Type {
		case types.EventProposalSubmittedType:
			if ev := types.DecodeEventProposalSubmitted(event); ev != nil {
				m.submissions.WithLabelValues(ev.Identifier.Kind.String()).Inc()
			}
		case types.EventVotedType:
			if ev := types.DecodeEventVoted(event); ev != nil {
				m.votes.WithLabelValues(ev.Vote.String()).Inc()
				m.spent.Add(float64(ev.Spent))
			}
		case types.EventProposalStateChangedType:
			if ev := types.DecodeEventProposalStateChanged(event); ev != nil {
				m.transitions.WithLabelValues(ev.To.Kind.String()).Inc()
			}
		case types.EventProposalEnactedType:
			if ev := types.DecodeEventProposalEnacted(event); ev != nil {
				m.enactments.WithLabelValues(ev.Identifier.Kind.String()).Inc()
			}
		}
	}
}
