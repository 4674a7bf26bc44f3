package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// assistantReplies counts chat replies by intent and by where the text came from.
	assistantReplies = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "greenbridge",
			Subsystem: "assistant",
			Name:      "replies_total",
			Help:      "Chat replies by intent and source (upstream or fallback)",
		},
		[]string{"intent", "source"},
	)

	// upstreamFailures counts generative backend calls that ended in fallback.
	upstreamFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "greenbridge",
			Subsystem: "assistant",
			Name:      "upstream_failures_total",
			Help:      "Generative backend calls that failed after retries",
		},
	)

	// predictions counts price predictions by data source.
	predictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "greenbridge",
			Subsystem: "pricing",
			Name:      "predictions_total",
			Help:      "Price predictions by data source (live or baseline)",
		},
		[]string{"source"},
	)

	// matchResults observes how many listings a farmer search returns.
	matchResults = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "greenbridge",
			Subsystem: "matcher",
			Name:      "results",
			Help:      "Number of matches returned per farmer search",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50},
		},
	)
)
