package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	billsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cheq_bills_created_total",
		Help: "Number of bills created.",
	})
	claimsGranted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cheq_claims_granted_total",
		Help: "Number of item claims granted.",
	})
	claimsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cheq_claims_rejected_total",
		Help: "Number of item claims rejected as already claimed.",
	})
	scanIngests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cheq_scan_ingests_total",
		Help: "Number of receipt scans ingested.",
	})
	sseSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cheq_sse_subscribers",
		Help: "Currently connected delta stream subscribers.",
	})
)
