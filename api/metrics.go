package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var requestCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "pdns_facade",
	Subsystem: "http",
	Name:      "request_count_total",
	Help:      "Counter of HTTP requests by method and status.",
}, []string{"method", "status"})

var upstreamErrorCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "pdns_facade",
	Subsystem: "upstream",
	Name:      "error_count_total",
	Help:      "Counter of failed requests by error kind.",
}, []string{"kind"})
