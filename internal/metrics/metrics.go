package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "shop"

var (
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "http_requests_total",
		Help: "HTTP requests by method, route template and status code.",
	}, []string{"method", "route", "status"})

	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Name: "http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	OrdersCreated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "orders_created_total",
		Help: "Orders committed, by source (cart|direct).",
	}, []string{"source"})

	StockRejections = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "stock_rejections_total",
		Help: "Order attempts rejected for insufficient stock.",
	})

	PaymentsApplied = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "payments_applied_total",
		Help: "Payment webhooks applied, by payment status and outcome (recorded|replayed|terminal).",
	}, []string{"status", "outcome"})

	EventsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "events_published_total",
		Help: "Domain events handed to the producer, by topic and result (queued|dropped|error).",
	}, []string{"topic", "result"})

	EventsConsumed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "events_consumed_total",
		Help: "Events handled by the projector, by type and result (applied|duplicate|error).",
	}, []string{"type", "result"})
)

func init() {
	prometheus.MustRegister(
		HTTPRequests, HTTPDuration,
		OrdersCreated, StockRejections, PaymentsApplied,
		EventsPublished, EventsConsumed,
	)
}
