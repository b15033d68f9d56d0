// Package metrics expone las métricas Prometheus del gateway.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	httpInFlight prometheus.Gauge

	loginsTotal    *prometheus.CounterVec
	callbacksTotal *prometheus.CounterVec
	pipelineTotal  *prometheus.CounterVec
	exchangeFails  *prometheus.CounterVec
)

// Register inicializa las métricas y devuelve el handler para /metrics.
// Idempotente: llamadas posteriores devuelven el mismo handler.
func Register(reg prometheus.Registerer) http.Handler {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	once.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Número total de requests procesadas",
		}, []string{"method", "path", "status"})

		httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duración de los requests HTTP",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"})

		loginsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_logins_total",
			Help: "Fase 1 del login por provider y resultado",
		}, []string{"provider", "outcome"})

		callbacksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_callbacks_total",
			Help: "Fase 2 del login por provider y resultado",
		}, []string{"provider", "outcome"})

		pipelineTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_pipeline_results_total",
			Help: "Veredictos del pipeline de validación",
		}, []string{"outcome"})

		httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Requests en vuelo",
		})

		exchangeFails = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_token_exchange_failures_total",
			Help: "Intercambios code→token rechazados por el IdP",
		}, []string{"provider", "status"})

		reg.MustRegister(httpRequestsTotal, httpRequestDuration, httpInFlight,
			loginsTotal, callbacksTotal, pipelineTotal, exchangeFails)
	})
	return promhttp.Handler()
}

// ObserveRequest registra un request HTTP terminado.
func ObserveRequest(method, path string, status int, dur time.Duration) {
	if httpRequestsTotal == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(dur.Seconds())
}

// RequestStarted/RequestDone acotan el gauge de requests en vuelo.
func RequestStarted() {
	if httpInFlight != nil {
		httpInFlight.Inc()
	}
}

func RequestDone() {
	if httpInFlight != nil {
		httpInFlight.Dec()
	}
}

// RecordExchangeFailure cuenta un intercambio rechazado por el IdP.
func RecordExchangeFailure(provider string, status int) {
	if exchangeFails != nil {
		exchangeFails.WithLabelValues(provider, strconv.Itoa(status)).Inc()
	}
}

// RecordLogin cuenta una fase 1 terminada. outcome: "redirected" | "error".
func RecordLogin(provider, outcome string) {
	if loginsTotal != nil {
		loginsTotal.WithLabelValues(provider, outcome).Inc()
	}
}

// RecordCallback cuenta una fase 2 terminada. outcome: "success" | "rejected" | "error".
func RecordCallback(provider, outcome string) {
	if callbacksTotal != nil {
		callbacksTotal.WithLabelValues(provider, outcome).Inc()
	}
}

// RecordPipeline cuenta un veredicto del pipeline. outcome: "authenticated" | "redirect".
func RecordPipeline(outcome string) {
	if pipelineTotal != nil {
		pipelineTotal.WithLabelValues(outcome).Inc()
	}
}
