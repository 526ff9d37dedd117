package metrics

import (
	"context"
	"net/http"

	"github.com/Alias1177/SmartMoney/internal/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder exports analysis results as Prometheus metrics.
type Recorder struct {
	gatherer prometheus.Gatherer

	resultsTotal         *prometheus.CounterVec
	stepsTotal           *prometheus.CounterVec
	signalsTotal         *prometheus.CounterVec
	liquidityPools       *prometheus.GaugeVec
	orderFlowConfidence  *prometheus.GaugeVec
	manipulationEvidence *prometheus.GaugeVec
	lastPrice            *prometheus.GaugeVec
	latency              *prometheus.HistogramVec
}

// New registers the metrics on a fresh registry.
func New() *Recorder {
	return NewWithRegistry(prometheus.NewRegistry())
}

// NewWithRegistry registers the metrics on reg.
func NewWithRegistry(reg *prometheus.Registry) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		gatherer: reg,
		resultsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "smartmoney_results_total",
				Help: "Total number of analysis results by overall status",
			},
			[]string{"symbol", "status"},
		),
		stepsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "smartmoney_steps_total",
				Help: "Analysis steps by outcome",
			},
			[]string{"step", "status"},
		),
		signalsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "smartmoney_signals_total",
				Help: "Total number of signals emitted",
			},
			[]string{"symbol", "type", "direction"},
		),
		liquidityPools: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "smartmoney_liquidity_pools",
				Help: "Liquidity pools in the latest result",
			},
			[]string{"symbol"},
		),
		orderFlowConfidence: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "smartmoney_order_flow_confidence",
				Help: "Order flow confidence of the latest result, 0 when none was classified",
			},
			[]string{"symbol"},
		),
		manipulationEvidence: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "smartmoney_manipulation_evidence",
				Help: "Market maker manipulation evidence of the latest result",
			},
			[]string{"symbol"},
		),
		lastPrice: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "smartmoney_last_price",
				Help: "Last analysed price for a symbol",
			},
			[]string{"symbol"},
		),
		latency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "smartmoney_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// Record updates the metrics from one result. It never fails.
func (r *Recorder) Record(_ context.Context, res *model.AnalysisResult) error {
	r.resultsTotal.WithLabelValues(res.Symbol, string(res.Status)).Inc()
	for step, report := range res.DataSufficiency {
		r.stepsTotal.WithLabelValues(string(step), string(report.Status)).Inc()
	}
	for _, s := range res.Signals {
		r.signalsTotal.WithLabelValues(res.Symbol, string(s.Type), string(s.Direction)).Inc()
	}

	r.liquidityPools.WithLabelValues(res.Symbol).Set(float64(len(res.LiquidityPools)))

	var confidence float64
	if res.OrderFlow != nil {
		confidence = res.OrderFlow.Confidence
	}
	r.orderFlowConfidence.WithLabelValues(res.Symbol).Set(confidence)

	var evidence float64
	if res.MarketMakerBehavior != nil {
		evidence = res.MarketMakerBehavior.ManipulationEvidence
	}
	r.manipulationEvidence.WithLabelValues(res.Symbol).Set(evidence)

	if res.CurrentPrice > 0 {
		r.lastPrice.WithLabelValues(res.Symbol).Set(res.CurrentPrice)
	}
	return nil
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}
