// Package metrics はプロセス全体の Prometheus メトリクスを定義します。
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal はHTTPリクエスト数 (メソッド・ルート・ステータス別) です。
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "geminify_http_requests_total",
		Help: "Total HTTP requests processed.",
	}, []string{"method", "route", "status"})

	// RewritesTotal は書き換えの結果をホストと結果種別ごとに数えます。
	RewritesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "geminify_rewrites_total",
		Help: "Rewrite invocations by host and outcome.",
	}, []string{"host", "outcome"})

	RewriteDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "geminify_rewrite_duration_seconds",
		Help:    "Wall-clock time of a rewrite invocation.",
		Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 45, 60},
	}, []string{"model"})

	// GenerationAttempts は1回の書き換えで使われた試行回数の分布です。
	GenerationAttempts = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "geminify_generation_attempts",
		Help:    "Provider attempts used per rewrite.",
		Buckets: []float64{1, 2, 3, 4, 5},
	})

	InputChars = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "geminify_input_chars",
		Help:    "Number of characters in rewrite input text.",
		Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 20000},
	})

	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "geminify_cache_lookups_total",
		Help: "Result cache lookups by outcome.",
	}, []string{"result"})

	// InFlight は処理中の書き換え数です。単一実行ガードにより0か1です。
	InFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "geminify_rewrites_in_flight",
		Help: "Rewrites currently requesting the provider.",
	})

	PreviewsPending = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "geminify_previews_pending",
		Help: "Previews awaiting accept or reject.",
	})
)
