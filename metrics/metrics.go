// Package metrics 提供推荐与训练的 Prometheus 指标。
//
// 所有方法对 nil *Metrics 安全，组件可以不注入指标。
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rushteam/bookrec/core"
)

const namespace = "bookrec"

// Metrics 汇总本服务暴露的指标。
type Metrics struct {
	RecommendRequests *prometheus.CounterVec
	RecommendDuration prometheus.Histogram
	TrainingRuns      *prometheus.CounterVec
	TrainingDuration  prometheus.Histogram
	ArtifactLoads     *prometheus.CounterVec
}

// New 创建指标并注册到 reg；reg 为 nil 时不注册。
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RecommendRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recommend_requests_total",
			Help:      "Recommendation requests by result (ok or error kind).",
		}, []string{"result"}),
		RecommendDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recommend_duration_seconds",
			Help:      "Recommendation latency including artifact loading.",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		}),
		TrainingRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "training_runs_total",
			Help:      "Training runs by result.",
		}, []string{"result"}),
		TrainingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "training_duration_seconds",
			Help:      "Training pipeline duration.",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),
		ArtifactLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "artifact_loads_total",
			Help:      "Artifact loads by artifact and result.",
		}, []string{"artifact", "result"}),
	}
	if reg != nil {
		reg.MustRegister(m.RecommendRequests, m.RecommendDuration, m.TrainingRuns, m.TrainingDuration, m.ArtifactLoads)
	}
	return m
}

// result 把 err 转换为 label：nil 为 ok，领域错误为其类别，其他为 error。
func result(err error) string {
	if err == nil {
		return "ok"
	}
	if kind := core.KindOf(err); kind != "" {
		return string(kind)
	}
	return "error"
}

func (m *Metrics) ObserveRecommend(start time.Time, err error) {
	if m == nil {
		return
	}
	m.RecommendRequests.WithLabelValues(result(err)).Inc()
	m.RecommendDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) ObserveTraining(start time.Time, err error) {
	if m == nil {
		return
	}
	m.TrainingRuns.WithLabelValues(result(err)).Inc()
	m.TrainingDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) ObserveArtifactLoad(artifact string, err error) {
	if m == nil {
		return
	}
	m.ArtifactLoads.WithLabelValues(artifact, result(err)).Inc()
}
