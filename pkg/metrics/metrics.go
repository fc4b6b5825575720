package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/frotalog/registro/internal/common/config"
)

type Metrics struct {
	registry    *prometheus.Registry
	namespace   string
	httpReqCnt  *prometheus.CounterVec
	httpDur     *prometheus.HistogramVec
	httpInfl    *prometheus.GaugeVec
	pullCnt     *prometheus.CounterVec
	pushCnt     *prometheus.CounterVec
	pushRows    *prometheus.CounterVec
	rejectedCnt prometheus.Counter
}

func New(cfg config.MetricsConfig) *Metrics {
	ns := cfg.Namespace
	r := prometheus.NewRegistry()
	// Register standard process and Go collectors
	r.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	r.MustRegister(collectors.NewGoCollector())

	// Register basic HTTP metrics
	httpReqCnt := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "http_requests_total"}, []string{"method", "route", "status"})
	httpDur := prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: ns, Name: "http_request_duration_seconds", Buckets: cfg.Buckets}, []string{"method", "route", "status"})
	httpInfl := prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: ns, Name: "http_requests_inflight"}, []string{"route"})
	r.MustRegister(httpReqCnt, httpDur, httpInfl)

	// Register sync protocol metrics
	pullCnt := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "sync_pull_total"}, []string{"full_resync"})
	pushCnt := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "sync_push_total"}, []string{"outcome"})
	pushRows := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "sync_push_rows_total"}, []string{"table", "bucket"})
	rejectedCnt := prometheus.NewCounter(prometheus.CounterOpts{Namespace: ns, Name: "sync_rejected_rows_total"})
	r.MustRegister(pullCnt, pushCnt, pushRows, rejectedCnt)

	return &Metrics{
		registry:    r,
		namespace:   ns,
		httpReqCnt:  httpReqCnt,
		httpDur:     httpDur,
		httpInfl:    httpInfl,
		pullCnt:     pullCnt,
		pushCnt:     pushCnt,
		pushRows:    pushRows,
		rejectedCnt: rejectedCnt,
	}
}

func (m *Metrics) PullDone(fullResync bool) {
	m.pullCnt.WithLabelValues(strconv.FormatBool(fullResync)).Inc()
}

func (m *Metrics) PushDone(outcome string, rejected int) {
	m.pushCnt.WithLabelValues(outcome).Inc()
	m.rejectedCnt.Add(float64(rejected))
}

func (m *Metrics) PushRows(table, bucket string, n int) {
	m.pushRows.WithLabelValues(table, bucket).Add(float64(n))
}

func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		m.httpInfl.WithLabelValues(route).Inc()
		start := time.Now()
		c.Next()
		status := strconv.Itoa(c.Writer.Status())
		m.httpReqCnt.WithLabelValues(c.Request.Method, route, status).Inc()
		m.httpDur.WithLabelValues(c.Request.Method, route, status).Observe(time.Since(start).Seconds())
		m.httpInfl.WithLabelValues(route).Dec()
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
