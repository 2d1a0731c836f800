package web

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// webMetrics holds the collectors of one server. Each server owns its
// registry so several servers can live in one process.
type webMetrics struct {
	registry    *prometheus.Registry
	requests    *prometheus.CounterVec
	saved       prometheus.Counter
	storeErrors prometheus.Counter
}

func newWebMetrics() *webMetrics {
	m := &webMetrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "msgboard",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		saved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "msgboard",
			Name:      "messages_saved_total",
			Help:      "Messages appended to the store.",
		}),
		storeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "msgboard",
			Name:      "store_errors_total",
			Help:      "Failed writes to the message store.",
		}),
	}
	m.registry.MustRegister(
		m.requests,
		m.saved,
		m.storeErrors,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// middleware counts every request once it has been handled
func (m *webMetrics) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		m.requests.WithLabelValues(routeOf(c), strconv.Itoa(c.Writer.Status())).Inc()
	}
}

// handler exposes the registry in the prometheus text format
func (m *webMetrics) handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}
