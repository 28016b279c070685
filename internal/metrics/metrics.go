package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kiliankoe/swgdash/internal/game"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	Rounds = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swg_rounds_total",
			Help: "Revealed rounds by outcome",
		},
		[]string{"outcome"},
	)
	StaleTimers = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swg_stale_timers_total",
			Help: "Timer callbacks dropped because their round was superseded",
		},
		[]string{"timer"},
	)
	Sessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "swg_sessions_active",
			Help: "Sessions currently held in memory",
		},
	)
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swg_http_requests_total",
			Help: "HTTP requests by route and status",
		},
		[]string{"route", "status"},
	)
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "swg_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
)

func init() {
	prometheus.MustRegister(Rounds)
	prometheus.MustRegister(StaleTimers)
	prometheus.MustRegister(Sessions)
	prometheus.MustRegister(HTTPRequests)
	prometheus.MustRegister(HTTPDuration)
}

// Stale is passed to game.WithStaleHook.
func Stale(kind string) {
	StaleTimers.WithLabelValues(kind).Inc()
}

// Track counts revealed rounds for s.
func Track(s *game.Session) {
	s.Subscribe(func(snap game.Snapshot) {
		if snap.Event == game.EventRevealed {
			Rounds.WithLabelValues(string(snap.Outcome)).Inc()
		}
	})
}

// Watch keeps the sessions gauge and round counters current for every
// session m creates, replaces, removes or sweeps.
func Watch(m *game.Manager) {
	m.OnCreate(func(s *game.Session) {
		Track(s)
		Sessions.Set(float64(m.Len()))
	})
	m.OnRemove(func(*game.Session) {
		Sessions.Set(float64(m.Len()))
	})
}

func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		HTTPRequests.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
		HTTPDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}
