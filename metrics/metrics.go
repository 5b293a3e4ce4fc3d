package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	AlertsRaised = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "safecircle_alerts_raised_total",
			Help: "Alerts accepted for dispatch, by alert type",
		},
		[]string{"type"},
	)

	AlertAudience = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "safecircle_alert_audience_size",
			Help:    "Number of notified users per alert, raiser excluded",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
	)

	DispatchFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "safecircle_dispatch_failures_total",
			Help: "Alert dispatches that failed, by stage",
		},
		[]string{"stage"},
	)

	RoomsClosed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "safecircle_rooms_closed_total",
			Help: "Emergency rooms transitioned to closed",
		},
	)

	PendingCloses = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "safecircle_room_close_timers",
			Help: "Room close timers currently scheduled",
		},
	)

	ChatMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "safecircle_chat_messages_total",
			Help: "Chat sends, by result",
		},
		[]string{"result"},
	)

	LiveConnections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "safecircle_live_connections",
			Help: "Attached websocket connections, by channel kind",
		},
		[]string{"kind"},
	)

	DroppedFrames = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "safecircle_dropped_frames_total",
			Help: "Frames dropped because a connection's send buffer was full",
		},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "safecircle_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// Middleware records request latency under the matched route template.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		httpRequestDuration.
			WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
