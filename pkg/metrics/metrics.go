package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/better-rail/server/pkg/logger"
)

var registry = prometheus.NewRegistry()

var (
	ActiveSchedulers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ride_active_schedulers",
		Help: "Number of live ride schedulers.",
	})

	RidesStarted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ride_started_total",
		Help: "Rides accepted and scheduled.",
	})
	RidesRecovered = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ride_recovered_total",
		Help: "Rides rescheduled from the store at boot.",
	})
	RidesEnded = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ride_ended_total",
		Help: "Rides stopped, either finished or cancelled.",
	})

	NotificationsSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ride_notifications_sent_total",
		Help: "Notifications dispatched successfully.",
	}, []string{"provider"})
	NotificationsFailed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ride_notifications_failed_total",
		Help: "Notifications that failed to dispatch.",
	}, []string{"provider"})

	RailRequests = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rail_api_requests_total",
		Help: "Requests issued to the rail API.",
	})
	RailErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rail_api_errors_total",
		Help: "Failed rail API requests.",
	})

	DispatchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "ride_dispatch_duration_seconds",
		Help:    "Time spent sending one notification.",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	registry.MustRegister(
		ActiveSchedulers,
		RidesStarted,
		RidesRecovered,
		RidesEnded,
		NotificationsSent,
		NotificationsFailed,
		RailRequests,
		RailErrors,
		DispatchDuration,
	)
}

// Serve 在独立端口上暴露 /metrics，不走业务路由。
func Serve(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Logger.Error("Metrics server stopped", zap.Error(err))
		}
	}()

	logger.Logger.Info("Metrics server listening", zap.String("addr", addr))
}
