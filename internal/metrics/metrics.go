package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the trading bot.
type Metrics struct {
	TicksTotal       prometheus.Counter
	TradesTotal      prometheus.Counter
	KlinesTotal      prometheus.Counter
	StreamFallbacks  prometheus.Counter
	PollsTotal       *prometheus.CounterVec // labels: kind
	PollErrorsTotal  *prometheus.CounterVec // labels: kind
	DroppedFrames    prometheus.Counter
	StreamMode       prometheus.Gauge // 0=disconnected, 1=streaming, 2=polling
	ActiveChannels   prometheus.Gauge

	AnalysisDur     prometheus.Histogram
	DecisionsTotal  *prometheus.CounterVec // labels: action
	DecisionConf    prometheus.Gauge
	WindowLen       prometheus.Gauge

	OrdersTotal     *prometheus.CounterVec // labels: side, mode
	OrderErrors     prometheus.Counter

	RedisWriteDur   prometheus.Histogram
	SQLiteCommitDur prometheus.Histogram
}

// NewMetrics registers and returns all Prometheus metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		TicksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mexcbot_ticks_total",
			Help: "Total ticker updates received (stream or polling)",
		}),
		TradesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mexcbot_trades_total",
			Help: "Total trade executions received",
		}),
		KlinesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mexcbot_klines_total",
			Help: "Total closed klines received",
		}),
		StreamFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mexcbot_stream_fallbacks_total",
			Help: "Times the stream client dropped from live to polling",
		}),
		PollsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mexcbot_polls_total",
			Help: "Fallback REST polls issued (by kind)",
		}, []string{"kind"}),
		PollErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mexcbot_poll_errors_total",
			Help: "Fallback REST polls that failed (by kind)",
		}, []string{"kind"}),
		DroppedFrames: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mexcbot_dropped_frames_total",
			Help: "Stream frames dropped as unrecognized",
		}),
		StreamMode: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mexcbot_stream_mode",
			Help: "Stream client mode (0=disconnected, 1=streaming, 2=polling)",
		}),
		ActiveChannels: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mexcbot_active_channels",
			Help: "Currently subscribed channel count",
		}),

		AnalysisDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mexcbot_analysis_duration_seconds",
			Help:    "Full analysis cycle latency (indicators + patterns + decision)",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),
		DecisionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mexcbot_decisions_total",
			Help: "Decisions produced (by action)",
		}, []string{"action"}),
		DecisionConf: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mexcbot_decision_confidence",
			Help: "Confidence of the most recent decision",
		}),
		WindowLen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mexcbot_window_candles",
			Help: "Current candle window length",
		}),

		OrdersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mexcbot_orders_total",
			Help: "Orders placed (by side and live/paper mode)",
		}, []string{"side", "mode"}),
		OrderErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mexcbot_order_errors_total",
			Help: "Order placements that failed",
		}),

		RedisWriteDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mexcbot_redis_write_duration_seconds",
			Help:    "Redis write latency",
			Buckets: prometheus.DefBuckets,
		}),
		SQLiteCommitDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mexcbot_sqlite_commit_duration_seconds",
			Help:    "SQLite batch commit latency",
			Buckets: prometheus.DefBuckets,
		}),
	}

	prometheus.MustRegister(
		m.TicksTotal,
		m.TradesTotal,
		m.KlinesTotal,
		m.StreamFallbacks,
		m.PollsTotal,
		m.PollErrorsTotal,
		m.DroppedFrames,
		m.StreamMode,
		m.ActiveChannels,
		m.AnalysisDur,
		m.DecisionsTotal,
		m.DecisionConf,
		m.WindowLen,
		m.OrdersTotal,
		m.OrderErrors,
		m.RedisWriteDur,
		m.SQLiteCommitDur,
	)

	return m
}

// HealthStatus represents the system health.
type HealthStatus struct {
	mu sync.RWMutex

	StreamMode     string    `json:"stream_mode"`
	LastTickTime   time.Time `json:"last_tick_time"`
	RedisConnected bool      `json:"redis_connected"`
	SQLiteOK       bool      `json:"sqlite_ok"`
	LastAnalysisAt time.Time `json:"last_analysis_at"`
	LastAction     string    `json:"last_action"`

	// Liveness probe results
	RedisLatencyMs  float64   `json:"redis_latency_ms"`
	SQLiteLatencyMs float64   `json:"sqlite_latency_ms"`
	LastCheckAt     time.Time `json:"last_check_at"`
	StartedAt       time.Time `json:"started_at"`
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{
		StartedAt:  time.Now(),
		StreamMode: "disconnected",
	}
}

func (h *HealthStatus) SetStreamMode(mode string) {
	h.mu.Lock()
	h.StreamMode = mode
	h.mu.Unlock()
}

func (h *HealthStatus) SetLastTickTime(t time.Time) {
	h.mu.Lock()
	h.LastTickTime = t
	h.mu.Unlock()
}

func (h *HealthStatus) SetRedisConnected(v bool) {
	h.mu.Lock()
	h.RedisConnected = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetSQLiteOK(v bool) {
	h.mu.Lock()
	h.SQLiteOK = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetLastAnalysis(t time.Time, action string) {
	h.mu.Lock()
	h.LastAnalysisAt = t
	h.LastAction = action
	h.mu.Unlock()
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckSQLite runs a trivial query and records latency + health.
func (h *HealthStatus) CheckSQLite(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.SQLiteOK = err == nil
	h.SQLiteLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker runs periodic dependency checks.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, sqlDB *sql.DB, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				if rdb != nil {
					h.CheckRedis(probeCtx, rdb)
				}
				if sqlDB != nil {
					h.CheckSQLite(probeCtx, sqlDB)
				}
				cancel()
			}
		}
	}()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	// Polling mode is degraded but functional; only losing both stores
	// makes the bot unhealthy.
	overallStatus := "healthy"
	httpCode := http.StatusOK

	if h.StreamMode != "streaming" || !h.RedisConnected || !h.SQLiteOK {
		overallStatus = "degraded"
		httpCode = http.StatusServiceUnavailable
	}
	if !h.RedisConnected && !h.SQLiteOK {
		overallStatus = "unhealthy"
	}

	// Tick age
	tickAge := ""
	if !h.LastTickTime.IsZero() {
		tickAge = time.Since(h.LastTickTime).Round(time.Millisecond).String()
	}

	status := struct {
		Status          string  `json:"status"`
		Uptime          string  `json:"uptime"`
		StreamMode      string  `json:"stream_mode"`
		LastTickTime    string  `json:"last_tick_time"`
		TickAge         string  `json:"tick_age"`
		RedisConnected  bool    `json:"redis_connected"`
		RedisLatencyMs  float64 `json:"redis_latency_ms"`
		SQLiteOK        bool    `json:"sqlite_ok"`
		SQLiteLatencyMs float64 `json:"sqlite_latency_ms"`
		LastAnalysisAt  string  `json:"last_analysis_at"`
		LastAction      string  `json:"last_action"`
		LastCheckAt     string  `json:"last_check_at"`
	}{
		Status:          overallStatus,
		Uptime:          time.Since(h.StartedAt).Round(time.Second).String(),
		StreamMode:      h.StreamMode,
		LastTickTime:    h.LastTickTime.Format(time.RFC3339),
		TickAge:         tickAge,
		RedisConnected:  h.RedisConnected,
		RedisLatencyMs:  h.RedisLatencyMs,
		SQLiteOK:        h.SQLiteOK,
		SQLiteLatencyMs: h.SQLiteLatencyMs,
		LastAnalysisAt:  h.LastAnalysisAt.Format(time.RFC3339),
		LastAction:      h.LastAction,
		LastCheckAt:     h.LastCheckAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	health *HealthStatus
	addr   string
	srv    *http.Server
}

// NewServer creates a metrics and health server.
func NewServer(addr string, health *HealthStatus) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", health.ServeHTTP)

	return &Server{
		health: health,
		addr:   addr,
		srv: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
