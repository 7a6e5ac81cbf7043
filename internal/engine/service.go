// Package engine runs the periodic analysis cycle: window snapshot,
// full indicator/pattern computation, decision, persistence and
// publishing. One cycle per AnalysisInterval, single-writer.
package engine

import (
	"context"
	"log"
	"log/slog"
	"time"

	"mexcbot/internal/decision"
	"mexcbot/internal/logger"
	"mexcbot/internal/metrics"
	"mexcbot/internal/notification"
	redisstore "mexcbot/internal/store/redis"
	sqlitestore "mexcbot/internal/store/sqlite"
	"mexcbot/internal/window"
)

// minWindow is the fewest candles worth analyzing. Below this the
// indicators all sit at their neutral defaults and the cycle is skipped.
const minWindow = 30

// Config configures the analysis service.
type Config struct {
	Symbol           string
	AnalysisInterval time.Duration
}

// Service owns the decision engine and drives it on a fixed cadence.
// Store, metrics and notifier dependencies are optional: a nil field
// simply disables that sink.
type Service struct {
	cfg Config

	window *window.Builder
	engine *decision.Engine

	sqlWriter   *sqlitestore.Writer
	redisWriter *redisstore.Writer
	prom        *metrics.Metrics
	health      *metrics.HealthStatus
	notifier    notification.Notifier

	analysisCh chan decision.Analysis
}

// New creates the analysis service around an existing window builder.
func New(cfg Config, win *window.Builder) *Service {
	if cfg.AnalysisInterval <= 0 {
		cfg.AnalysisInterval = 60 * time.Second
	}
	return &Service{
		cfg:        cfg,
		window:     win,
		engine:     decision.NewEngine(),
		analysisCh: make(chan decision.Analysis, 16),
	}
}

// WithStores attaches the persistence sinks.
func (s *Service) WithStores(sqlw *sqlitestore.Writer, redisw *redisstore.Writer) *Service {
	s.sqlWriter = sqlw
	s.redisWriter = redisw
	return s
}

// WithMetrics attaches prometheus metrics and the health status.
func (s *Service) WithMetrics(prom *metrics.Metrics, health *metrics.HealthStatus) *Service {
	s.prom = prom
	s.health = health
	return s
}

// WithNotifier attaches an alert sink for actionable decisions.
func (s *Service) WithNotifier(n notification.Notifier) *Service {
	s.notifier = n
	return s
}

// Engine exposes the decision engine for history queries.
func (s *Service) Engine() *decision.Engine {
	return s.engine
}

// Analyses returns the channel of completed analyses. The channel is
// buffered; when no one drains it, results are dropped rather than
// stalling the cycle.
func (s *Service) Analyses() <-chan decision.Analysis {
	return s.analysisCh
}

// Run drives analysis cycles until ctx is cancelled. The first cycle
// fires after one full interval so the window has live data.
func (s *Service) Run(ctx context.Context) {
	log.Printf("[engine] analysis loop for %s every %v", s.cfg.Symbol, s.cfg.AnalysisInterval)

	ticker := time.NewTicker(s.cfg.AnalysisInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("[engine] analysis loop stopped")
			return
		case <-ticker.C:
			s.runCycle(ctx)
		}
	}
}

// runCycle performs one full analysis pass.
func (s *Service) runCycle(ctx context.Context) {
	cycleCtx := logger.WithCycleID(ctx, logger.NewCycleID())

	candles := s.window.Snapshot()
	if len(candles) < minWindow {
		slog.Warn("window too short, skipping cycle",
			append([]any{slog.Int("candles", len(candles))}, logger.WithCycle(cycleCtx)...)...)
		return
	}

	start := time.Now()
	analysis := s.engine.Analyze(candles)
	elapsed := time.Since(start)

	d := analysis.Decision
	slog.Info("analysis complete",
		append([]any{
			slog.String("symbol", s.cfg.Symbol),
			slog.String("action", d.Action),
			slog.Float64("confidence", d.Confidence),
			slog.Int("bullish", d.BullishVotes),
			slog.Int("bearish", d.BearishVotes),
			slog.Float64("price", d.Price),
			slog.Duration("took", elapsed),
		}, logger.WithCycle(cycleCtx)...)...)

	if s.prom != nil {
		s.prom.AnalysisDur.Observe(elapsed.Seconds())
		s.prom.DecisionsTotal.WithLabelValues(d.Action).Inc()
		s.prom.DecisionConf.Set(d.Confidence)
		s.prom.WindowLen.Set(float64(len(candles)))
	}
	if s.health != nil {
		s.health.SetLastAnalysis(d.TS, d.Action)
	}

	s.persist(cycleCtx, &analysis)

	if s.notifier != nil && d.Action != decision.ActionHold {
		if err := s.notifier.Send(cycleCtx, notification.DecisionAlert(s.cfg.Symbol, d)); err != nil {
			log.Printf("[engine] notify error: %v", err)
		}
	}

	select {
	case s.analysisCh <- analysis:
	default:
		// No consumer; the engine history still has it.
	}
}

func (s *Service) persist(ctx context.Context, a *decision.Analysis) {
	if s.sqlWriter != nil {
		start := time.Now()
		if err := s.sqlWriter.SaveAnalysis(s.cfg.Symbol, a); err != nil {
			log.Printf("[engine] sqlite save error: %v", err)
		} else if s.prom != nil {
			s.prom.SQLiteCommitDur.Observe(time.Since(start).Seconds())
		}
	}

	if s.redisWriter != nil {
		start := time.Now()
		if err := s.redisWriter.WriteAnalysis(ctx, s.cfg.Symbol, a); err != nil {
			log.Printf("[engine] redis publish error: %v", err)
		} else if s.prom != nil {
			s.prom.RedisWriteDur.Observe(time.Since(start).Seconds())
		}
	}
}
