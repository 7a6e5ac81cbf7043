package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"mexcbot/config"
	"mexcbot/internal/bus"
	"mexcbot/internal/decision"
	"mexcbot/internal/engine"
	"mexcbot/internal/exchange"
	"mexcbot/internal/execution"
	"mexcbot/internal/logger"
	"mexcbot/internal/metrics"
	"mexcbot/internal/model"
	"mexcbot/internal/notification"
	"mexcbot/internal/portfolio"
	"mexcbot/internal/ringbuf"
	redisstore "mexcbot/internal/store/redis"
	sqlitestore "mexcbot/internal/store/sqlite"
	"mexcbot/internal/strategy"
	"mexcbot/internal/stream"
	"mexcbot/internal/window"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	log.Println("[tradebot] starting...")

	logger.Init("tradebot", slog.LevelInfo)

	cfg := config.Load()
	log.Printf("[tradebot] symbol=%s interval=%s window=%d paper=%v",
		cfg.Symbol, cfg.KlineInterval, cfg.WindowSize, cfg.PaperTrading)

	tradeQty, err := decimal.NewFromString(cfg.TradeQuantity)
	if err != nil || tradeQty.Sign() <= 0 {
		log.Fatalf("[tradebot] invalid TRADE_QUANTITY %q", cfg.TradeQuantity)
	}

	// ---- Metrics & health ----
	prom := metrics.NewMetrics()
	health := metrics.NewHealthStatus()
	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health)
	metricsSrv.Start()

	// ---- Context for graceful shutdown ----
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// ---- SQLite writer (off hot path) ----
	os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755)
	sqlWriter, err := sqlitestore.New(sqlitestore.WriterConfig{DBPath: cfg.SQLitePath})
	if err != nil {
		log.Fatalf("[tradebot] sqlite init failed: %v", err)
	}
	defer sqlWriter.Close()
	health.SetSQLiteOK(true)
	log.Println("[tradebot] sqlite writer ready")

	journal, err := execution.NewJournal(cfg.SQLitePath)
	if err != nil {
		log.Fatalf("[tradebot] journal init failed: %v", err)
	}
	defer journal.Close()

	// ---- Redis writer behind a circuit breaker ----
	var redisWriter *redisstore.Writer
	var bufferedRedis *redisstore.BufferedWriter
	redisWriter, err = redisstore.New(redisstore.WriterConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		log.Printf("[tradebot] WARNING: redis init failed: %v (continuing without redis)", err)
		health.SetRedisConnected(false)
		redisWriter = nil
	} else {
		cb := redisstore.NewCircuitBreaker(5, 30*time.Second)
		cb.OnStateChange = func(from, to redisstore.State) {
			log.Printf("[tradebot] redis circuit %s -> %s", from, to)
			health.SetRedisConnected(to == redisstore.StateClosed)
		}
		bufferedRedis = redisstore.NewBufferedWriter(ctx, redisWriter, cb, 10000)
		health.SetRedisConnected(true)
		log.Println("[tradebot] redis writer ready")
	}

	// ---- Periodic liveness checks ----
	if redisWriter != nil {
		health.StartLivenessChecker(ctx, redisWriter.Client(), sqlWriter.DB(), 10*time.Second)
	} else {
		health.StartLivenessChecker(ctx, nil, sqlWriter.DB(), 10*time.Second)
	}

	// ---- Exchange REST client ----
	rest := exchange.NewClient(cfg.MEXCAPIKey, cfg.MEXCAPISecret)
	if cfg.MEXCAPIKey == "" {
		log.Println("[tradebot] no API credentials, market-data only mode")
	}

	// ---- Candle window, backfilled over REST ----
	win := window.New(cfg.Symbol, cfg.KlineInterval, cfg.WindowSize)
	backfillCtx, backfillCancel := context.WithTimeout(ctx, 30*time.Second)
	if err := win.Backfill(backfillCtx, rest); err != nil {
		log.Printf("[tradebot] WARNING: backfill failed: %v (window fills from stream)", err)
	} else {
		log.Printf("[tradebot] window backfilled with %d candles", win.Len())
	}
	backfillCancel()

	// ---- Tick pipeline: ring buffer -> fan-out -> sinks ----
	ring := ringbuf.New(8192)
	tickCh := make(chan model.Tick, 10000)

	go drainRing(ctx, ring, tickCh, prom)

	fanout := bus.New(5000)
	fanout.OnDrop = func(subscriberIdx int) {
		prom.DroppedFrames.Inc()
	}

	sqliteTickCh := fanout.Subscribe()
	portfolioTickCh := fanout.Subscribe()
	var redisTickCh <-chan model.Tick
	if bufferedRedis != nil {
		redisTickCh = fanout.Subscribe()
	}
	go fanout.Run(ctx, tickCh)

	go sqlWriter.RunTicks(ctx, sqliteTickCh)

	sqliteTradeCh := make(chan model.Trade, 5000)
	go sqlWriter.RunTrades(ctx, sqliteTradeCh)

	var redisTradeCh chan model.Trade
	if bufferedRedis != nil {
		redisTradeCh = make(chan model.Trade, 5000)
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case tick, ok := <-redisTickCh:
					if !ok {
						return
					}
					bufferedRedis.WriteTick(tick)
				case trade, ok := <-redisTradeCh:
					if !ok {
						return
					}
					bufferedRedis.WriteTrade(trade)
				}
			}
		}()
	}

	// ---- Portfolio mark-to-market ----
	pf := portfolio.New()
	pnl := portfolio.NewPnLTracker()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case tick, ok := <-portfolioTickCh:
				if !ok {
					return
				}
				pf.UpdatePrice(tick)
			}
		}
	}()

	// ---- Notifications ----
	backends := []notification.Notifier{notification.NewLogNotifier()}
	if cfg.WebhookURL != "" {
		backends = append(backends, notification.NewWebhookNotifier(cfg.WebhookURL))
	}
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != "" {
		backends = append(backends, notification.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID))
	}
	notifier := notification.NewMulti(backends...)

	// ---- Stream client: WS with REST polling fallback ----
	sc := stream.NewClient(rest)

	sc.SubscribeTicker(cfg.Symbol, func(ev stream.Event) {
		prom.TicksTotal.Inc()
		health.SetLastTickTime(ev.Tick.TS)
		if !ring.Push(ev.Tick) {
			prom.DroppedFrames.Inc()
		}
	})

	sc.SubscribeTrade(cfg.Symbol, func(ev stream.Event) {
		prom.TradesTotal.Inc()
		select {
		case sqliteTradeCh <- ev.Trade:
		default:
			prom.DroppedFrames.Inc()
		}
		if redisTradeCh != nil {
			select {
			case redisTradeCh <- ev.Trade:
			default:
			}
		}
	})

	sc.SubscribeKline(cfg.Symbol, cfg.KlineInterval, func(ev stream.Event) {
		prom.KlinesTotal.Inc()
		if !ev.KlineClosed {
			return
		}
		win.Append(ev.Candle)
		if err := sqlWriter.SaveCandle(ev.Candle); err != nil {
			log.Printf("[tradebot] candle save failed: %v", err)
		}
		if bufferedRedis != nil {
			bufferedRedis.WriteCandle(ev.Candle)
		}
	})

	if err := sc.Connect(ctx); err != nil {
		log.Fatalf("[tradebot] stream connect failed: %v", err)
	}
	defer sc.Disconnect()

	go watchStreamMode(ctx, sc, cfg.Symbol, prom, health, notifier)

	// ---- Analysis service ----
	svc := engine.New(engine.Config{
		Symbol:           cfg.Symbol,
		AnalysisInterval: cfg.AnalysisInterval,
	}, win).
		WithStores(sqlWriter, redisWriter).
		WithMetrics(prom, health).
		WithNotifier(notifier)
	go svc.Run(ctx)

	// ---- Execution ----
	var executor execution.Executor
	var paper *execution.PaperExecutor
	mode := "live"
	if cfg.PaperTrading {
		paper = execution.NewPaperExecutor(16, 5)
		executor = paper
		mode = "paper"
	} else {
		executor = execution.NewLiveExecutor(rest, 16)
	}
	log.Printf("[tradebot] execution mode: %s", mode)

	signalCh := make(chan execution.Signal, 16)
	go executor.Run(ctx, signalCh)

	strat := strategy.New()
	go runTrading(ctx, svc, strat, win, signalCh, tradeQty, cfg.Symbol)
	go consumeResults(ctx, executor, paper, journal, pf, pnl, strat, notifier, prom, mode)

	log.Println("[tradebot] pipeline ready")
	log.Printf("[tradebot] [MEXC WS/REST] -> [window] -> [engine] -> [strategy] -> [%s orders]", mode)

	// ---- Wait for shutdown signal ----
	<-sigCh
	log.Println("[tradebot] shutdown signal received, cleaning up...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	metricsSrv.Stop(shutdownCtx)

	if redisWriter != nil {
		redisWriter.Close()
	}
	log.Println("[tradebot] shutdown complete.")
}

// drainRing moves ticks from the SPSC ring buffer onto the fan-out
// input channel.
func drainRing(ctx context.Context, ring *ringbuf.Ring, out chan<- model.Tick, prom *metrics.Metrics) {
	for {
		if ctx.Err() != nil {
			return
		}
		tick, ok := ring.Pop()
		if !ok {
			time.Sleep(time.Millisecond)
			continue
		}
		select {
		case out <- tick:
		default:
			prom.DroppedFrames.Inc()
		}
	}
}

// watchStreamMode mirrors the stream client's operating mode into
// health and metrics, and raises an alert when it degrades to polling.
func watchStreamMode(ctx context.Context, sc *stream.Client, symbol string,
	prom *metrics.Metrics, health *metrics.HealthStatus, notifier notification.Notifier) {

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	last := stream.ModeDisconnected
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st := sc.Status()
			health.SetStreamMode(string(st.Mode))
			prom.ActiveChannels.Set(float64(len(st.ActiveChannels)))

			switch st.Mode {
			case stream.ModeStreaming:
				prom.StreamMode.Set(1)
			case stream.ModePolling:
				prom.StreamMode.Set(2)
			default:
				prom.StreamMode.Set(0)
			}

			if st.Mode == stream.ModePolling && last != stream.ModePolling {
				prom.StreamFallbacks.Inc()
				notifier.Send(ctx, notification.FallbackAlert(symbol, "websocket lost, polling REST"))
			}
			if st.Mode == stream.ModeStreaming && last == stream.ModePolling {
				log.Println("[tradebot] stream recovered from polling fallback")
			}
			last = st.Mode
		}
	}
}

// runTrading turns analyses into order signals. A signal is placed only
// when the decision engine and the fast strategy path agree on
// direction and the strategy's position gate allows a new entry.
func runTrading(ctx context.Context, svc *engine.Service, strat *strategy.Strategy,
	win *window.Builder, signalCh chan<- execution.Signal, qty decimal.Decimal, symbol string) {

	for {
		select {
		case <-ctx.Done():
			return
		case a, ok := <-svc.Analyses():
			if !ok {
				return
			}
			if a.Decision.Action == decision.ActionHold {
				continue
			}

			ok2, side, confidence := strat.ShouldTrade(win.Snapshot())
			if !ok2 {
				continue
			}
			if !agrees(a.Decision.Action, side) {
				slog.Info("decision and strategy disagree, holding",
					"symbol", symbol, "decision", a.Decision.Action, "strategy", side)
				continue
			}

			sig := execution.Signal{
				Symbol:     symbol,
				Side:       side,
				Qty:        qty,
				Price:      a.Decision.Price,
				Confidence: confidence,
				Reason:     a.Decision.Action,
				TS:         time.Now().UTC(),
			}
			select {
			case signalCh <- sig:
				slog.Info("signal emitted", "symbol", symbol, "side", side,
					"qty", qty.String(), "confidence", confidence)
			default:
				slog.Warn("signal channel full, dropping signal", "symbol", symbol)
			}
		}
	}
}

// agrees maps decision actions onto strategy sides.
func agrees(action, side string) bool {
	return (action == decision.ActionLong && side == strategy.SignalBuy) ||
		(action == decision.ActionShort && side == strategy.SignalSell)
}

// consumeResults applies order outcomes to the position trackers and
// journals fills.
func consumeResults(ctx context.Context, executor execution.Executor, paper *execution.PaperExecutor,
	journal *execution.Journal, pf *portfolio.Portfolio, pnl *portfolio.PnLTracker,
	strat *strategy.Strategy, notifier notification.Notifier, prom *metrics.Metrics, mode string) {

	for {
		select {
		case <-ctx.Done():
			return
		case res, ok := <-executor.Results():
			if !ok {
				return
			}

			notifier.Send(ctx, notification.FillAlert(res))

			if res.Status != "FILLED" && res.Status != "PLACED" {
				prom.OrderErrors.Inc()
				continue
			}
			prom.OrdersTotal.WithLabelValues(res.Signal.Side, mode).Inc()

			fill := fillFor(paper, res)
			if err := journal.RecordFill(fill); err != nil {
				log.Printf("[tradebot] journal write failed: %v", err)
			}

			pf.ApplyFill(res.Signal.Symbol, res.Signal.Side, fill.FillQty, fill.FillPrice)
			realized := pnl.RecordTrade(portfolio.Trade{
				Symbol: res.Signal.Symbol,
				Side:   res.Signal.Side,
				Qty:    fill.FillQty,
				Price:  fill.FillPrice,
				TS:     fill.FilledAt,
			})
			if !realized.IsZero() {
				slog.Info("realized pnl", "symbol", res.Signal.Symbol, "pnl", realized.String())
			}

			switch res.Signal.Side {
			case strategy.SignalBuy:
				strat.UpdatePosition(strategy.PositionLong)
			case strategy.SignalSell:
				strat.UpdatePosition(strategy.PositionNone)
			}
		}
	}
}

// fillFor resolves the executed fill for a result. Paper fills carry the
// slipped price; live orders fall back to the signal's reference price
// until the trade shows up in account history.
func fillFor(paper *execution.PaperExecutor, res execution.OrderResult) execution.Fill {
	if paper != nil {
		for _, f := range paper.Fills() {
			if f.OrderID == res.OrderID {
				return f
			}
		}
	}
	return execution.Fill{
		OrderID:   res.OrderID,
		Signal:    res.Signal,
		FillPrice: decimal.NewFromFloat(res.Signal.Price),
		FillQty:   res.Signal.Qty,
		FilledAt:  time.Now().UTC(),
	}
}
