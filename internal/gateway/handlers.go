package gateway

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	redisstore "mexcbot/internal/store/redis"
)

var upgrader = websocket.Upgrader{
	CheckOrigin:       func(r *http.Request) bool { return true },
	EnableCompression: true,
}

// SetCORS sets CORS headers for REST endpoints.
func SetCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	SetCORS(w)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// RegisterRoutes registers the WebSocket upgrade and REST endpoints on mux.
func RegisterRoutes(mux *http.ServeMux, hub *Hub, reader *redisstore.Reader, processStart time.Time) {
	// WebSocket endpoint; last_ts limits the initial snapshot
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("[gateway] ws upgrade error: %v", err)
			return
		}
		hub.HandleWSRequest(conn, r.URL.Query().Get("last_ts"))
	})

	// REST: last ticker snapshot for a symbol
	mux.HandleFunc("/api/price", func(w http.ResponseWriter, r *http.Request) {
		symbol := symbolParam(r, hub)
		tick, err := reader.LatestPrice(r.Context(), symbol)
		if err != nil {
			writeError(w, http.StatusBadGateway, err)
			return
		}
		if tick == nil {
			writeError(w, http.StatusNotFound, errNoData)
			return
		}
		writeJSON(w, tick)
	})

	// REST: latest analysis for a symbol
	mux.HandleFunc("/api/analysis/latest", func(w http.ResponseWriter, r *http.Request) {
		symbol := symbolParam(r, hub)
		a, err := reader.LatestAnalysis(r.Context(), symbol)
		if err != nil {
			writeError(w, http.StatusBadGateway, err)
			return
		}
		if a == nil {
			writeError(w, http.StatusNotFound, errNoData)
			return
		}
		writeJSON(w, a)
	})

	// REST: recent analyses, newest first
	mux.HandleFunc("/api/analyses", func(w http.ResponseWriter, r *http.Request) {
		symbol := symbolParam(r, hub)
		limit := limitParam(r, 50, 500)
		out, err := reader.RecentAnalyses(r.Context(), symbol, int64(limit))
		if err != nil {
			writeError(w, http.StatusBadGateway, err)
			return
		}
		writeJSON(w, out)
	})

	// REST: stored candles, oldest first
	mux.HandleFunc("/api/candles", func(w http.ResponseWriter, r *http.Request) {
		symbol := symbolParam(r, hub)
		interval := r.URL.Query().Get("interval")
		if interval == "" {
			interval = "1m"
			if len(hub.Intervals) > 0 {
				interval = hub.Intervals[0]
			}
		}
		limit := limitParam(r, 200, 1000)
		candles, err := reader.ReadCandles(r.Context(), symbol, interval, int64(limit))
		if err != nil {
			writeError(w, http.StatusBadGateway, err)
			return
		}
		writeJSON(w, candles)
	})

	// REST: last payload per channel, as held in memory by the hub
	mux.HandleFunc("/api/latest", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, hub.GetLatestAll())
	})

	// REST: replay missed envelopes for client gap backfill.
	// Params: channel, from, to (channel_seq range, inclusive).
	mux.HandleFunc("/api/missed", func(w http.ResponseWriter, r *http.Request) {
		channel := r.URL.Query().Get("channel")
		from, _ := strconv.ParseInt(r.URL.Query().Get("from"), 10, 64)
		to, _ := strconv.ParseInt(r.URL.Query().Get("to"), 10, 64)
		if channel == "" || from <= 0 {
			writeError(w, http.StatusBadRequest, errBadRange)
			return
		}
		if to <= 0 {
			to = hub.GetChannelSeq(channel)
		}

		envelopes := hub.GetReplayRange(channel, from, to)

		SetCORS(w)
		w.Header().Set("Content-Type", "application/json")
		// Envelopes are pre-built JSON; emit them as a raw array
		w.Write([]byte{'['})
		for i, env := range envelopes {
			if i > 0 {
				w.Write([]byte{','})
			}
			w.Write(env)
		}
		w.Write([]byte{']'})
	})

	// REST: process stats snapshot
	mux.HandleFunc("/api/stats", func(w http.ResponseWriter, r *http.Request) {
		m := CollectStats(processStart)
		if hub.Latency != nil {
			m.LatencyP50, m.LatencyP95, m.LatencyP99 = hub.Latency.Percentiles()
		}
		writeJSON(w, m)
	})

	// Health endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		redisOK := true
		if err := hub.Rdb.Ping(r.Context()).Err(); err != nil {
			redisOK = false
		}

		writeJSON(w, HealthOut{
			Status:    "ok",
			Redis:     redisOK,
			WSClients: hub.ClientCount(),
			UptimeSec: int64(time.Since(processStart).Seconds()),
			TS:        time.Now().UTC().Format(time.RFC3339Nano),
		})
	})
}

func symbolParam(r *http.Request, hub *Hub) string {
	symbol := r.URL.Query().Get("symbol")
	if symbol == "" && len(hub.Symbols) > 0 {
		symbol = hub.Symbols[0]
	}
	return symbol
}

func limitParam(r *http.Request, def, max int) int {
	limit := def
	if s := r.URL.Query().Get("limit"); s != "" {
		if l, err := strconv.Atoi(s); err == nil && l > 0 && l <= max {
			limit = l
		}
	}
	return limit
}

func writeError(w http.ResponseWriter, code int, err error) {
	SetCORS(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
