package gateway

import "errors"

var (
	errNoData   = errors.New("no data")
	errBadRange = errors.New("channel and from are required")
)

// HealthOut is the REST response type for /health.
type HealthOut struct {
	Status    string `json:"status"`
	Redis     bool   `json:"redis"`
	WSClients int    `json:"ws_clients"`
	UptimeSec int64  `json:"uptime_sec"`
	TS        string `json:"ts"`
}
