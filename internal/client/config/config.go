package config

import "time"

// Config holds runtime settings for the SealKeeper CLI.
//
// Fields:
//   - ServerEndpointAddr: host:port of the ledger node gRPC endpoint.
//   - OnlineCheckInterval: how often the client probes contract availability.
//   - DatabasePath: SQLite file holding the wallet and the record snapshot.
//   - SuccessStatusTTL / ErrorStatusTTL: how long a finished transaction
//     status stays visible.
//   - ReceiptPollInterval: first delay between receipt polls (it backs off).
//   - AutoConfirm: sign transactions without prompting.
//   - Verbose: log at debug level to stderr.
type Config struct {
	ServerEndpointAddr  string
	OnlineCheckInterval time.Duration
	DatabasePath        string
	SuccessStatusTTL    time.Duration
	ErrorStatusTTL      time.Duration
	ReceiptPollInterval time.Duration
	AutoConfirm         bool
	Verbose             bool
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.OnlineCheckInterval = 3 * time.Second
	c.DatabasePath = "sealkeeper.db"
	c.SuccessStatusTTL = 2 * time.Second
	c.ErrorStatusTTL = 3 * time.Second
	c.ReceiptPollInterval = 250 * time.Millisecond
	c.AutoConfirm = false
	c.Verbose = false
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
