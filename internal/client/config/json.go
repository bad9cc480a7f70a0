package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/sealkeeper/internal/flagx"
	"github.com/dmitrijs2005/sealkeeper/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Intervals use
// timex.Duration, so they may be strings like "3s" or integer nanoseconds.
type JsonConfig struct {
	ServerEndpointAddr  string         `json:"server_endpoint_addr"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval"`
	DatabasePath        string         `json:"database_path"`
	SuccessStatusTTL    timex.Duration `json:"success_status_ttl"`
	ErrorStatusTTL      timex.Duration `json:"error_status_ttl"`
	ReceiptPollInterval timex.Duration `json:"receipt_poll_interval"`
	AutoConfirm         *bool          `json:"auto_confirm"`
}

// parseJson overlays Config with values from the file named by -c/-config.
// Keys missing from the file keep their current value. Read and unmarshal
// errors panic.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.ServerEndpointAddr != "" {
		cfg.ServerEndpointAddr = jc.ServerEndpointAddr
	}
	if jc.OnlineCheckInterval.Duration > 0 {
		cfg.OnlineCheckInterval = jc.OnlineCheckInterval.Duration
	}
	if jc.DatabasePath != "" {
		cfg.DatabasePath = jc.DatabasePath
	}
	if jc.SuccessStatusTTL.Duration > 0 {
		cfg.SuccessStatusTTL = jc.SuccessStatusTTL.Duration
	}
	if jc.ErrorStatusTTL.Duration > 0 {
		cfg.ErrorStatusTTL = jc.ErrorStatusTTL.Duration
	}
	if jc.ReceiptPollInterval.Duration > 0 {
		cfg.ReceiptPollInterval = jc.ReceiptPollInterval.Duration
	}
	if jc.AutoConfirm != nil {
		cfg.AutoConfirm = *jc.AutoConfirm
	}
}
