// Package config loads runtime configuration for the SealKeeper CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   address:port of the ledger node
//	-i int      online status check interval (seconds)
//	-d string   local database path
//	-y          auto-confirm transactions
//	-v          verbose logging
//
// # JSON schema
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "online_check_interval": "3s",
//	  "database_path": "sealkeeper.db",
//	  "success_status_ttl": "2s",
//	  "error_status_ttl": "3s",
//	  "receipt_poll_interval": "250ms",
//	  "auto_confirm": false
//	}
package config
