package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/sealkeeper/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   address and port of the ledger node
//	-i int      online check interval in seconds
//	-d string   path to the local database
//	-y          sign transactions without confirmation
//	-v          verbose logging
//
// Only the flags listed here are passed to the flag set (flagx.FilterArgs),
// so -c/-config and unknown flags do not break parsing.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-i", "-d", "-y", "-v"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port to access the ledger node")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "local database path")
	fs.BoolVar(&cfg.AutoConfirm, "y", cfg.AutoConfirm, "sign transactions without confirmation")
	fs.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "verbose logging")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
}
