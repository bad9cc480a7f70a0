package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/sealkeeper/internal/flagx"
)

// parseFlags populates selected node Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   gRPC bind address (e.g., ":50051")
//	-m string   metrics bind address
//	-d string   PostgreSQL DSN or "memory"
//	-s string   JWT HMAC secret key
//	-t int      access token validity, minutes
//	-n string   chain id
//	-k string   KMS seed, hex
//	-i int      block interval, milliseconds
//	-o string   blob backend ("s3" or "memory")
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{
		"-a", "-m", "-d", "-s", "-t", "-n", "-k", "-i", "-o", "-u", "-p", "-b", "-g", "-e",
	})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run server")
	fs.StringVar(&config.MetricsAddr, "m", config.MetricsAddr, "address and port to serve metrics")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access_token_validity_duration (in minutes)")
	fs.StringVar(&config.ChainID, "n", config.ChainID, "chain id")
	fs.StringVar(&config.KMSSeed, "k", config.KMSSeed, "KMS seed (hex)")
	blockInterval := fs.Int("i", int(config.BlockInterval.Milliseconds()), "block interval (in milliseconds)")
	fs.StringVar(&config.BlobBackend, "o", config.BlobBackend, "blob backend (s3 or memory)")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 root bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 root region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
	config.BlockInterval = time.Duration(*blockInterval) * time.Millisecond
}
