package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/qrbind/internal/flagx"
)

// parseFlags overlays settings from command-line flags.
//
//	-a string     HTTP bind address (":8080")
//	-g string     gRPC health bind address (":50051")
//	-d string     PostgreSQL DSN
//	-s string     JWT HMAC secret for admin tokens
//	-m string     response mode: redirect, html or auto
//	-t duration   per-request timeout
//	-b duration   bind transaction timeout
//	-f            follow upstream redirects before answering
//	-l string     log level
//
// Only these flags are looked at; the rest of args belongs to the CLI.
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-g", "-d", "-s", "-m", "-t", "-b", "-f", "-l"})

	fs := flag.NewFlagSet("qrbind", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "HTTP address and port")
	fs.StringVar(&config.EndpointAddrGRPC, "g", config.EndpointAddrGRPC, "gRPC health address and port")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.ResponseMode, "m", config.ResponseMode, "response mode (redirect|html|auto)")
	fs.DurationVar(&config.RequestTimeout, "t", config.RequestTimeout, "request timeout")
	fs.DurationVar(&config.BindTimeout, "b", config.BindTimeout, "bind timeout")
	fs.BoolVar(&config.FollowRedirects, "f", config.FollowRedirects, "follow upstream redirects")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	return fs.Parse(args)
}
