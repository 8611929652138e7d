/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"os"

	"github.com/dhnt/tlserve/internal/log"
	"github.com/dhnt/tlserve/internal/server"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap/zapcore"
)

func serve(ctx context.Context, cfg server.ServerConfig, verbosity int8) error {
	logger := log.ConfigLogger(verbosity, zapcore.Lock(os.Stderr))
	logger.V(1).Info("config", "config", cfg)

	s, err := server.New(cfg, logger)
	if err != nil {
		return err
	}
	return s.Start(ctx)
}

// buildConfig layers the config file and the flags the user set on top
// of the defaults, then picks the document root. Any positional argument
// selects the testing root.
func buildConfig(flags *pflag.FlagSet, args []string) (server.ServerConfig, error) {
	cfg := server.DefaultConfig()

	if path, _ := flags.GetString("config"); path != "" {
		if err := server.LoadConfig(path, &cfg); err != nil {
			return cfg, err
		}
	}

	changed := func(name string) bool {
		return flags.Changed(name)
	}
	if changed("addr") {
		cfg.BindAddress, _ = flags.GetString("addr")
	}
	if changed("port") {
		cfg.Port, _ = flags.GetInt("port")
	}
	if changed("root") {
		cfg.Root, _ = flags.GetString("root")
	}
	if changed("testing-root") {
		cfg.TestingRoot, _ = flags.GetString("testing-root")
	}
	if changed("cert") {
		cfg.CertFile, _ = flags.GetString("cert")
	}
	if changed("key") {
		cfg.KeyFile, _ = flags.GetString("key")
	}
	if changed("list-dirs") {
		cfg.ListDirs, _ = flags.GetBool("list-dirs")
	}
	if changed("read-timeout") {
		cfg.ReadTimeout.Duration, _ = flags.GetDuration("read-timeout")
	}
	if changed("write-timeout") {
		cfg.WriteTimeout.Duration, _ = flags.GetDuration("write-timeout")
	}
	if changed("idle-timeout") {
		cfg.IdleTimeout.Duration, _ = flags.GetDuration("idle-timeout")
	}
	if changed("shutdown-grace") {
		cfg.ShutdownGrace.Duration, _ = flags.GetDuration("shutdown-grace")
	}
	if changed("rate-limit") {
		cfg.RateLimit, _ = flags.GetFloat64("rate-limit")
	}
	if changed("rate-burst") {
		cfg.RateBurst, _ = flags.GetInt("rate-burst")
	}
	if changed("metrics-addr") {
		cfg.MetricsAddress, _ = flags.GetString("metrics-addr")
	}

	cfg.Root = cfg.EffectiveRoot(len(args) > 0)
	return cfg, nil
}

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve [testing]",
	Short: "Serve the root directory over HTTPS",
	Long: `Serve the files below the root directory over HTTPS until interrupted.

Passing any argument serves the testing root instead of the root:

  tlserve serve           # serves ./dist
  tlserve serve testing   # serves ./testing

Directory listings are off by default: a directory without index.html
answers 404. Pass --list-dirs to render a listing instead, as Python's
http.server does.

Settings are read from the defaults, then the --config YAML file, then
the flags given on the command line.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := buildConfig(cmd.Flags(), args)
		if err != nil {
			return err
		}
		verbosity, _ := cmd.Flags().GetInt8("verbose")

		return serve(cmd.Context(), cfg, verbosity)
	},
}

func addServeFlags(flags *pflag.FlagSet) {
	def := server.DefaultConfig()

	flags.String("config", "", "YAML file with server settings")
	flags.String("addr", def.BindAddress, "Specifies the address on which the server listens for connections")
	flags.IntP("port", "p", def.Port, "Specifies the port on which the server listens for connections")
	flags.String("root", def.Root, "Specifies the directory to serve")
	flags.String("testing-root", def.TestingRoot, "Specifies the directory to serve when started with an argument")
	flags.String("cert", def.CertFile, "PEM certificate file, may also hold the private key")
	flags.String("key", def.KeyFile, "PEM private key file, empty to read the key from --cert")
	flags.Bool("list-dirs", def.ListDirs, "List directories that have no index.html instead of answering 404 (off by default)")
	flags.Duration("read-timeout", def.ReadTimeout.Duration, "Maximum duration for reading a request")
	flags.Duration("write-timeout", def.WriteTimeout.Duration, "Maximum duration for writing a response")
	flags.Duration("idle-timeout", def.IdleTimeout.Duration, "Maximum time to wait for the next request on a keep-alive connection")
	flags.Duration("shutdown-grace", def.ShutdownGrace.Duration, "Time given to in-flight requests after SIGINT or SIGTERM")
	flags.Float64("rate-limit", def.RateLimit, "Requests per second accepted across all clients, 0 disables limiting")
	flags.Int("rate-burst", def.RateBurst, "Burst size of the rate limiter, defaults to the rate limit")
	flags.String("metrics-addr", def.MetricsAddress, "Address of a plain HTTP listener serving /metrics, empty disables it")
}

func init() {
	rootCmd.AddCommand(serveCmd)
	addServeFlags(serveCmd.Flags())
}
