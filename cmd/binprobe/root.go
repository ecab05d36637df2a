package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const envPrefix = "BINPROBE"

// config is the resolved flag, environment and file configuration.
type config struct {
	verbose     bool
	blockSize   int64
	blockRadius int64
	timeout     time.Duration
	headers     []string
	latency     time.Duration
	bps         int64

	s3Endpoint  string
	s3Region    string
	s3AccessKey string
	s3SecretKey string
}

// app carries state shared by subcommands.
type app struct {
	v      *viper.Viper
	cfg    config
	logger *slog.Logger
}

func newApp() *app {
	return &app{v: viper.New()}
}

func newRootCmd() *cobra.Command {
	return buildRootCmd(newApp())
}

func buildRootCmd(a *app) *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:           "binprobe",
		Short:         "Probe binary files locally or over the network",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd, cfgFile)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (yaml, toml or json)")
	flags.BoolP("verbose", "v", false, "log fetches to stderr")
	flags.Int64("block-size", 0, "remote block size in bytes (0 uses the default)")
	flags.Int64("block-radius", 0, "extra blocks fetched on each side of a read")
	flags.Duration("timeout", 30*time.Second, "timeout for each blocking remote read")
	flags.StringSlice("header", nil, "extra HTTP header as key:value (repeatable)")
	flags.Duration("http-latency", 0, "per-request latency added to HTTP requests")
	flags.String("http-bps", "", "bytes/sec throttle for HTTP responses (e.g. 10MBps)")
	flags.String("s3-endpoint", "", "S3 endpoint URL for S3-compatible stores")
	flags.String("s3-region", "us-east-1", "S3 region")
	flags.String("s3-access-key", "", "S3 access key id")
	flags.String("s3-secret-key", "", "S3 secret access key")

	cmd.AddCommand(newReadCmd(a), newProfileCmd(a))
	return cmd
}

// load merges flags, BINPROBE_* environment variables and the optional
// config file into a.cfg.
func (a *app) load(cmd *cobra.Command, cfgFile string) error {
	v := a.v
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := config{
		verbose:     v.GetBool("verbose"),
		blockSize:   v.GetInt64("block-size"),
		blockRadius: v.GetInt64("block-radius"),
		timeout:     v.GetDuration("timeout"),
		headers:     v.GetStringSlice("header"),
		latency:     v.GetDuration("http-latency"),
		s3Endpoint:  v.GetString("s3-endpoint"),
		s3Region:    v.GetString("s3-region"),
		s3AccessKey: v.GetString("s3-access-key"),
		s3SecretKey: v.GetString("s3-secret-key"),
	}
	if bps := v.GetString("http-bps"); bps != "" {
		n, err := parseBytesPerSecond(bps)
		if err != nil {
			return err
		}
		cfg.bps = n
	}
	if cfg.blockSize < 0 || cfg.blockRadius < 0 {
		return errors.New("block-size and block-radius must not be negative")
	}
	a.cfg = cfg

	var out io.Writer = io.Discard
	level := slog.LevelInfo
	if cfg.verbose {
		out = cmd.ErrOrStderr()
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
	if cfgFile != "" {
		a.logger.Debug("using config file", slog.String("path", v.ConfigFileUsed()))
	}
	return nil
}
