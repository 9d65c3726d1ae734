package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"oaigate/internal/common/fsutil"
	"oaigate/internal/config"
	"oaigate/internal/dispatch"
	"oaigate/internal/httpapi"
	"oaigate/internal/registry"
	"oaigate/pkg/types"
)

// options collects flag values. Empty strings leave the config untouched.
type options struct {
	configPath string
	envFile    string
	addr       string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "oaigate",
		Short:         "OpenAI-compatible gateway over pluggable model backends",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts, cmd.ErrOrStderr())
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Config file (.yaml, .yml, .json or .toml)")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "Dotenv file loaded before OAIGATE_* overrides")

	serve := &cobra.Command{
		Use:     "serve",
		Short:   "Run the HTTP server (default)",
		Example: "  oaigate serve --config oaigate.yaml --addr :8000",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts, cmd.ErrOrStderr())
		},
	}
	for _, c := range []*cobra.Command{root, serve} {
		c.Flags().StringVar(&opts.addr, "addr", "", "HTTP listen address, e.g. :8000 (overrides config)")
		c.Flags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug|info|warn|error (overrides config)")
	}

	models := &cobra.Command{
		Use:   "models",
		Short: "Print the configured model listing and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts, os.LookupEnv)
			if err != nil {
				return err
			}
			reg, err := registry.Build(cfg.Backends, os.LookupEnv, zerolog.Nop())
			if err != nil {
				return err
			}
			return printModels(cmd.OutOrStdout(), reg.List())
		},
	}

	root.AddCommand(serve, models)
	return root
}

// loadConfig layers file, dotenv/environment and flags, then applies
// defaults and validates.
func loadConfig(opts *options, lookup func(string) (string, bool)) (config.Config, error) {
	var cfg config.Config
	if err := config.LoadDotEnv(opts.envFile); err != nil {
		return cfg, err
	}
	if opts.configPath != "" {
		p, err := fsutil.Resolve(opts.configPath)
		if err != nil {
			return cfg, err
		}
		opts.configPath = p
		c, err := config.Load(p)
		if err != nil {
			return cfg, fmt.Errorf("load config: %w", err)
		}
		cfg = c
	}
	if err := cfg.ApplyEnv(lookup); err != nil {
		return cfg, err
	}
	if opts.addr != "" {
		cfg.Addr = opts.addr
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// newLogger builds the process logger. Unknown levels fall back to info.
func newLogger(cfg config.Config, w io.Writer) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	if strings.EqualFold(cfg.LogFormat, "console") {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

func printModels(w io.Writer, models []types.Model) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(types.NewModelList(models))
}

// configureHTTP pushes config into the httpapi package-level settings.
func configureHTTP(cfg config.Config, log zerolog.Logger) {
	httpapi.SetLogger(log)
	httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	httpapi.SetRequestTimeoutSeconds(int64(cfg.RequestTimeoutSeconds))
	httpapi.SetAPIPrefix(cfg.APIPrefix)
	httpapi.SetCORSOptions(cfg.CORS.Enabled, cfg.CORS.Origins, cfg.CORS.Methods, cfg.CORS.Headers)
}

func runServe(ctx context.Context, opts *options, logOut io.Writer) error {
	cfg, err := loadConfig(opts, os.LookupEnv)
	if err != nil {
		return err
	}
	log := newLogger(cfg, logOut)

	reg, err := registry.Build(cfg.Backends, os.LookupEnv, log)
	if err != nil {
		return err
	}
	d := dispatch.New(reg, cfg.DefaultModel, log.With().Str("component", "dispatch").Logger())
	configureHTTP(cfg, log.With().Str("component", "http").Logger())

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	httpapi.SetBaseContext(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.NewMux(d),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Str("prefix", cfg.APIPrefix).Str("config", opts.configPath).Int("models", reg.Len()).Msg("oaigate listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeoutSeconds)*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown error")
		return err
	}
	return nil
}
