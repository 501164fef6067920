package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jingkaihe/skillserver/pkg/logger"
	mcpserver "github.com/jingkaihe/skillserver/pkg/mcp/server"
	"github.com/jingkaihe/skillserver/pkg/presenter"
	"github.com/jingkaihe/skillserver/pkg/tools"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type ServeConfig struct {
	Transport string
	Addr      string
}

func NewServeConfig() *ServeConfig {
	return &ServeConfig{
		Transport: defaultTransport,
		Addr:      defaultAddr,
	}
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve skills as MCP tools",
	Long: `Load every skill bundle under the skills directory once and serve them as MCP tools.

The default transport is stdio: the MCP stream uses stdin/stdout and logs go to stderr.
With --transport sse the server listens on --addr and serves /sse, /message and /healthz.
The server runs until interrupted with Ctrl+C or SIGTERM.`,
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := cmd.Context()
		config := getServeConfigFromFlags(cmd)
		if err := runServeCommand(ctx, config); err != nil {
			presenter.Error(err, "skill server failed")
			os.Exit(1)
		}
	},
}

func init() {
	defaults := NewServeConfig()
	serveCmd.Flags().String("transport", defaults.Transport, "MCP transport (stdio or sse)")
	serveCmd.Flags().String("addr", defaults.Addr, "Listen address for the sse transport")
}

func getServeConfigFromFlags(cmd *cobra.Command) *ServeConfig {
	config := NewServeConfig()

	if viper.IsSet("transport") {
		config.Transport = viper.GetString("transport")
	}
	if viper.IsSet("addr") {
		config.Addr = viper.GetString("addr")
	}

	// Explicit flags win over config and environment
	if cmd.Flags().Changed("transport") {
		config.Transport, _ = cmd.Flags().GetString("transport")
	}
	if cmd.Flags().Changed("addr") {
		config.Addr, _ = cmd.Flags().GetString("addr")
	}

	return config
}

func validateServeConfig(config *ServeConfig) error {
	switch config.Transport {
	case "stdio":
		return nil
	case "sse":
		if config.Addr == "" {
			return errors.New("addr cannot be empty for the sse transport")
		}
		return nil
	default:
		return errors.Errorf("unknown transport %q (want stdio or sse)", config.Transport)
	}
}

func runServeCommand(ctx context.Context, config *ServeConfig) error {
	if err := validateServeConfig(config); err != nil {
		return errors.Wrap(err, "invalid server configuration")
	}

	skillsConfig := getSkillsConfigFromViper()
	cache, err := buildCache(ctx, skillsConfig)
	if err != nil {
		return err
	}
	if problems := cache.Problems(); problems != nil {
		logger.G(ctx).WithField("problems", problems.Error()).Warn("some skills could not be loaded")
	}

	runner, err := newRunner(skillsConfig)
	if err != nil {
		return err
	}

	mcpServer, err := mcpserver.New(ctx, tools.NewSkillTools(cache, runner))
	if err != nil {
		return errors.Wrap(err, "failed to create MCP server")
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if config.Transport == "stdio" {
		return mcpserver.ServeStdio(ctx, mcpServer, os.Stdin, os.Stdout)
	}

	httpServer, err := mcpserver.NewHTTPServer(mcpServer, config.Addr)
	if err != nil {
		return errors.Wrap(err, "failed to create MCP HTTP server")
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- httpServer.Start(ctx)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		logger.G(ctx).Info("shutdown signal received, stopping server")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		return httpServer.Shutdown(shutdownCtx)
	}
}
