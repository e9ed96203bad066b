package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/botwalk/botwalk"
	"github.com/botwalk/botwalk/internal/logging"
	httpadapter "github.com/botwalk/botwalk/pkg/adapters/http"
	"github.com/botwalk/botwalk/pkg/adapters/httpcall"
	"github.com/botwalk/botwalk/pkg/adapters/memory"
	redisadapter "github.com/botwalk/botwalk/pkg/adapters/redis"
	"github.com/botwalk/botwalk/pkg/domain"
	"github.com/botwalk/botwalk/pkg/flowfile"
	"github.com/botwalk/botwalk/pkg/observability"
	"github.com/botwalk/botwalk/pkg/ports"
)

var serveCmd = &cobra.Command{
	Use:   "serve <flow file>",
	Short: "Serve a flow over the JSON API",
	Long:  `Loads a flow file and exposes it over HTTP: inbound events per instance, instance inspection, flow validation, and Prometheus metrics.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		port, _ := cmd.Flags().GetString("port")
		redisAddr, _ := cmd.Flags().GetString("redis")
		level, _ := cmd.Flags().GetString("log-level")

		if err := runServe(args[0], port, redisAddr, level); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	serveCmd.Flags().String("redis", "", "Redis address for durable state and locking (empty runs in-memory)")
}

// logMessenger logs outbound messages instead of delivering them. The serve
// command has no messaging provider attached; real deployments embed the
// library and inject their own.
type logMessenger struct {
	logger *slog.Logger
}

func (m *logMessenger) Send(ctx context.Context, msg domain.OutboundMessage) error {
	m.logger.Info("outbound message",
		"instance", msg.InstanceID,
		"node", msg.NodeID,
		"text", msg.Text,
		"system", msg.System,
	)
	return nil
}

func runServe(path, port, redisAddr, level string) error {
	logger := logging.New(parseLevel(level))

	flow, err := flowfile.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load flow: %w", err)
	}

	messenger := &logMessenger{logger: logger}
	scheduler := memory.NewScheduler(func(ctx context.Context, step domain.ScheduledStep) error {
		return messenger.Send(ctx, domain.OutboundMessage{
			InstanceID: step.InstanceID,
			NodeID:     step.NodeID,
			Text:       step.Content,
		})
	})

	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg, observability.WithLogger(logger))

	opts := []botwalk.Option{
		botwalk.WithLogger(logger),
		botwalk.WithHooks(metrics.Hooks()),
		botwalk.WithCaller(httpcall.New()),
		botwalk.WithScheduler(scheduler),
	}

	var store ports.StateStore
	if redisAddr != "" {
		rdb := goredis.NewClient(&goredis.Options{Addr: redisAddr})
		store = redisadapter.NewFromClient(rdb)
		opts = append(opts,
			botwalk.WithStore(store),
			botwalk.WithLocker(redisadapter.NewLocker(rdb)),
			botwalk.WithLockTTL(30*time.Second),
			botwalk.WithDeduper(redisadapter.NewDeduper(rdb)),
		)
		defer rdb.Close()
	}

	bot, err := botwalk.New(flow, messenger, opts...)
	if err != nil {
		return err
	}

	handler := httpadapter.NewHandler(bot,
		httpadapter.WithLogger(logger),
		httpadapter.WithGatherer(reg),
	)

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: handler,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr, "flow", flow.ID)
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info("shutting down", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn("graceful shutdown did not complete", "err", err)
			if err := srv.Close(); err != nil {
				return fmt.Errorf("failed to stop server: %w", err)
			}
		}
		logger.Info("server stopped")
	}
	return nil
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
