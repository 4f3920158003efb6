package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/thomastoledo/prust/internal/config"
	"github.com/thomastoledo/prust/internal/logging"
	"github.com/thomastoledo/prust/internal/relay"
)

const shutdownTimeout = 5 * time.Second

var (
	flagListen      string
	flagRedisAddr   string
	flagRedisPrefix string
)

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Run the signaling relay",
	Long: `Run the websocket relay that pairs participants and forwards their signals.

Room membership is kept in memory unless --redis-addr is given.

Examples:
  prust relay
  prust relay --listen :9000 --redis-addr localhost:6379`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRelay(cmd.Context())
	},
}

func runRelay(ctx context.Context) error {
	logCloser, err := logging.Init(slog.LevelInfo)
	if err != nil {
		return err
	}
	defer logCloser.Close()

	cfg, err := LoadConfig(config.Options{
		ListenAddr:  flagListen,
		RedisAddr:   flagRedisAddr,
		RedisPrefix: flagRedisPrefix,
	})
	if err != nil {
		return err
	}
	logger := slog.Default()

	var presence relay.Presence
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		presence = relay.NewRedisPresence(rdb, cfg.RedisPrefix)
		logger.Info("using redis presence", "addr", cfg.RedisAddr)
	}

	hub := relay.NewHub(presence, logger)
	go hub.Run(ctx)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           relay.NewServer(hub),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("relay shutdown", "err", err)
		}
	}()

	logger.Info("starting signaling relay", "addr", cfg.ListenAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func init() {
	rootCmd.AddCommand(relayCmd)

	relayCmd.Flags().StringVarP(&flagListen, "listen", "l", "", "Address to listen on (default :8080)")
	relayCmd.Flags().StringVar(&flagRedisAddr, "redis-addr", "", "Redis address for room presence")
	relayCmd.Flags().StringVar(&flagRedisPrefix, "redis-prefix", "", "Redis key prefix (default prust)")
}
