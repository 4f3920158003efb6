package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/thomastoledo/prust/internal/config"
	"github.com/thomastoledo/prust/internal/logging"
	"github.com/thomastoledo/prust/internal/signaling"
	"github.com/thomastoledo/prust/internal/ui"
)

var (
	flagFrom       string
	flagTo         string
	flagRelayURL   string
	flagSTUN       string
	flagTURN       string
	flagTURNUser   string
	flagTURNPass   string
	flagForceRelay bool
	flagTimeout    time.Duration
)

var chatCmd = &cobra.Command{
	Use:     "chat",
	Aliases: []string{"c"},
	Short:   "Chat with a peer",
	Long: `Join the relay as --from, wait for --to and chat over a direct data channel.

Both sides run the same command with the names swapped.

Examples:
  prust chat --from alice --to bob
  prust chat --from bob --to alice --relay-url wss://relay.example.com/ws
  prust chat --from alice --to bob --turn turn.example.com --force-relay`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagFrom == "" || flagTo == "" {
			return fmt.Errorf("--from and --to are required")
		}
		if flagFrom == flagTo {
			return fmt.Errorf("--from and --to must differ")
		}
		return runChat(cmd, signaling.Participants{UserFrom: flagFrom, UserTo: flagTo})
	},
}

func runChat(cmd *cobra.Command, p signaling.Participants) error {
	logCloser, err := logging.Init(slog.LevelError)
	if err != nil {
		return err
	}
	defer logCloser.Close()

	cfg, err := LoadConfig(config.Options{
		RelayURL:       flagRelayURL,
		STUNServer:     flagSTUN,
		TURNServer:     flagTURN,
		TURNUser:       flagTURNUser,
		TURNPass:       flagTURNPass,
		ForceRelay:     flagForceRelay,
		ConnectTimeout: flagTimeout,
	})
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	logger := slog.Default().With("peer", p.UserTo)

	conn, err := NewConnection(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer conn.Close()

	model := ui.NewChatModel(p.UserTo, conn.Chat, conn.Engine.Snapshot)
	conn.OnChange(model.Notify)

	if err := conn.Start(ctx, p); err != nil {
		return fmt.Errorf("start session: %w", err)
	}

	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	var timedOut, ended atomic.Bool
	go func() {
		timer := time.NewTimer(cfg.ConnectTimeout)
		defer timer.Stop()
		select {
		case <-conn.Opened():
		case <-conn.Engine.Done():
			ended.Store(true)
			program.Quit()
		case <-timer.C:
			timedOut.Store(true)
			conn.Engine.Close()
			program.Quit()
		case <-ctx.Done():
		}
	}()

	started := time.Now()
	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("chat screen: %w", err)
	}

	if timedOut.Load() {
		return fmt.Errorf("%s did not connect within %s", p.UserTo, cfg.ConnectTimeout)
	}
	if ended.Load() {
		if err := conn.RelayErr(); err != nil {
			return fmt.Errorf("session ended before %s connected: relay: %w", p.UserTo, err)
		}
		return fmt.Errorf("session ended before %s connected", p.UserTo)
	}

	stats := conn.Chat.Stats()
	ui.RenderSessionSummary(fmt.Sprintf("%s Session Summary", ui.IconChat), ui.SessionSummary{
		Room:     conn.Engine.Snapshot().RoomID,
		Peer:     p.UserTo,
		Sent:     stats.Sent,
		Received: stats.Received,
		Duration: time.Since(started),
	})
	return nil
}

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().StringVar(&flagFrom, "from", "", "Your name")
	chatCmd.Flags().StringVar(&flagTo, "to", "", "Name of the peer to chat with")
	chatCmd.Flags().StringVar(&flagRelayURL, "relay-url", "", "Signaling relay websocket URL")
	chatCmd.Flags().StringVarP(&flagSTUN, "stun", "s", "", "Custom STUN server")
	chatCmd.Flags().StringVarP(&flagTURN, "turn", "t", "", "Custom TURN server")
	chatCmd.Flags().StringVarP(&flagTURNUser, "turn-user", "u", "", "TURN username")
	chatCmd.Flags().StringVarP(&flagTURNPass, "turn-pass", "p", "", "TURN password")
	chatCmd.Flags().BoolVarP(&flagForceRelay, "force-relay", "r", false, "Force relay mode")
	chatCmd.Flags().DurationVar(&flagTimeout, "timeout", 0, "How long to wait for the peer (default 30s)")
}
