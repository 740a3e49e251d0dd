package main

import (
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/obsidianstack/serialbridge/pkg/types"
)

// tailCmd follows a running bridge from the terminal.
var tailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Print the live stream of a running bridge",
	Long: `Connect to the push channel of a running bridge and print every
status and data message until interrupted.

Example:
  serialbridge tail --url ws://raspberrypi.local:3000/ws`,
	RunE: runTail,
}

func init() {
	rootCmd.AddCommand(tailCmd)
	tailCmd.Flags().String("url", "ws://localhost:3000/ws", "WebSocket URL of the bridge")
}

func runTail(cmd *cobra.Command, args []string) error {
	url, _ := cmd.Flags().GetString("url")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = 5 * time.Second
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", url, err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.WriteControl(websocket.CloseMessage, //nolint:errcheck
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		conn.Close()
	}()

	out := cmd.OutOrStdout()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		fmt.Fprintln(out, formatLine(data, time.Now()))
	}
}

// envelope holds the fields of either push message type.
type envelope struct {
	Type      string          `json:"type"`
	Connected bool            `json:"connected"`
	Message   string          `json:"message"`
	Raw       string          `json:"raw"`
	Timestamp string          `json:"timestamp"`
	Parsed    json.RawMessage `json:"parsed"`
}

// formatLine renders one push message for the terminal. Unknown payloads are
// printed as received.
func formatLine(data []byte, now time.Time) string {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return errorStyle.Render("? ") + string(data)
	}

	ts := now.Format("15:04:05.000")
	if env.Timestamp != "" {
		if t, err := time.Parse(types.TimestampFormat, env.Timestamp); err == nil {
			ts = t.Local().Format("15:04:05.000")
		}
	}
	prefix := mutedStyle.Render(ts) + " "

	switch env.Type {
	case types.TypeStatus:
		msg := env.Message
		if msg == "" {
			msg = "disconnected"
			if env.Connected {
				msg = "connected"
			}
		}
		if env.Connected {
			return prefix + connectedStyle.Render("● "+msg)
		}
		return prefix + lostStyle.Render("○ "+msg)
	case types.TypeData:
		if len(env.Parsed) > 0 {
			return prefix + jsonStyle.Render(env.Raw)
		}
		return prefix + env.Raw
	default:
		return prefix + errorStyle.Render(string(data))
	}
}
