// SPDX-License-Identifier: GPL-2.0-or-later

package cmd

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/mjmcg/jvc-projector-ha/pkg/dila"
)

var bridgeCmd = &cobra.Command{
	Use:   "bridge",
	Short: "Serve projector state and control over WebSocket",
	Long: `Run a WebSocket bridge for automation systems.

Clients connect to ws://<listen>/ws and receive the full state snapshot
on connect, then a push for every state change. Binary messages carry
CBOR-encoded [type, payload] pairs:

  1  STATE    server -> client  {field: value, ...}
  2  COMMAND  client -> server  {"name": "...", "arg": "..."}
  3  RESULT   server -> client  {"name": "...", "value": "...", "error": "..."}

Commands run through the same ordered queue as the CLI, so a bridge
client and a local operator never interleave half-finished commands.`,
	RunE: runBridge,
}

var bridgeListen string

func init() {
	rootCmd.AddCommand(bridgeCmd)
	bridgeCmd.Flags().StringVar(&bridgeListen, "listen", ":20555", "Bridge listen address")
}

// Bridge message types.
const (
	bridgeMsgState   uint8 = 1
	bridgeMsgCommand uint8 = 2
	bridgeMsgResult  uint8 = 3
)

type bridgeCommand struct {
	Name string `cbor:"name"`
	Arg  string `cbor:"arg,omitempty"`
}

type bridgeResult struct {
	Name  string `cbor:"name"`
	Value string `cbor:"value,omitempty"`
	Error string `cbor:"error,omitempty"`
}

func runBridge(cmd *cobra.Command, args []string) error {
	// The bridge runs until interrupted.
	flagTimeout = 0

	return withClient(func(ctx context.Context, c *dila.Client) error {
		log := newLogger()
		upgrader := websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		}

		mux := http.NewServeMux()
		mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
			conn, err := upgrader.Upgrade(w, r, nil)
			if err != nil {
				log.Warn().Err(err).Msg("websocket upgrade failed")
				return
			}
			log.Info().Str("remote", r.RemoteAddr).Msg("bridge client connected")
			serveBridgeClient(ctx, c, conn)
			log.Info().Str("remote", r.RemoteAddr).Msg("bridge client disconnected")
		})

		srv := &http.Server{Addr: bridgeListen, Handler: mux}
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()

		log.Info().Str("listen", bridgeListen).Msg("bridge listening")
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			return fmt.Errorf("bridge server: %w", err)
		}
		return nil
	})
}

// serveBridgeClient pumps one WebSocket session: push state, accept
// commands. All writes funnel through a single goroutine; the WebSocket
// connection allows only one concurrent writer.
func serveBridgeClient(ctx context.Context, c *dila.Client, conn *websocket.Conn) {
	defer conn.Close()

	outbound := make(chan []byte, 16)
	done := make(chan struct{})
	defer close(done)

	send := func(payload []byte) {
		select {
		case outbound <- payload:
		case <-done:
		default:
			// A stalled client drops pushes rather than blocking the
			// publisher; the next state change resyncs it.
		}
	}

	// Full snapshot first, then diffs as they happen.
	send(encodeBridgeState(c.State()))
	unsub := c.Subscribe(func(s *dila.DeviceState) {
		send(encodeBridgeState(s))
	})
	defer unsub()

	go func() {
		for {
			select {
			case msg := <-outbound:
				if err := conn.WriteMessage(websocket.BinaryMessage, msg); err != nil {
					conn.Close()
					return
				}
			case <-done:
				return
			}
		}
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if messageType != websocket.BinaryMessage {
			continue
		}
		cmd, err := decodeBridgeCommand(data)
		if err != nil {
			continue
		}

		cmdCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		value, err := c.SendCommand(cmdCtx, cmd.Name, cmd.Arg)
		cancel()

		result := bridgeResult{Name: cmd.Name, Value: value}
		if err != nil {
			result.Error = err.Error()
		}
		if msg, err := cbor.Marshal([]interface{}{bridgeMsgResult, result}); err == nil {
			send(msg)
		}
	}
}

// encodeBridgeState serializes a snapshot as a [STATE, fields] message.
func encodeBridgeState(s *dila.DeviceState) []byte {
	payload := map[string]interface{}{
		"power":        s.Power,
		"input":        s.Input,
		"source":       s.Source,
		"resolution":   s.Resolution,
		"content_type": s.ContentType,
		"colorimetry":  s.Colorimetry,
		"picture_mode": s.PictureMode,
		"laser_power":  s.LaserPower,
		"light_time":   s.LightTime,
		"model":        s.Model,
		"mac":          s.Mac,
		"updated_at":   s.UpdatedAt.Unix(),
		"stale":        s.Stale,
	}
	data, err := cbor.Marshal([]interface{}{bridgeMsgState, payload})
	if err != nil {
		panic(err) // static payload shape, cannot fail
	}
	return data
}

// decodeBridgeCommand parses a [COMMAND, {name, arg}] message.
func decodeBridgeCommand(data []byte) (bridgeCommand, error) {
	var envelope []cbor.RawMessage
	if err := cbor.Unmarshal(data, &envelope); err != nil {
		return bridgeCommand{}, err
	}
	if len(envelope) != 2 {
		return bridgeCommand{}, fmt.Errorf("malformed bridge message: %d elements", len(envelope))
	}
	var msgType uint8
	if err := cbor.Unmarshal(envelope[0], &msgType); err != nil {
		return bridgeCommand{}, err
	}
	if msgType != bridgeMsgCommand {
		return bridgeCommand{}, fmt.Errorf("unexpected bridge message type %d", msgType)
	}
	var cmd bridgeCommand
	if err := cbor.Unmarshal(envelope[1], &cmd); err != nil {
		return bridgeCommand{}, err
	}
	if cmd.Name == "" {
		return bridgeCommand{}, fmt.Errorf("bridge command without a name")
	}
	return cmd, nil
}
