package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/LogOfSai/offgrid-bluetooth-chat/internal/chat"
	"github.com/LogOfSai/offgrid-bluetooth-chat/internal/chat/moderation"
	"github.com/LogOfSai/offgrid-bluetooth-chat/internal/gateway"
)

var chatDeviceID string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Connect to a device and exchange encrypted messages",
	Long: `Connects to the given device (discover its ID with "scan" first),
subscribes to its messages, and bridges stdin lines to encrypted sends.
With gateway.enabled in the config, received messages are also pushed to
local WebSocket consumers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		svc, err := newService(cfg)
		if err != nil {
			return err
		}
		defer svc.Cleanup()

		fmt.Printf("Scanning for %ds...\n", cfg.ScanWindow)
		if err := svc.StartScan(); err != nil {
			return err
		}

		if err := svc.Connect(chatDeviceID); err != nil {
			return err
		}
		sub, err := svc.Subscribe(chatDeviceID)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		var gw *gateway.Server
		if cfg.Gateway.Enabled {
			gw = gateway.NewServer(svc, cfg.Gateway.Addr)
			go func() {
				if err := gw.Start(ctx); err != nil {
					slog.Error("[gateway] server failed", "error", err)
				}
			}()
		}

		// Receive loop: print and fan out until the subscription closes.
		go func() {
			for msg := range sub.C {
				fmt.Printf("<%s> %s\n", msg.DeviceID, msg.Content)
				if gw != nil {
					gw.Publish(msg)
				}
			}
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		// Send loop: one stdin line per message.
		lines := make(chan string)
		go func() {
			scanner := bufio.NewScanner(os.Stdin)
			for scanner.Scan() {
				lines <- scanner.Text()
			}
			close(lines)
		}()

		fmt.Printf("Connected to %s. Type to send, Ctrl+C to quit.\n", chatDeviceID)
		for {
			select {
			case line, ok := <-lines:
				if !ok {
					return nil
				}
				if line == "" {
					continue
				}
				if _, err := svc.Send(chatDeviceID, line); err != nil {
					var rej *moderation.RejectionError
					switch {
					case errors.As(err, &rej):
						fmt.Printf("blocked: %s\n", rej.Reason)
					case errors.Is(err, chat.ErrNotConnected):
						fmt.Println("peer disconnected")
						return nil
					default:
						fmt.Printf("send failed: %v\n", err)
					}
				}
			case sig := <-sigCh:
				slog.Info("shutting down", "signal", sig.String())
				return nil
			}
		}
	},
}

func init() {
	chatCmd.Flags().StringVarP(&chatDeviceID, "device", "d", "", "device ID to connect to (required)")
	chatCmd.MarkFlagRequired("device")
}
