package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/LogOfSai/offgrid-bluetooth-chat/internal/ble"
	"github.com/LogOfSai/offgrid-bluetooth-chat/internal/chat"
	"github.com/LogOfSai/offgrid-bluetooth-chat/internal/chat/crypto"
	"github.com/LogOfSai/offgrid-bluetooth-chat/internal/chat/moderation"
	"github.com/LogOfSai/offgrid-bluetooth-chat/internal/config"
	"github.com/LogOfSai/offgrid-bluetooth-chat/internal/logger"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "offgrid-chat",
	Short: "Encrypted device-to-device chat over Bluetooth Low Energy",
	Long: `offgrid-chat discovers nearby peers advertising the chat service,
connects to one, and exchanges end-to-end-encrypted text messages with no
network in between. Both peers must be configured with the same shared
secret.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"path to config file (default: ~/.config/offgrid-chat/config.yaml)")
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(chatCmd)
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the config file (or defaults when none exists at the
// default path) and installs the logger.
func loadConfig() (*config.Config, error) {
	path := configPath
	explicit := path != ""
	if !explicit {
		path = config.DefaultConfigPath()
	}

	cfg, err := config.Load(path)
	if err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	if err := logger.Init(cfg.LogLevel); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newService wires the transport, keys, and moderation gate into the chat
// core per the loaded config.
func newService(cfg *config.Config) (*chat.Service, error) {
	keys, err := crypto.NewStaticKeySource([]byte(cfg.SharedSecret))
	if err != nil {
		return nil, err
	}

	gate := moderation.DefaultGate()
	if !cfg.Moderation.Enabled {
		gate = moderation.NewGate()
	}

	opts := chat.DefaultOptions()
	opts.ScanWindow = time.Duration(cfg.ScanWindow) * time.Second

	svc, err := chat.New(ble.NewBluetoothAdapter(), keys, gate, opts)
	if err != nil {
		return nil, fmt.Errorf("bluetooth init: %w", err)
	}
	return svc, nil
}
