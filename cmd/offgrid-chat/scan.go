package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run one discovery window and list nearby chat devices",
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

		devices := svc.Devices()
		if len(devices) == 0 {
			fmt.Println("No chat devices found.")
			return nil
		}
		for _, dev := range devices {
			fmt.Printf("  %-24s %s  (%d dBm)\n", dev.Name, dev.ID, dev.RSSI)
		}
		return nil
	},
}
