//go:build !baremetal

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	watch "github.com/nuwatch/modularwatch"
	"github.com/nuwatch/modularwatch/battery"
	"github.com/nuwatch/modularwatch/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "modularwatch",
	Short: "NU Modular Watch BLE peripheral",
	Long: `Runs the NU Modular Watch peripheral on the host Bluetooth adapter.

The watch advertises as a connectable peripheral, exposes a counter,
battery and device information service and publishes the temperature
read from an MLX90614 IR thermometer on the counter characteristic.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the watch on the host Bluetooth adapter",
	RunE:  runWatch,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(simulateCmd)

	rootCmd.PersistentFlags().StringP("config", "c", "", "Config file (default "+config.DefaultConfigPath()+")")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
}

// loadConfig reads the config file named by --config, or the default config
// file if it exists, and applies --log-level.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg := config.Default()
	if path == "" {
		if _, err := os.Stat(config.DefaultConfigPath()); err == nil {
			path = config.DefaultConfigPath()
		}
	}
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	return cfg, nil
}

// signalContext returns a context canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newBattery(cfg *config.Config) (watch.BatteryMonitor, error) {
	switch cfg.Battery.Path {
	case "":
		return nil, nil
	case "auto":
		return battery.NewSysfsMonitor("")
	default:
		return battery.NewSysfsMonitor(cfg.Battery.Path)
	}
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, err := cfg.NewLogger(os.Stderr)
	if err != nil {
		return err
	}

	link, closeLink, err := newLink(cfg, log)
	if err != nil {
		return err
	}
	defer closeLink()

	thermometer, closeSensor, err := newSensor(cfg)
	if err != nil {
		return err
	}
	defer closeSensor()

	opts := cfg.Options()
	opts.Logger = log
	if opts.Battery, err = newBattery(cfg); err != nil {
		return err
	}
	if thermometer == nil {
		log.Warn("no temperature sensor configured")
	}

	ctx, cancel := signalContext()
	defer cancel()

	log.WithFields(logrus.Fields{
		"backend": cfg.Link.Backend,
		"sensor":  cfg.Sensor.Kind,
	}).Info("starting watch")
	return serve(ctx, watch.NewPeripheral(link, thermometer, watch.TickerTimer{}, opts))
}
