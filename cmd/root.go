// SPDX-License-Identifier: GPL-2.0-or-later

package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mjmcg/jvc-projector-ha/pkg/dila"
)

var (
	// LAN connection flags
	flagHost string
	flagPort int

	// Serial connection flags
	flagSerial string
	flagBaud   int

	flagConfig      string
	flagDebug       bool
	flagAskPassword bool
	flagTimeout     time.Duration

	// extraOpts lets subcommands add client options before newClient runs.
	extraOpts []dila.Option
)

var rootCmd = &cobra.Command{
	Use:   "dilactl",
	Short: "JVC D-ILA projector control",
	Long: `dilactl - Control JVC D-ILA projectors over the network or RS-232.

Connection modes:
  LAN:    --host 192.168.1.50 [--port 20554]
  Serial: --serial /dev/ttyUSB0 [--baud 19200]

Connection settings may also come from a config file (--config, default
~/.config/dilactl/config.toml); command-line flags take precedence.

If the projector has a network password configured, it is read from the
JVC_PASSWORD environment variable, the config file, or prompted for with
--ask-password. The --password flag is intentionally not provided to
avoid leaking credentials in shell history.`,
	Version: "1.0.0",
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagHost, "host", "H", "", "Projector hostname or IP address")
	rootCmd.PersistentFlags().IntVarP(&flagPort, "port", "p", dila.DefaultPort, "LAN control port")
	rootCmd.PersistentFlags().StringVarP(&flagSerial, "serial", "s", "", "Serial port device (RS-232 mode)")
	rootCmd.PersistentFlags().IntVarP(&flagBaud, "baud", "b", dila.DefaultSerialBaud, "Baud rate (serial only)")
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "Config file path")
	rootCmd.PersistentFlags().BoolVarP(&flagDebug, "debug", "d", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&flagAskPassword, "ask-password", false, "Prompt for the network password")
	rootCmd.PersistentFlags().DurationVarP(&flagTimeout, "timeout", "t", 30*time.Second, "Overall command timeout")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// newLogger builds the CLI logger writing human-readable output to stderr.
func newLogger() zerolog.Logger {
	level := zerolog.WarnLevel
	if flagDebug {
		level = zerolog.DebugLevel
	}
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// newClient resolves config file and flags into a connected-ready client.
func newClient() (*dila.Client, error) {
	cfg, err := loadConfig(flagConfig)
	if err != nil {
		return nil, err
	}

	host := cfg.Host
	if flagHost != "" {
		host = flagHost
	}
	serialDev := cfg.Serial
	if flagSerial != "" {
		serialDev = flagSerial
	}
	port := cfg.Port
	if rootCmd.PersistentFlags().Changed("port") || port == 0 {
		port = flagPort
	}
	baud := cfg.Baud
	if rootCmd.PersistentFlags().Changed("baud") || baud == 0 {
		baud = flagBaud
	}

	if host == "" && serialDev == "" {
		return nil, fmt.Errorf("either --host or --serial must be specified")
	}

	opts := []dila.Option{
		dila.WithLogger(newLogger()),
		dila.WithPort(port),
	}
	if serialDev != "" {
		opts = append(opts, dila.WithSerial(serialDev, baud))
	} else {
		password, err := resolvePassword(cfg)
		if err != nil {
			return nil, err
		}
		if password != "" {
			opts = append(opts, dila.WithPassword(password))
		}
	}
	if d := cfg.pollInterval(); d > 0 {
		opts = append(opts, dila.WithPollInterval(d))
	}
	if d := cfg.commandTimeout(); d > 0 {
		opts = append(opts, dila.WithCommandTimeout(d))
	}
	opts = append(opts, extraOpts...)

	return dila.New(host, opts...), nil
}

// resolvePassword picks the network password from flag prompt, config,
// or environment, in that order of explicitness.
func resolvePassword(cfg *fileConfig) (string, error) {
	if flagAskPassword {
		return promptPassword()
	}
	if cfg.Password != "" {
		return cfg.Password, nil
	}
	return os.Getenv("JVC_PASSWORD"), nil
}

// promptPassword reads the password from the terminal without echo.
func promptPassword() (string, error) {
	fmt.Fprint(os.Stderr, "Password: ")
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		// Fallback to regular input if terminal functions fail
		reader := bufio.NewReader(os.Stdin)
		password, rerr := reader.ReadString('\n')
		if rerr != nil {
			return "", fmt.Errorf("failed to read password: %v", rerr)
		}
		fmt.Fprintln(os.Stderr)
		return strings.TrimSpace(password), nil
	}
	fmt.Fprintln(os.Stderr)
	return string(passwordBytes), nil
}

// commandContext returns a context bounded by --timeout and cancelled on
// SIGINT/SIGTERM.
func commandContext() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	if flagTimeout <= 0 {
		return ctx, stop
	}
	ctx, cancel := context.WithTimeout(ctx, flagTimeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

// withClient connects a client, runs fn, and tears the session down.
func withClient(fn func(ctx context.Context, c *dila.Client) error) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	defer c.Disconnect()

	ctx, cancel := commandContext()
	defer cancel()

	if err := c.Connect(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	return fn(ctx, c)
}
