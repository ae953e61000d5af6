// Package cli is the terminal call screen: cobra commands that mount a
// session coordinator against the signaling hub.
package cli

import (
	"github.com/dkeye/Interview/internal/config"
	"github.com/spf13/cobra"
)

var (
	signalURL string
	logLevel  string
	noCamera  bool
	noMic     bool
)

var rootCmd = &cobra.Command{
	Use:           "interview",
	Short:         "Interview call screen: join or host a one-on-one video interview",
	Long:          `Connects to the interview signaling hub. Commands: join, host.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&signalURL, "signal-url", "", "signaling endpoint (overrides client.signal_url)")
	pf.StringVar(&logLevel, "log-level", "", "zerolog level (overrides log_level)")
	pf.BoolVar(&noCamera, "no-camera", false, "join without sending video")
	pf.BoolVar(&noMic, "no-mic", false, "join without sending audio")

	rootCmd.AddCommand(joinCmd)
	rootCmd.AddCommand(hostCmd)
}

// Execute runs the root command and returns the error (for main to log).
func Execute() error {
	return rootCmd.Execute()
}

func loadConfig() (*config.Config, error) {
	config.SetupLogger("info")
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	level := cfg.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	config.SetupLogger(level)
	if signalURL != "" {
		cfg.Client.SignalURL = signalURL
	}
	if noCamera {
		cfg.Client.Camera = false
	}
	if noMic {
		cfg.Client.Mic = false
	}
	return cfg, nil
}
