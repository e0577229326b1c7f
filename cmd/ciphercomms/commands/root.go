package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"ciphercomms/internal/app"
	"ciphercomms/internal/domain"
)

var (
	home       string
	configPath string
	relayURL   string
	userID     string
	passphrase string
	logLevel   string

	cfg    app.Config
	appCtx *app.Wire
)

// Execute runs the CLI with os.Args.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "ciphercomms",
		Short:        "End-to-end encrypted chat CLI",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if cfg, err = app.LoadConfig(configPath); err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("home") || cfg.Home == "" {
				cfg.Home = home
			}
			if flags.Changed("relay") {
				cfg.RelayURL = relayURL
			}
			if flags.Changed("user") {
				cfg.UserID = userID
			}
			if flags.Changed("log-level") {
				cfg.LogLevel = logLevel
			}
			if err := cfg.ResolveHome(); err != nil {
				return err
			}

			log := app.NewLogger(cmd.ErrOrStderr(), cfg.LogLevel)
			appCtx, err = app.NewWire(cfg, passphrase, log, nil)
			return err
		},
	}

	root.PersistentFlags().StringVar(&home, "home", "", "config dir (default ~/.ciphercomms)")
	root.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file")
	root.PersistentFlags().StringVar(&relayURL, "relay", "", "relay base URL (e.g. http://127.0.0.1:8080); empty uses local stores")
	root.PersistentFlags().StringVar(&userID, "user", "", "your user id")
	root.PersistentFlags().StringVarP(&passphrase, "passphrase", "p", "", "passphrase protecting your private key")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(registerCmd(), keysCmd(), chatCmd(), sendCmd(), recvCmd(), deleteCmd())
	return root
}

func currentUser() (domain.UserID, error) {
	if cfg.UserID == "" {
		return "", fmt.Errorf("--user required")
	}
	return domain.UserID(cfg.UserID), nil
}

func requirePassphrase() error {
	if passphrase == "" {
		return fmt.Errorf("passphrase required (-p)")
	}
	return nil
}
