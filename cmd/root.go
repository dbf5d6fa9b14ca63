// -- cmd/root.go --
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/taxgo/internal/config"
	"github.com/xkilldash9x/taxgo/internal/observability"
	"github.com/xkilldash9x/taxgo/internal/prompt"
	"github.com/xkilldash9x/taxgo/internal/sheet"
)

// app carries what the subcommands share: loaded configuration, the
// process-wide prompter and the factories tests replace.
type app struct {
	cfgFile string
	v       *viper.Viper
	cfg     *config.Config
	logger  *zap.Logger

	in       io.Reader
	out      io.Writer
	prompter prompt.Prompter

	launch   launchFunc
	newStore func(ctx context.Context, cfg config.SheetConfig, logger *zap.Logger) (sheet.Store, error)
}

func newApp() *app {
	return &app{
		v:      viper.New(),
		in:     os.Stdin,
		out:    os.Stdout,
		launch: launchChrome,
		newStore: func(ctx context.Context, cfg config.SheetConfig, logger *zap.Logger) (sheet.Store, error) {
			return sheet.NewClient(ctx, cfg, logger)
		},
	}
}

// NewRootCommand builds a fresh command tree. Each call has its own viper
// instance so flags and config never leak between executions.
func NewRootCommand() *cobra.Command {
	return newRootCommand(newApp())
}

func newRootCommand(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "taxgo",
		Short:         "홈택스 세금계산서 건별발급 자동화",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// This function runs before any command, setting up config and logging.
			if err := a.initialize(cmd); err != nil {
				return err
			}
			a.logger.Info("Starting taxgo", zap.String("version", Version), zap.String("command", cmd.Name()))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			observability.Sync()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "config file (default is ./config.yaml)")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	rootCmd.AddCommand(
		newRunCmd(a),
		newLoginCmd(a),
		newProfilesCmd(a),
		newVersionCmd(),
	)
	return rootCmd
}

// Execute runs the command tree with ctx, which main cancels on SIGINT.
func Execute(ctx context.Context) error {
	rootCmd := NewRootCommand()
	err := rootCmd.ExecuteContext(ctx)
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		observability.GetLogger().Info("종료 중...")
	default:
		observability.GetLogger().Error("Command execution failed", zap.Error(err))
	}
	observability.Sync()
	return err
}

// initialize reads config and environment, then sets up the global logger.
func (a *app) initialize(cmd *cobra.Command) error {
	if err := initializeConfig(a.v, a.cfgFile); err != nil {
		return err
	}
	if err := a.v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	cfg, err := config.NewConfigFromViper(a.v)
	if err != nil {
		// Initialize a fallback logger so the failure is still reported.
		observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "taxgo"})
		return err
	}
	observability.InitializeLogger(cfg.Logger)
	a.cfg = cfg
	a.logger = observability.GetLogger()
	if a.prompter == nil {
		a.prompter = prompt.NewConsole(a.in, a.out)
	}
	return nil
}

// initializeConfig reads in config file and ENV variables if set.
func initializeConfig(v *viper.Viper, cfgFile string) error {
	config.SetDefaults(v)
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("TAXGO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; proceed with defaults/env vars
	}
	return nil
}
