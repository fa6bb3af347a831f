// Package cmd provides the command-line interface for mdbook-dice with
// configuration management supporting multiple configuration sources.
//
// Configuration System:
//
//	1. Command-line flags (--config, --log-level) - highest priority
//	2. MDBOOK_DICE_CONFIG_FILE environment variable - custom config file path
//	3. Individual environment variables (MDBOOK_DICE_CLASSES_PLAIN, etc.)
//	4. Configuration files (.mdbook-dice.yml) - lowest priority
package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/mdbook-dice/internal/config"
	dverrors "github.com/conneroisu/mdbook-dice/internal/errors"
	"github.com/conneroisu/mdbook-dice/internal/logging"
	"github.com/conneroisu/mdbook-dice/internal/preprocessor"
)

var (
	cfgFile string

	// configErr holds a failure to read an existing config file
	configErr error

	loggerMu     sync.Mutex
	activeLogger logging.Logger
)

// rootCmd runs the preprocessor when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mdbook-dice",
	Short: "An mdBook preprocessor that styles dice roll notation",
	Long: `mdbook-dice rewrites dice roll notation in mdBook chapters into styled
HTML spans.

  [[2D6]]    ->  <span class='dice-roll'>2D6</span>
  [[+1D20]]  ->  <span class='dice-roll advantage'>1D20</span>
  [[-1D20]]  ->  <span class='dice-roll disadvantage'>1D20</span>

Add it to book.toml and mdBook runs it for every build:

  [preprocessor.dice]
  command = "mdbook-dice"

Without a subcommand it reads mdBook's [context, book] JSON from stdin and
writes the processed book to stdout.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runPreprocess,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

// Logger returns the logger built by the last command, or a stderr logger
// when no command got that far.
func Logger() logging.Logger {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	if activeLogger == nil {
		return logging.NewLogger(logging.DefaultConfig())
	}
	return activeLogger
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .mdbook-dice.yml, can also use MDBOOK_DICE_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

// initConfig points viper at the config file and environment.
//
// Config file priority (highest to lowest):
//  1. --config flag
//  2. MDBOOK_DICE_CONFIG_FILE environment variable
//  3. .mdbook-dice.yml in the current directory
//
// A missing default file is not an error. A file that exists but cannot be
// read or parsed is reported when the command loads its configuration.
func initConfig() {
	configErr = nil

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv(config.EnvPrefix + "_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".mdbook-dice")
	}

	viper.SetEnvPrefix(config.EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			configErr = err
		}
	}
}

// env is what every command needs once configuration is loaded
type env struct {
	config *config.Config
	logger *logging.DiceLogger
}

// loadEnv loads the configuration and builds a stderr logger from it.
func loadEnv(cmd *cobra.Command) (*env, error) {
	if configErr != nil {
		return nil, dverrors.NewConfigError("unable to read the configuration file", configErr)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, dverrors.NewConfigError("unable to load the configuration", err)
	}

	logCfg, err := cfg.LoggerConfig()
	if err != nil {
		return nil, dverrors.NewConfigError("invalid log settings", err)
	}
	logCfg.Output = cmd.ErrOrStderr()
	logger := logging.NewLogger(logCfg)

	loggerMu.Lock()
	activeLogger = logger
	loggerMu.Unlock()

	if used := viper.ConfigFileUsed(); used != "" {
		logger.Debug(cmd.Context(), "Using config file", "path", used)
	}

	return &env{config: cfg, logger: logger}, nil
}

func runPreprocess(cmd *cobra.Command, args []string) error {
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}

	pre := preprocessor.NewDice(e.config, e.logger)
	err = preprocessor.HandlePreprocessing(pre, cmd.InOrStdin(), cmd.OutOrStdout(), e.logger)
	if dverrors.IsType(err, dverrors.ErrorTypeInput) {
		e.logger.Info(cmd.Context(), "mdbook-dice reads a book from stdin and is normally run by `mdbook build`; "+
			"use `mdbook-dice render` to rewrite files directly")
	}
	return err
}
