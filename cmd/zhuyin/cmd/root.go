// Package cmd contains all CLI commands for the zhuyin tool.
package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/f3rmion/zhuyin/internal/config"
	"github.com/f3rmion/zhuyin/internal/ime"
	"github.com/f3rmion/zhuyin/internal/lexicon"
	"github.com/f3rmion/zhuyin/internal/logging"
	"github.com/f3rmion/zhuyin/internal/tui"
	"github.com/f3rmion/zhuyin/internal/tui/bigchar"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "zhuyin",
	Short: "Zhuyin (Bopomofo) phonetic input engine",
	Long: `zhuyin turns Zhuyin keystrokes into Chinese text.

Symbols are typed on the standard (Dachen) keyboard layout. After every
keystroke the engine offers candidates drawn from a JSON lexicon, optionally
mirrored into an indexed SQLite store:
  - whole-buffer terms and segmented sentences
  - terms covering a leading part of the buffer
  - continuations of the last selected term

Running 'zhuyin' without arguments launches the interactive TUI.`,
	SilenceUsage: true,
	RunE:         runTUI,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/zhuyin/config.yaml)")
	flags.String("data-dir", "", "directory holding words.json and phrases.json")
	flags.String("db", "", "path of the indexed lexicon database")
	flags.Bool("no-storage", false, "use only the JSON lexicon")
	flags.Bool("verbose", false, "verbose output")

	viper.BindPFlag("data_dir", flags.Lookup("data-dir"))
	viper.BindPFlag("db", flags.Lookup("db"))
	viper.BindPFlag("no_storage", flags.Lookup("no-storage"))
	viper.BindPFlag("verbose", flags.Lookup("verbose"))
}

// initConfig resolves the config file path and reads ENV variables.
func initConfig() {
	if cfgFile != "" {
		viper.Set("config_path", config.ExpandPath(cfgFile))
	} else {
		viper.Set("config_path", config.DefaultPath())
	}

	viper.SetEnvPrefix("ZHUYIN")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// getConfigPath returns the configuration file path.
func getConfigPath() string {
	return viper.GetString("config_path")
}

// loadConfig reads the config file and applies flag and environment
// overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return nil, err
	}

	if dir := viper.GetString("data_dir"); dir != "" {
		cfg.SetDataDir(dir)
	}
	if db := viper.GetString("db"); db != "" {
		cfg.Storage.Path = config.ExpandPath(db)
	}
	if viper.GetBool("no_storage") {
		cfg.Storage.Enabled = false
	}
	if viper.GetBool("verbose") {
		cfg.Log.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", getConfigPath(), err)
	}
	return cfg, nil
}

// newLexicon wires the JSON store and, when enabled, the SQLite store.
func newLexicon(cfg *config.Config, logger *slog.Logger) *lexicon.Lexicon {
	flat := lexicon.NewMemoryStore(cfg.DataPaths()...)

	var indexed lexicon.Populator
	if cfg.Storage.Enabled {
		indexed = lexicon.NewSQLiteStore(cfg.Storage.Driver, cfg.Storage.Path)
	}

	return lexicon.New(flat, indexed,
		lexicon.WithCacheTimeout(cfg.Engine.CacheTimeout.Std()),
		lexicon.WithMaxTermLength(cfg.Engine.MaxTermLength),
		lexicon.WithLogger(logger),
	)
}

// newLogger builds the logger described by the config on w.
func newLogger(cfg *config.Config, w io.Writer) (*slog.Logger, error) {
	logger, err := logging.New(w, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, fmt.Errorf("configuring logging: %w", err)
	}
	return logger, nil
}

// runTUI launches the interactive input host.
func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// The terminal belongs to the UI, so logs go to a file when asked for.
	logger := logging.Discard()
	if viper.GetBool("verbose") {
		path := filepath.Join(config.Dir(), "zhuyin.log")
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("creating log directory: %w", err)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer f.Close()
		if logger, err = newLogger(cfg, f); err != nil {
			return err
		}
	}

	lex := newLexicon(cfg, logger)
	if err := lex.Watch(cmd.Context()); err != nil {
		logger.Warn("watching lexicon files failed", "error", err)
	}

	sink := tui.NewSink()
	engine := ime.New(cfg.Engine, lex, sink, ime.WithLogger(logger))
	defer engine.Close()

	glyphs, err := bigchar.Load()
	if err != nil {
		logger.Info("large glyph preview disabled", "error", err)
	}

	return tui.Run(tui.New(engine, glyphs), sink)
}
