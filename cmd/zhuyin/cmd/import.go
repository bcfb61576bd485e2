package cmd

import (
	"fmt"
	"time"

	"github.com/f3rmion/zhuyin/internal/lexicon"
	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Populate the indexed lexicon from the JSON files",
	Long: `Load the configured JSON lexicon files and write every entry into the
SQLite database, replacing rows with the same key. The interactive host
does this on its own the first time it finds an empty database; run it by
hand after editing the JSON files.

Example:
  zhuyin import
  zhuyin import --data-dir ./data --db /tmp/lexicon.db --driver sqlite3`,
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().String("driver", "", "database driver: sqlite or sqlite3 (default from config)")
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	driver := cfg.Storage.Driver
	if d, _ := cmd.Flags().GetString("driver"); d != "" {
		driver = d
	}
	if cfg.Storage.Path == "" {
		return fmt.Errorf("no database path configured")
	}

	flat := lexicon.NewMemoryStore(cfg.DataPaths()...)
	flat.SetLogger(logger)
	store := lexicon.NewSQLiteStore(driver, cfg.Storage.Path)
	defer store.Close()

	ctx := cmd.Context()
	if err := store.Open(ctx); err != nil {
		return fmt.Errorf("opening %s: %w", cfg.Storage.Path, err)
	}

	start := time.Now()
	n, err := lexicon.Import(ctx, flat, store)
	if err != nil {
		return err
	}
	total, err := store.Count(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d keys into %s in %s (%d rows total)\n",
		n, cfg.Storage.Path, time.Since(start).Round(time.Millisecond), total)
	return nil
}
