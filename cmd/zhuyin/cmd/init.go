package cmd

import (
	"fmt"
	"os"

	"github.com/f3rmion/zhuyin/internal/config"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long: `Write the built-in configuration to the config file, so it can be edited.

The format follows the file extension: a path ending in .toml is written as
TOML, anything else as YAML.

Example:
  zhuyin init
  zhuyin init --config ~/.config/zhuyin/config.toml`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().Bool("force", false, "overwrite an existing configuration")
}

func runInit(cmd *cobra.Command, args []string) error {
	force, _ := cmd.Flags().GetBool("force")
	path := getConfigPath()

	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("config file already exists: %s\nUse --force to overwrite", path)
	}

	if err := config.Default().Save(path); err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Created %s\n\n", path)
	fmt.Fprintln(w, "Next steps:")
	fmt.Fprintln(w, "  1. Point data.words and data.phrases at your lexicon files")
	fmt.Fprintln(w, "  2. Run 'zhuyin import' to build the indexed lexicon")
	fmt.Fprintln(w, "  3. Run 'zhuyin query ㄊㄞˊㄅㄟˇ' to test a lookup")
	return nil
}
