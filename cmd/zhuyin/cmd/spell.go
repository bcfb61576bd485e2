package cmd

import (
	"fmt"
	"strings"

	"github.com/f3rmion/zhuyin/internal/pinyin"
	"github.com/spf13/cobra"
)

var spellCmd = &cobra.Command{
	Use:   "spell <text>",
	Short: "Show the Zhuyin keystrokes for Chinese text",
	Long: `Spell Chinese text in Zhuyin by way of its pinyin reading. Each character
is printed with its pinyin and Zhuyin; the last line is the symbol sequence
to type.

Example:
  zhuyin spell 台北
  zhuyin spell 好 --all`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSpell,
}

func init() {
	rootCmd.AddCommand(spellCmd)
	spellCmd.Flags().BoolP("all", "a", false, "list every reading of each character")
}

func runSpell(cmd *cobra.Command, args []string) error {
	all, _ := cmd.Flags().GetBool("all")
	w := cmd.OutOrStdout()
	parser := pinyin.NewParser()

	input := strings.Join(args, "")
	readings := parser.Readings(input)
	if len(readings) == 0 {
		return fmt.Errorf("no Chinese characters found in: %s", input)
	}

	var keys strings.Builder
	for _, rs := range readings {
		if !all {
			rs = rs[:1]
		}
		for i, r := range rs {
			char := r.Char
			if i > 0 {
				char = " "
			}
			fmt.Fprintf(w, "%s  %-8s %s\n", char, r.Pinyin, r.Syllable.Display())
		}
		keys.WriteString(rs[0].Syllable.Display())
	}

	fmt.Fprintf(w, "\nType: %s\n", keys.String())
	return nil
}
