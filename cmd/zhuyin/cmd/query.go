package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/f3rmion/zhuyin/internal/ime"
	"github.com/f3rmion/zhuyin/internal/pinyin"
	"github.com/f3rmion/zhuyin/internal/zhuyin"
	"github.com/spf13/cobra"
)

var queryCmd = &cobra.Command{
	Use:   "query <symbols>...",
	Short: "Feed Zhuyin symbols through the engine and print the candidates",
	Long: `Feed a string of Zhuyin symbols through the input engine, exactly as if
they had been typed, and print the resulting candidates with their
categories. Arguments are joined without separators; quote a trailing space
to type the first tone.

Example:
  zhuyin query ㄊㄞˊㄅㄟˇ
  zhuyin query ㄊㄅ --pinyin
  zhuyin query "ㄇㄚ "`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().BoolP("pinyin", "p", false, "annotate candidates with pinyin")
	queryCmd.Flags().IntP("limit", "n", 20, "maximum number of candidates to print (0 for all)")
}

// collector is a Sink that keeps the latest engine output.
type collector struct {
	pending    string
	candidates []zhuyin.Candidate
	committed  strings.Builder
}

func (c *collector) SendPendingSymbols(text string)               { c.pending = text }
func (c *collector) SendCandidates(candidates []zhuyin.Candidate) { c.candidates = candidates }
func (c *collector) SendString(text string)                       { c.committed.WriteString(text) }
func (c *collector) SendKey(code int)                             { c.committed.WriteRune(rune(code)) }

func runQuery(cmd *cobra.Command, args []string) error {
	withPinyin, _ := cmd.Flags().GetBool("pinyin")
	limit, _ := cmd.Flags().GetInt("limit")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	sink := &collector{}
	engine := ime.New(cfg.Engine, newLexicon(cfg, logger), sink, ime.WithLogger(logger))
	defer engine.Close()

	if err := engine.Open(); err != nil {
		return err
	}

	for _, r := range strings.Join(args, "") {
		engine.Click(int(r))
	}
	engine.Wait()

	var parser *pinyin.Parser
	if withPinyin {
		parser = pinyin.NewParser()
	}
	printQuery(cmd.OutOrStdout(), sink, engine.State(), parser, limit)
	return nil
}

func printQuery(w io.Writer, sink *collector, state ime.State, parser *pinyin.Parser, limit int) {
	if sink.committed.Len() > 0 {
		fmt.Fprintf(w, "Committed: %s\n", sink.committed.String())
	}
	fmt.Fprintf(w, "Pending:   %s\n", sink.pending)
	fmt.Fprintf(w, "State:     %s\n\n", state)

	if len(sink.candidates) == 0 {
		fmt.Fprintln(w, "No candidates.")
		return
	}

	for i, c := range sink.candidates {
		if limit > 0 && i >= limit {
			fmt.Fprintf(w, "  ... %d more\n", len(sink.candidates)-limit)
			break
		}
		line := fmt.Sprintf("  %2d. %s  [%s]", i+1, c.Text, c.Category)
		if parser != nil {
			if py := readings(parser, c.Text); py != "" {
				line += "  " + py
			}
		}
		fmt.Fprintln(w, line)
	}
}

// readings returns the most common pinyin of each character of text.
func readings(parser *pinyin.Parser, text string) string {
	var parts []string
	for _, r := range parser.Readings(text) {
		parts = append(parts, r[0].Pinyin)
	}
	return strings.Join(parts, " ")
}
