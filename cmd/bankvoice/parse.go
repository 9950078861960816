package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/bankvoice/internal/announce"
	"github.com/jmylchreest/bankvoice/internal/gate"
	"github.com/jmylchreest/bankvoice/internal/model"
	"github.com/jmylchreest/bankvoice/internal/parser"
)

var parseOpts struct {
	source string
	speak  bool
}

var parseCmd = &cobra.Command{
	Use:   "parse <text...>",
	Short: "Dry-run the announcement pipeline on some text",
	Long: `Run notification text through the same allow-list, amount parser and
preference gate the daemon uses, and show what would be spoken.

Examples:
  bankvoice parse "Bạn vừa nhận 1,500,000 VND"
  bankvoice parse --source com.mbmobile -- "-200,000đ"
  bankvoice parse --speak "+2,000,000 VND"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runParse,
}

func init() {
	rootCmd.AddCommand(parseCmd)

	parseCmd.Flags().StringVar(&parseOpts.source, "source", parser.AllowedSources[0],
		"Source application id the text is attributed to")
	parseCmd.Flags().BoolVar(&parseOpts.speak, "speak", false,
		"Ask the daemon to speak the resulting phrase")
}

func runParse(cmd *cobra.Command, args []string) error {
	prefs, err := openPrefs()
	if err != nil {
		return err
	}

	processor := announce.NewProcessor(gate.New(prefs, logger), nil, logger)
	event := model.NewEvent(parseOpts.source, "", strings.Join(args, " "))
	out := processor.Evaluate(event)

	if err := printOutput(out, func(w io.Writer) { printOutcome(w, event, out) }); err != nil {
		return err
	}

	if parseOpts.speak && out.Phrase != "" {
		client, ctx, cancel, err := daemonClient()
		if err != nil {
			return err
		}
		defer cancel()
		return client.Speak(ctx, out.Phrase)
	}
	return nil
}

func printOutcome(w io.Writer, e *model.Event, out announce.Outcome) {
	if !out.Allowed {
		fmt.Fprintf(w, "Source %q is not a supported banking app\n", e.Source)
		return
	}
	if out.Transaction == nil {
		fmt.Fprintln(w, "No amount found")
		return
	}

	tx := out.Transaction
	fmt.Fprintf(w, "Amount: %s (%s)\n", humanize.Comma(tx.Amount), tx.Direction())
	if out.Phrase == "" {
		fmt.Fprintf(w, "Suppressed: %s\n", out.Decision.Reason)
		return
	}
	fmt.Fprintf(w, "Phrase: %s\n", out.Phrase)
}
