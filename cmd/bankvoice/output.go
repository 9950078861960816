package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/bankvoice/internal/config"
)

// writeOutput prints v in the selected format. text renders the plain form.
func writeOutput(w io.Writer, format string, v any, text func(w io.Writer)) error {
	switch format {
	case config.FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case config.FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case config.FormatText, "":
		text(w)
		return nil
	default:
		return fmt.Errorf("unknown format %q (want text, json or yaml)", format)
	}
}

// printOutput writes to stdout in the global format.
func printOutput(v any, text func(w io.Writer)) error {
	return writeOutput(os.Stdout, globalOpts.format, v, text)
}
