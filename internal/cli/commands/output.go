package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/conduit-sdk/internal/cli/ui"
	"github.com/conduit-lang/conduit-sdk/pkg/resource"
)

const (
	outputJSON  = "json"
	outputTable = "table"
)

func addOutputFlag(cmd *cobra.Command, format *string) {
	cmd.Flags().StringVarP(format, "output", "o", outputJSON, "output format: json or table")
}

// writeContainer prints the resources held by c in the requested format
func writeContainer(w io.Writer, c *resource.Container, format string, noColor bool) error {
	switch format {
	case outputJSON:
		return writeJSON(w, c)
	case outputTable:
		table := ui.NewTable(w, noColor, "TYPE", "ID", "ATTRIBUTES")
		for _, obj := range c.List() {
			attrs, err := json.Marshal(obj.Attributes())
			if err != nil {
				return err
			}
			table.AddRow(obj.Type(), obj.ID(), string(attrs))
		}
		table.Render()
		return nil
	}
	return fmt.Errorf("unknown output format %q: expected json or table", format)
}
