package commands

import (
	"fmt"
	"io"
	"os"
	"superdb/internal/ingest"
	"superdb/internal/store"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(statsCmd)
}

func renderRunStats(out io.Writer, stats ingest.Stats) {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.AppendHeader(table.Row{"Step", "Stored", "Skipped", "Missed", "Errors"})
	t.AppendRows([]table.Row{
		{"banlists", stats.Banlists.Stored, stats.Banlists.Skipped, "", stats.Banlists.Errors},
		{"sets", stats.Sets.Stored, stats.Sets.Skipped, "", stats.Sets.Errors},
		{"cards", stats.Cards.Stored, "", stats.Cards.Missed, stats.Cards.Errors + stats.Cards.StoreErrors},
	})
	t.AppendFooter(table.Row{
		"total",
		"",
		"",
		fmt.Sprintf("%d warnings", stats.Warnings),
		stats.Errors(),
	})
	t.SetCaption("finished in %s, last card id %d", stats.Duration.Round(time.Millisecond), stats.Cards.LastID)
	t.SetStyle(table.StyleRounded)
	// the footer carries a count with its unit, keep it as written
	t.Style().Format.Footer = text.FormatDefault
	t.Render()
}

func renderCounts(out io.Writer, counts []store.TableCount, lastCardID int64) {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.AppendHeader(table.Row{"Table", "Rows"})
	for _, c := range counts {
		t.AppendRow(table.Row{c.Table, c.Rows})
	}
	t.SetCaption("last card id %d", lastCardID)
	t.SetStyle(table.StyleRounded)
	t.Render()
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Prints the number of rows of every table.",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close()

		counts, err := db.Counts(cmd.Context())
		if err != nil {
			return err
		}
		last, err := db.LastProcessedCardID(cmd.Context())
		if err != nil {
			return err
		}
		renderCounts(os.Stdout, counts, last)
		return nil
	},
}
