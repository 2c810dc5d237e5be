package command

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/calderhale/keepsake-go/internal/history"
)

// HistoryCommand returns the history command.
func HistoryCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show recent engine operations from the journal",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Maximum entries to show, newest first",
				Value:   20,
			},
			&cli.StringFlag{
				Name:  "op",
				Usage: "Only show one operation kind (save, load, delete, repair, restore, backup, prune)",
			},
		},
		Action: historyShow,
	}
}

// historyRow flattens a journal entry for display.
type historyRow struct {
	Time     time.Time `json:"time"`
	Op       string    `json:"op"`
	Slot     string    `json:"slot"`
	Outcome  string    `json:"outcome"`
	Detail   string    `json:"detail,omitempty"`
	Size     string    `json:"size,omitempty"`
	Duration string    `json:"duration,omitempty" table:"wide"`
	ID       string    `json:"id" table:"wide"`
}

func newHistoryRow(e history.Entry) historyRow {
	row := historyRow{
		Time:    e.Time,
		Op:      string(e.Op),
		Slot:    "-",
		Outcome: e.Outcome,
		Detail:  e.Detail,
		ID:      e.ID,
	}
	if e.Slot >= 0 {
		row.Slot = fmt.Sprintf("%d", e.Slot)
	}
	if e.Bytes > 0 {
		row.Size = fmt.Sprintf("%d B", e.Bytes)
	}
	if e.DurationMs > 0 {
		row.Duration = (time.Duration(e.DurationMs) * time.Millisecond).String()
	}
	return row
}

func historyShow(c *cli.Context) error {
	limit := c.Int("limit")
	if limit < 1 {
		return fmt.Errorf("limit must be at least 1")
	}

	rt, err := openEngine(c, engineOptions{journal: true})
	if err != nil {
		return err
	}
	defer rt.Close()

	if rt.journal == nil {
		return fmt.Errorf("history is disabled; set history.enabled in the configuration")
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	entries, err := rt.journal.Recent(ctx, limit)
	if err != nil {
		return err
	}

	opFilter := c.String("op")
	rows := make([]historyRow, 0, len(entries))
	for _, e := range entries {
		if opFilter != "" && string(e.Op) != opFilter {
			continue
		}
		rows = append(rows, newHistoryRow(e))
	}

	if len(rows) == 0 && tableOutput(c) {
		fmt.Println("No matching journal entries.")
		return nil
	}
	return formatterFor(c).Format(os.Stdout, rows)
}
