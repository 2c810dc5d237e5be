package command

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/calderhale/keepsake-go/internal/cli/output"
	"github.com/calderhale/keepsake-go/internal/core/service"
)

// opTimeout bounds one-shot engine operations. Generous because a
// repair may decode several backups of a large save.
const opTimeout = 30 * time.Second

// SlotsCommand returns the slots subcommand group.
func SlotsCommand() *cli.Command {
	return &cli.Command{
		Name:  "slots",
		Usage: "Inspect and manage save slots",
		Subcommands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List every slot",
				Action:  slotsList,
			},
			{
				Name:      "show",
				Usage:     "Show one slot in detail",
				ArgsUsage: "SLOT",
				Action:    slotsShow,
			},
			{
				Name:      "delete",
				Usage:     "Delete a slot, its metadata, screenshot, and backups",
				ArgsUsage: "SLOT",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Skip the confirmation prompt",
					},
				},
				Action: slotsDelete,
			},
			{
				Name:      "export",
				Usage:     "Decode a slot and print the record as JSON",
				ArgsUsage: "SLOT",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "out",
						Usage: "Write to FILE instead of stdout",
					},
				},
				Action: slotsExport,
			},
		},
	}
}

// slotRow flattens a slot summary for display. Pointer fields stay
// nil on empty slots so tables show "-" and JSON omits them.
type slotRow struct {
	Slot          int        `json:"slot"`
	Occupied      bool       `json:"occupied"`
	PlayerLevel   *int       `json:"playerLevel,omitempty"`
	SceneName     string     `json:"sceneName,omitempty"`
	PlayTime      string     `json:"playTime,omitempty"`
	Size          string     `json:"size,omitempty"`
	Backups       int        `json:"backups"`
	SavedAt       *time.Time `json:"savedAt,omitempty"`
	Valid         *bool      `json:"valid,omitempty"`
	FormatVersion string     `json:"formatVersion,omitempty" table:"wide"`
	HasScreenshot bool       `json:"hasScreenshot" table:"wide"`
	Synthesized   bool       `json:"synthesized,omitempty" table:"wide"`
}

func newSlotRow(info service.SlotInfo) slotRow {
	row := slotRow{
		Slot:          info.Slot,
		Occupied:      info.Occupied,
		Backups:       info.Backups,
		HasScreenshot: info.HasScreenshot,
	}
	if md := info.Metadata; md != nil {
		level := md.PlayerLevel
		valid := md.Valid
		savedAt := md.SavedAt
		row.PlayerLevel = &level
		row.SceneName = md.SceneName
		row.PlayTime = md.PlayTime().Round(time.Second).String()
		row.Size = output.Bytes(md.FileSize)
		row.SavedAt = &savedAt
		row.Valid = &valid
		row.FormatVersion = md.FormatVersion
		row.Synthesized = md.Synthesized
	}
	return row
}

func slotsList(c *cli.Context) error {
	rt, err := openEngine(c, engineOptions{})
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	resp, err := rt.engine.List(ctx)
	if err != nil {
		return err
	}

	rows := make([]slotRow, 0, len(resp.Slots))
	for _, info := range resp.Slots {
		rows = append(rows, newSlotRow(info))
	}

	if err := formatterFor(c).Format(os.Stdout, rows); err != nil {
		return err
	}
	if tableOutput(c) && resp.HasQuicksave {
		fmt.Println("\nA quicksave is present. Use 'keepsake quicksave export' to inspect it.")
	}
	return nil
}

func slotsShow(c *cli.Context) error {
	slot, err := slotArg(c)
	if err != nil {
		return err
	}

	rt, err := openEngine(c, engineOptions{})
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	info, err := rt.engine.Slot(ctx, slot)
	if err != nil {
		return err
	}

	row := newSlotRow(*info)
	return formatterFor(c).Format(os.Stdout, &row)
}

func slotsDelete(c *cli.Context) error {
	slot, err := slotArg(c)
	if err != nil {
		return err
	}

	rt, err := openEngine(c, engineOptions{})
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if !c.Bool("force") {
		info, err := rt.engine.Slot(ctx, slot)
		if err != nil {
			return err
		}
		if !info.Occupied && info.Backups == 0 {
			fmt.Printf("Slot %d is already empty.\n", slot)
			return nil
		}
		if !confirm(fmt.Sprintf("Delete slot %d and its %d backup(s)?", slot, info.Backups)) {
			fmt.Println("Aborted.")
			return nil
		}
	}

	resp, err := rt.engine.Delete(ctx, slot)
	if err != nil {
		return err
	}

	if !tableOutput(c) {
		return formatterFor(c).Format(os.Stdout, resp)
	}
	fmt.Printf("✓ Slot %d deleted (%d backup(s) removed)\n", resp.Slot, resp.BackupsRemoved)
	return nil
}

func slotsExport(c *cli.Context) error {
	slot, err := slotArg(c)
	if err != nil {
		return err
	}

	rt, err := openEngine(c, engineOptions{})
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	record, err := rt.engine.Export(ctx, slot)
	if err != nil {
		return err
	}

	return writeRecord(c, record, fmt.Sprintf("slot %d", slot))
}

// writeRecord prints a decoded record as indented JSON, to stdout or
// to the --out file.
func writeRecord(c *cli.Context, record any, what string) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	out := c.String("out")
	if out == "" {
		_, err := os.Stdout.Write(data)
		return err
	}

	if err := os.WriteFile(out, data, 0o600); err != nil {
		return err
	}
	fmt.Printf("✓ Exported %s to %s (%s)\n", what, out, output.Bytes(int64(len(data))))
	return nil
}

// slotArg parses the required SLOT positional argument.
func slotArg(c *cli.Context) (int, error) {
	arg := c.Args().First()
	if arg == "" {
		return 0, fmt.Errorf("slot number required")
	}
	slot, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("invalid slot %q", arg)
	}
	return slot, nil
}
