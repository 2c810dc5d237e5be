package command

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/calderhale/keepsake-go/internal/cli/output"
	"github.com/calderhale/keepsake-go/internal/storage"
)

// BackupCommand returns the backup subcommand group.
func BackupCommand() *cli.Command {
	return &cli.Command{
		Name:  "backup",
		Usage: "Manage slot backups",
		Subcommands: []*cli.Command{
			{
				Name:      "list",
				Aliases:   []string{"ls"},
				Usage:     "List a slot's backups, newest first",
				ArgsUsage: "SLOT",
				Action:    backupList,
			},
			{
				Name:      "prune",
				Usage:     "Enforce the retention cap on a slot's backups",
				ArgsUsage: "SLOT",
				Action:    backupPrune,
			},
			{
				Name:      "restore",
				Usage:     "Roll a slot back to its newest decodable backup",
				ArgsUsage: "SLOT",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Skip the confirmation prompt",
					},
				},
				Action: backupRestore,
			},
		},
	}
}

// backupRow flattens backup info for display.
type backupRow struct {
	Name      string    `json:"name"`
	Size      string    `json:"size"`
	CreatedAt time.Time `json:"createdAt"`
	Path      string    `json:"path" table:"wide"`
}

func newBackupRow(info storage.BackupInfo) backupRow {
	return backupRow{
		Name:      info.Name,
		Size:      output.Bytes(info.Size),
		CreatedAt: info.CreatedAt,
		Path:      info.Path,
	}
}

func backupList(c *cli.Context) error {
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

	infos, err := rt.engine.Backups(ctx, slot)
	if err != nil {
		return err
	}

	rows := make([]backupRow, 0, len(infos))
	for _, info := range infos {
		rows = append(rows, newBackupRow(info))
	}

	if len(rows) == 0 && tableOutput(c) {
		fmt.Printf("Slot %d has no backups.\n", slot)
		return nil
	}
	return formatterFor(c).Format(os.Stdout, rows)
}

func backupPrune(c *cli.Context) error {
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

	removed, err := rt.engine.PruneBackups(ctx, slot)
	if err != nil {
		return err
	}

	if !tableOutput(c) {
		return formatterFor(c).Format(os.Stdout, map[string]int{"slot": slot, "removed": removed})
	}
	if removed == 0 {
		fmt.Printf("Slot %d is within its retention cap; nothing pruned.\n", slot)
		return nil
	}
	fmt.Printf("✓ Pruned %d backup(s) from slot %d\n", removed, slot)
	return nil
}

func backupRestore(c *cli.Context) error {
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
		if !confirm(fmt.Sprintf("Overwrite slot %d with its newest backup?", slot)) {
			fmt.Println("Aborted.")
			return nil
		}
	}

	resp, err := rt.engine.RestoreBackup(ctx, slot)
	if err != nil {
		return err
	}

	if !tableOutput(c) {
		return formatterFor(c).Format(os.Stdout, resp)
	}
	fmt.Printf("✓ Slot %d restored from %s (%s)\n", resp.Slot, resp.BackupUsed, output.Bytes(resp.Bytes))
	return nil
}
