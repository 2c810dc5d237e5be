package command

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/calderhale/keepsake-go/internal/cli/output"
)

// RepairCommand returns the repair command.
func RepairCommand() *cli.Command {
	return &cli.Command{
		Name:      "repair",
		Usage:     "Promote the newest decodable backup over a corrupt or missing primary",
		ArgsUsage: "SLOT",
		Action:    repair,
	}
}

func repair(c *cli.Context) error {
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

	var spinner *output.Spinner
	if tableOutput(c) {
		spinner = output.NewSpinner(os.Stderr, fmt.Sprintf("Repairing slot %d...", slot))
		spinner.Start()
	}

	resp, err := rt.engine.Repair(ctx, slot)
	if err != nil {
		if spinner != nil {
			spinner.Fail(fmt.Sprintf("Slot %d could not be repaired: %v", slot, err))
		}
		return err
	}

	if spinner == nil {
		return formatterFor(c).Format(os.Stdout, resp)
	}

	switch {
	case resp.AlreadyValid:
		spinner.Success(fmt.Sprintf("Slot %d is already valid; nothing to do", slot))
	case resp.Repaired:
		spinner.Success(fmt.Sprintf("Slot %d repaired from %s in %s",
			slot, resp.BackupUsed, resp.Duration.Round(time.Millisecond)))
	default:
		spinner.Stop()
	}
	return nil
}
