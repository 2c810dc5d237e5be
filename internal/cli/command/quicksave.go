package command

import (
	"context"

	"github.com/urfave/cli/v2"
)

// QuicksaveCommand returns the quicksave subcommand group.
func QuicksaveCommand() *cli.Command {
	return &cli.Command{
		Name:  "quicksave",
		Usage: "Inspect the quicksave artifact",
		Subcommands: []*cli.Command{
			{
				Name:  "export",
				Usage: "Decode the quicksave and print the record as JSON",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "out",
						Usage: "Write to FILE instead of stdout",
					},
				},
				Action: quicksaveExport,
			},
		},
	}
}

func quicksaveExport(c *cli.Context) error {
	rt, err := openEngine(c, engineOptions{})
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	record, err := rt.engine.ExportQuicksave(ctx)
	if err != nil {
		return err
	}

	return writeRecord(c, record, "quicksave")
}
