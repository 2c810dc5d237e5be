package command

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/calderhale/keepsake-go/internal/cli/output"
	"github.com/calderhale/keepsake-go/internal/infra/buildinfo"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "keepsake",
		Usage:   "Save data inspection and repair tool",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.BuildTime),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			SlotsCommand(),
			BackupCommand(),
			ValidateCommand(),
			RepairCommand(),
			QuicksaveCommand(),
			HistoryCommand(),
			ServeCommand(),
			WatchCommand(),
			ConfigCommand(),
		},
	}
}

// globalFlags returns the flags shared by every command.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Configuration file path",
			EnvVars: []string{"KEEPSAKE_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "saves-dir",
			Aliases: []string{"d"},
			Usage:   "Saves directory, overriding the configuration",
			EnvVars: []string{"KEEPSAKE_SAVES_DIR"},
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
			Value:   "table",
		},
		&cli.BoolFlag{
			Name:    "wide",
			Aliases: []string{"w"},
			Usage:   "Show wide output (more columns)",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"V"},
			Usage:   "Enable debug logging on stderr",
		},
	}
}

// GlobalFlags holds the parsed global flag values.
type GlobalFlags struct {
	Config   string
	SavesDir string

	Output string // table, json, yaml
	Wide   bool

	Verbose bool
}

// ParseGlobalFlags extracts global flags from context.
func ParseGlobalFlags(c *cli.Context) *GlobalFlags {
	return &GlobalFlags{
		Config:   c.String("config"),
		SavesDir: c.String("saves-dir"),
		Output:   c.String("output"),
		Wide:     c.Bool("wide"),
		Verbose:  c.Bool("verbose"),
	}
}

// formatterFor builds the output formatter selected by the global
// flags.
func formatterFor(c *cli.Context) output.Formatter {
	flags := ParseGlobalFlags(c)
	return output.NewFormatter(flags.Output, flags.Wide)
}

// tableOutput reports whether results render as a table, which is when
// commands may decorate stdout with progress bars and status lines.
func tableOutput(c *cli.Context) bool {
	return !output.ParseFormat(c.String("output")).Structured()
}

// PrintError prints an error message to stderr.
func PrintError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}

// confirm prompts on stdout and reads a y/N answer from stdin. Any
// answer other than y or yes declines.
func confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	var answer string
	fmt.Scanln(&answer)
	switch answer {
	case "y", "Y", "yes", "YES":
		return true
	default:
		return false
	}
}
