package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/calderhale/keepsake-go/internal/cli/command"
	"github.com/calderhale/keepsake-go/internal/core/domain"
)

func main() {
	if err := command.App().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps domain errors onto distinct exit codes: 2 for invalid
// input or configuration, 3 for missing slots or backups, 1 for
// everything else.
func exitCode(err error) int {
	var derr *domain.DomainError
	if !errors.As(err, &derr) {
		return 1
	}
	switch derr.Code {
	case domain.ErrInvalidSlot.Code, domain.ErrConfigInvalid.Code:
		return 2
	case domain.ErrSlotEmpty.Code, domain.ErrNoBackups.Code:
		return 3
	default:
		return 1
	}
}
