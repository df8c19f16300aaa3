package persistctl

import (
	"fmt"
	"os"
	"time"

	units "github.com/docker/go-units"
	"github.com/spf13/cobra"
)

// showCmd is a read-only listing command with no side effects, formatted
// with a fixed set of columns.
func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show PATH",
		Short: "List the on-disk file set (COMMITTED/NEW/OLD/LOCK) for a persisted value",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runShow(args[0])
		},
	}
}

type fileSetRole struct {
	role string
	path string
}

func runShow(path string) error {
	roles := []fileSetRole{
		{"COMMITTED", path},
		{"NEW", path + ".new"},
		{"OLD", path + ".old"},
		{"LOCK", path + ".lck"},
	}

	transient := false // NEW or OLD present; LOCK is not part of the consistency invariant
	for _, r := range roles {
		info, err := os.Stat(r.path)
		if err != nil {
			if os.IsNotExist(err) {
				fmt.Printf("%-9s %-40s absent\n", r.role, r.path)
				continue
			}
			return fmt.Errorf("stat %s: %w", r.path, err)
		}
		if r.role == "NEW" || r.role == "OLD" {
			transient = true
		}
		fmt.Printf("%-9s %-40s %8s  %s\n", r.role, r.path, units.HumanSize(float64(info.Size())), info.ModTime().Format(time.RFC3339))
	}

	if transient {
		fmt.Println("state: transient — a crash occurred; run `persistctl recover` before further use")
	} else {
		fmt.Println("state: consistent")
	}
	return nil
}
