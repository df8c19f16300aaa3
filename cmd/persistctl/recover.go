package persistctl

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/cocoonpersist/persist/filelock"
)

// recoverCmd runs the recovery procedure standalone: acquire the lock file
// (which runs recovery as a side effect of acquisition), then release it.
func recoverCmd() *cobra.Command {
	var retries int
	var retryDelayMS int

	cmd := &cobra.Command{
		Use:   "recover PATH",
		Short: "Run crash recovery on a persisted value's file set without a Load/Update",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if retries <= 0 {
				retries = conf.DefaultRetries
			}
			delay := time.Duration(retryDelayMS) * time.Millisecond
			if delay <= 0 {
				delay = time.Duration(conf.DefaultRetryDelayMS) * time.Millisecond
			}

			lock := filelock.New(path+".lck", path, path+".new", path+".old", retries, delay)
			release, err := lock.Acquire(commandContext(cmd))
			if err != nil {
				return err
			}
			release()
			cmd.Println("recovery complete")
			return nil
		},
	}

	cmd.Flags().IntVar(&retries, "retries", 0, "lock acquisition retries (default from config)")
	cmd.Flags().IntVar(&retryDelayMS, "retry-delay-ms", 0, "base retry delay in ms (default from config)")
	return cmd
}
