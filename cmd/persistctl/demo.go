package persistctl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/cocoonpersist/persist"
	"github.com/cocoonpersist/persist/examplerecord"
	"github.com/cocoonpersist/persist/lockedfile"
)

// demoCmd exercises a full Load/Update round trip against a real file, for
// smoke-testing a deployment: it commits a fresh examplerecord.Record with a
// generated ID, then loads it back and prints what was persisted.
func demoCmd() *cobra.Command {
	var payload string

	cmd := &cobra.Command{
		Use:   "demo PATH",
		Short: "Commit a sample record to PATH and read it back",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			ctx := commandContext(cmd)

			if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
				return fmt.Errorf("create directory %s: %w", filepath.Dir(path), err)
			}

			settings := persist.DefaultSettings()
			settings.NumRetries = conf.DefaultRetries
			settings.RetryDelay = time.Duration(conf.DefaultRetryDelayMS) * time.Millisecond

			p := lockedfile.New[examplerecord.Record](path, examplerecord.Read, examplerecord.Write, examplerecord.Equal, settings)

			result, err := p.Update(ctx, uuid.NewString(), func(_ context.Context, tc *persist.TransactionContext[examplerecord.Record]) error {
				next := examplerecord.Record{
					ID:        uuid.NewString(),
					Payload:   payload,
					Version:   1,
					UpdatedAt: time.Now(),
				}
				tc.Commit(next)
				return nil
			})
			if err != nil {
				return err
			}
			if v, ok := result.Updated.Value(); ok {
				cmd.Printf("committed: id=%s payload=%q version=%d\n", v.ID, v.Payload, v.Version)
			} else if result.Updated.IsError() {
				return result.Updated.Err()
			}

			loaded, err := p.Load(ctx)
			if err != nil {
				return err
			}
			if v, ok := loaded.Value(); ok {
				cmd.Printf("loaded: id=%s payload=%q version=%d\n", v.ID, v.Payload, v.Version)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&payload, "payload", "hello", "payload string to commit")
	return cmd
}
