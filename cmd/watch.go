// SPDX-License-Identifier: GPL-2.0-or-later

package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mjmcg/jvc-projector-ha/pkg/dila"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream projector state changes",
	Long: `Stay connected and print a line for every state change the poller
observes, until interrupted.

Useful for following power transitions and for verifying that an
automation system sees the same state the projector reports.`,
	RunE: runWatch,
}

var watchInterval time.Duration

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 0, "Poll interval override (default from client)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	// Watching has no natural end; ignore the overall command timeout.
	flagTimeout = 0
	if watchInterval > 0 {
		extraOpts = append(extraOpts, dila.WithPollInterval(watchInterval))
	}

	return withClient(func(ctx context.Context, c *dila.Client) error {
		var prev *dila.DeviceState
		unsub := c.Subscribe(func(s *dila.DeviceState) {
			stamp := time.Now().Format(time.TimeOnly)
			for _, ch := range s.Diff(prev) {
				if ch.From == "" {
					fmt.Printf("%s %s = %s\n", stamp, ch.Field, ch.To)
				} else {
					fmt.Printf("%s %s: %s -> %s\n", stamp, ch.Field, ch.From, ch.To)
				}
			}
			prev = s
		})
		defer unsub()

		fmt.Printf("watching %s (ctrl-c to stop)\n", c.ConnState())
		<-ctx.Done()
		return nil
	})
}
