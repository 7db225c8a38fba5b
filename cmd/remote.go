// SPDX-License-Identifier: GPL-2.0-or-later

package cmd

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/mjmcg/jvc-projector-ha/pkg/dila"
)

var remoteCmd = &cobra.Command{
	Use:   "remote <button>",
	Short: "Send a remote control button press",
	Long: `Send an IR pass-through code as if a remote button were pressed.

Remote codes reach functions without dedicated network commands, such as
menu navigation and lens memory. Use "dilactl remote --list" for the
available buttons.`,
	Args: cobra.RangeArgs(0, 1),
	RunE: runRemote,
}

var remoteList bool

func init() {
	rootCmd.AddCommand(remoteCmd)
	remoteCmd.Flags().BoolVarP(&remoteList, "list", "l", false, "List button names and exit")
}

func runRemote(cmd *cobra.Command, args []string) error {
	if remoteList {
		names := make([]string, 0, len(dila.RemoteButtons))
		for name := range dila.RemoteButtons {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("%-16s %s\n", name, dila.RemoteButtons[name])
		}
		return nil
	}
	if len(args) == 0 {
		return fmt.Errorf("button name required (or --list)")
	}

	return withClient(func(ctx context.Context, c *dila.Client) error {
		if err := c.RemoteCode(ctx, args[0]); err != nil {
			return err
		}
		fmt.Println("acknowledged")
		return nil
	})
}
