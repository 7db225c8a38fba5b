// SPDX-License-Identifier: GPL-2.0-or-later

package cmd

import (
	"context"
	"fmt"

	"github.com/mjmcg/jvc-projector-ha/pkg/dila"
	"github.com/spf13/cobra"
)

var sendCmd = &cobra.Command{
	Use:   "send <command> [arg]",
	Short: "Send a named command to the projector",
	Long: `Send a command from the projector's command table.

With no argument, readable commands are queried and the value printed.
With an argument, the command is performed as a state change:

  dilactl send power on
  dilactl send picture_mode filmmaker
  dilactl send light_time

Use "dilactl send --list" to see the commands the connected model
supports. The table is narrowed after the projector reports its model;
lamp-based models lack the laser-generation commands.`,
	Args: cobra.RangeArgs(0, 2),
	RunE: runSend,
}

var sendList bool

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().BoolVarP(&sendList, "list", "l", false, "List available commands and exit")
}

func runSend(cmd *cobra.Command, args []string) error {
	if !sendList && len(args) == 0 {
		return fmt.Errorf("command name required (or --list)")
	}

	return withClient(func(ctx context.Context, c *dila.Client) error {
		if sendList {
			for _, name := range c.Commands() {
				fmt.Println(name)
			}
			return nil
		}

		name := args[0]
		arg := ""
		if len(args) > 1 {
			arg = args[1]
		}

		value, err := c.SendCommand(ctx, name, arg)
		if err != nil {
			return err
		}
		if value != "" {
			fmt.Println(value)
		} else {
			fmt.Println("acknowledged")
		}
		return nil
	})
}
