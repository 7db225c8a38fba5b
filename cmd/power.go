// SPDX-License-Identifier: GPL-2.0-or-later

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mjmcg/jvc-projector-ha/pkg/dila"
)

var powerCmd = &cobra.Command{
	Use:   "power {on|off|status}",
	Short: "Turn the projector on or off, or query its power state",
	Long: `Control the projector's power state.

"power on" from standby takes the projector through its warm-up cycle;
"power off" starts the cool-down cycle. Both return as soon as the
projector acknowledges the command, not when the cycle completes. Use
"power status" or "dilactl watch" to follow the transition.`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"on", "off", "status"},
	RunE:      runPower,
}

func init() {
	rootCmd.AddCommand(powerCmd)
}

func runPower(cmd *cobra.Command, args []string) error {
	return withClient(func(ctx context.Context, c *dila.Client) error {
		switch args[0] {
		case "on":
			if err := c.PowerOn(ctx); err != nil {
				return err
			}
			fmt.Println("power on acknowledged")
		case "off":
			if err := c.PowerOff(ctx); err != nil {
				return err
			}
			fmt.Println("power off acknowledged")
		case "status":
			state, err := c.Reference(ctx, dila.CmdPower)
			if err != nil {
				return err
			}
			fmt.Println(state)
		default:
			return fmt.Errorf("unknown power action %q", args[0])
		}
		return nil
	})
}
