// SPDX-License-Identifier: GPL-2.0-or-later

package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/mjmcg/jvc-projector-ha/pkg/dila"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the projector's current state",
	Long: `Connect, query the projector's state, and print a summary.

Power state is always reported. Signal and picture details are only
available while the projector is on.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	return withClient(func(ctx context.Context, c *dila.Client) error {
		// The first poll runs right after the handshake; wait for it so
		// the snapshot carries more than the zero state.
		if err := waitForSnapshot(ctx, c); err != nil {
			return err
		}
		fmt.Println(renderStatus(c))
		return nil
	})
}

// waitForSnapshot blocks until the poller publishes a populated state.
func waitForSnapshot(ctx context.Context, c *dila.Client) error {
	done := make(chan struct{}, 1)
	unsub := c.Subscribe(func(s *dila.DeviceState) {
		if s.Power != "" {
			select {
			case done <- struct{}{}:
			default:
			}
		}
	})
	defer unsub()

	if c.State().Power != "" {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("no status received: %w", ctx.Err())
	}
}

var (
	statusLabelStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("12")).
				Bold(true)

	statusValueStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("10"))

	statusDimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	statusBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
)

func renderStatus(c *dila.Client) string {
	s := c.State()

	var b strings.Builder
	row := func(label, value string) {
		if value == "" {
			value = statusDimStyle.Render("(unknown)")
		} else {
			value = statusValueStyle.Render(value)
		}
		b.WriteString(fmt.Sprintf("%s %s\n", statusLabelStyle.Render(label+":"), value))
	}

	row("Model", s.Model)
	row("Power", s.Power)
	if s.Power == dila.PowerOn {
		row("Input", s.Input)
		row("Source", s.Source)
		row("Resolution", s.Resolution)
		row("Content", s.ContentType)
		row("Colorimetry", s.Colorimetry)
		row("Picture Mode", s.PictureMode)
		row("Laser Power", s.LaserPower)
	}
	if s.LightTime != "" {
		row("Light Hours", s.LightTime)
	}
	row("MAC", s.Mac)

	footer := statusDimStyle.Render(fmt.Sprintf("updated %s", s.UpdatedAt.Format(time.TimeOnly)))
	if s.Stale {
		footer += " " + statusDimStyle.Render("(stale)")
	}
	b.WriteString(footer)

	return statusBoxStyle.Render(b.String())
}
