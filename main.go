// SPDX-License-Identifier: Apache-2.0
//
// dilactl - JVC D-ILA Projector Control
//
// CLI tool and client library for controlling JVC D-ILA projectors over
// the LAN (or RS-232) external command protocol.

package main

import (
	"os"

	"github.com/mjmcg/jvc-projector-ha/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
