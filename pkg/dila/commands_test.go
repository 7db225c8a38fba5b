// SPDX-License-Identifier: Apache-2.0

package dila

import (
	"errors"
	"testing"
)

func TestCommandTable_Operation(t *testing.T) {
	table := TableForModel("")

	tests := []struct {
		name    string
		command string
		arg     string
		want    string
		wantErr bool
	}{
		{name: "power on", command: CmdPower, arg: "on", want: "PW1"},
		{name: "power off", command: CmdPower, arg: "off", want: "PW0"},
		{name: "input hdmi2", command: CmdInput, arg: "hdmi2", want: "IP7"},
		{name: "picture mode filmmaker", command: CmdPictureMode, arg: "filmmaker", want: "PMPM17"},
		{name: "laser power high", command: CmdLaserPower, arg: "high", want: "PMLP2"},
		{name: "remote passes raw code", command: CmdRemote, arg: "7306", want: "RC7306"},
		{name: "unknown argument", command: CmdPower, arg: "sideways", wantErr: true},
		{name: "unknown command", command: "lens_aperture", arg: "1", wantErr: true},
		{name: "read-only command", command: CmdModel, arg: "x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := table.Operation(tt.command, tt.arg)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Operation(%s, %s) succeeded, want error", tt.command, tt.arg)
				}
				if !errors.Is(err, ErrCommand) {
					t.Errorf("error %v does not match ErrCommand", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Operation(%s, %s) error: %v", tt.command, tt.arg, err)
			}
			if got != tt.want {
				t.Errorf("Operation(%s, %s) = %q, want %q", tt.command, tt.arg, got, tt.want)
			}
		})
	}
}

func TestCommandTable_Reference(t *testing.T) {
	table := TableForModel("")

	tests := []struct {
		name    string
		command string
		want    string
		wantErr bool
	}{
		{name: "power", command: CmdPower, want: "PW"},
		{name: "model", command: CmdModel, want: "MD"},
		{name: "light time", command: CmdLightTime, want: "IFLT"},
		{name: "mac address", command: CmdMac, want: "LSMA"},
		{name: "write-only remote", command: CmdRemote, wantErr: true},
		{name: "unknown command", command: "nope", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := table.Reference(tt.command)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Reference(%s) succeeded, want error", tt.command)
				}
				return
			}
			if err != nil {
				t.Fatalf("Reference(%s) error: %v", tt.command, err)
			}
			if got != tt.want {
				t.Errorf("Reference(%s) = %q, want %q", tt.command, got, tt.want)
			}
		})
	}
}

func TestTableForModel(t *testing.T) {
	tests := []struct {
		name      string
		model     string
		wantLaser bool
	}{
		{name: "unidentified keeps full table", model: "", wantLaser: true},
		{name: "NZ8 laser", model: "DLA-NZ8", wantLaser: true},
		{name: "RS4100 laser", model: "DLA-RS4100", wantLaser: true},
		{name: "B5A platform", model: "ILAFPJ -- B5A2", wantLaser: true},
		{name: "X790 lamp", model: "DLA-X790R", wantLaser: false},
		{name: "legacy HD350", model: "DLA-HD350", wantLaser: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := TableForModel(tt.model)
			_, hasLaser := table[CmdLaserPower]
			if hasLaser != tt.wantLaser {
				t.Errorf("model %q: laser_power present = %v, want %v", tt.model, hasLaser, tt.wantLaser)
			}
			// Core commands survive every model filter.
			for _, name := range []string{CmdPower, CmdInput, CmdModel, CmdRemote} {
				if _, ok := table[name]; !ok {
					t.Errorf("model %q: core command %s missing", tt.model, name)
				}
			}
		})
	}
}

func TestTableForModel_Isolation(t *testing.T) {
	// Filtering one model's table must not mutate the base set.
	lamp := TableForModel("DLA-X790R")
	if _, ok := lamp[CmdLaserPower]; ok {
		t.Fatal("lamp table should not include laser_power")
	}
	full := TableForModel("")
	if _, ok := full[CmdLaserPower]; !ok {
		t.Error("base table lost laser_power after filtering")
	}
}

func TestRemoteButtons(t *testing.T) {
	for name, code := range RemoteButtons {
		if len(code) != 4 {
			t.Errorf("button %s: code %q is not four hex digits", name, code)
		}
	}
	if RemoteButtons["menu"] != "732E" {
		t.Errorf("menu = %q, want 732E", RemoteButtons["menu"])
	}
	if RemoteButtons["on"] != "7305" || RemoteButtons["standby"] != "7306" {
		t.Error("power button codes drifted")
	}
}
