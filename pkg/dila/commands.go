// SPDX-License-Identifier: Apache-2.0

package dila

import (
	"sort"
	"strings"
)

// Commands are named, opaque byte templates. The client never hard-codes
// per-model behavior: a CommandTable is selected once at connect time
// from the model the projector reports, and every enqueue resolves the
// command name against that table.

// Command is one entry in the command table.
type Command struct {
	Name string
	Op   string            // operation code prefix; empty if not writable
	Ref  string            // reference code; empty if not readable
	Args map[string]string // named argument -> wire suffix; nil accepts raw suffixes
}

// CommandTable maps command names to their wire templates.
type CommandTable map[string]Command

// Command name constants for the commands the poller and the
// convenience API rely on.
const (
	CmdPower       = "power"
	CmdInput       = "input"
	CmdSource      = "source"
	CmdModel       = "model"
	CmdMac         = "mac"
	CmdVersion     = "version"
	CmdLightTime   = "light_time"
	CmdResolution  = "resolution"
	CmdColorimetry = "colorimetry"
	CmdPictureMode = "picture_mode"
	CmdContentType = "content_type"
	CmdLaserPower  = "laser_power"
	CmdDynamicCtrl = "dynamic_control"
	CmdRemote      = "remote"
	CmdNull        = "null"
)

// baseTable is the 2024 D-ILA LAN command set.
var baseTable = CommandTable{
	CmdPower: {
		Name: CmdPower, Op: "PW", Ref: "PW",
		Args: map[string]string{"on": "1", "off": "0"},
	},
	CmdInput: {
		Name: CmdInput, Op: "IP", Ref: "IP",
		Args: map[string]string{"hdmi1": "6", "hdmi2": "7"},
	},
	CmdSource:      {Name: CmdSource, Ref: "SC"},
	CmdModel:       {Name: CmdModel, Ref: "MD"},
	CmdMac:         {Name: CmdMac, Ref: "LSMA"},
	CmdVersion:     {Name: CmdVersion, Ref: "IFSV"},
	CmdLightTime:   {Name: CmdLightTime, Ref: "IFLT"},
	CmdResolution:  {Name: CmdResolution, Ref: "IFIS"},
	CmdColorimetry: {Name: CmdColorimetry, Ref: "IFCM"},
	CmdPictureMode: {
		Name: CmdPictureMode, Op: "PMPM", Ref: "PMPM",
		Args: map[string]string{
			"cinema":          "01",
			"natural":         "03",
			"frame_adapt_hdr": "0B",
			"hdr1":            "0E",
			"hdr2":            "0F",
			"hlg":             "14",
			"filmmaker":       "17",
			"vivid":           "1B",
		},
	},
	CmdContentType: {
		Name: CmdContentType, Op: "PMCT", Ref: "PMCT",
		Args: map[string]string{"auto": "0", "sdr": "1", "hdr10+": "2", "hdr10": "3", "hlg": "4"},
	},
	CmdLaserPower: {
		Name: CmdLaserPower, Op: "PMLP", Ref: "PMLP",
		Args: map[string]string{"low": "0", "med": "1", "high": "2"},
	},
	CmdDynamicCtrl: {
		Name: CmdDynamicCtrl, Op: "PMDC", Ref: "PMDC",
		Args: map[string]string{"off": "0", "low": "1", "high": "2", "balanced": "3"},
	},
	// IR pass-through; the suffix is a raw four-hex-digit remote code.
	CmdRemote: {Name: CmdRemote, Op: "RC"},
	// Connectivity check; a bare operation the projector always acks.
	CmdNull: {Name: CmdNull, Op: "\x00\x00"},
}

// laserOnly names commands absent from lamp-based models. They are
// removed from the table when the reported model predates the laser
// (NZ) generation.
var laserOnly = []string{CmdLaserPower, CmdDynamicCtrl, CmdContentType}

// laserModelHints are substrings of MD responses that identify laser
// light-source models with the full 2024 command set.
var laserModelHints = []string{"NZ", "B5A", "B8A", "RS4100", "RS3100", "RS2100"}

// TableForModel returns the command table for the reported model name.
// An empty model (not yet identified) gets the full base table.
func TableForModel(model string) CommandTable {
	t := make(CommandTable, len(baseTable))
	for name, cmd := range baseTable {
		t[name] = cmd
	}
	if model == "" || isLaserModel(model) {
		return t
	}
	for _, name := range laserOnly {
		delete(t, name)
	}
	return t
}

func isLaserModel(model string) bool {
	upper := strings.ToUpper(model)
	for _, hint := range laserModelHints {
		if strings.Contains(upper, hint) {
			return true
		}
	}
	return false
}

// Names returns the sorted command names in the table.
func (t CommandTable) Names() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Operation resolves a named operation and argument to a full wire code.
func (t CommandTable) Operation(name, arg string) (string, error) {
	cmd, ok := t[name]
	if !ok {
		return "", &CommandError{Name: name, Reason: "not in command table for this model"}
	}
	if cmd.Op == "" {
		return "", &CommandError{Name: name, Reason: "not writable"}
	}
	if cmd.Args == nil {
		return cmd.Op + arg, nil
	}
	suffix, ok := cmd.Args[arg]
	if !ok {
		return "", &CommandError{Name: name, Reason: "unknown argument " + arg}
	}
	return cmd.Op + suffix, nil
}

// Reference resolves a named reference to its wire code.
func (t CommandTable) Reference(name string) (string, error) {
	cmd, ok := t[name]
	if !ok {
		return "", &CommandError{Name: name, Reason: "not in command table for this model"}
	}
	if cmd.Ref == "" {
		return "", &CommandError{Name: name, Reason: "not readable"}
	}
	return cmd.Ref, nil
}

// RemoteButtons maps friendly button names to IR pass-through codes
// sent with the RC operation.
var RemoteButtons = map[string]string{
	"standby":       "7306",
	"on":            "7305",
	"menu":          "732E",
	"up":            "7301",
	"down":          "7302",
	"left":          "7336",
	"right":         "7334",
	"ok":            "732F",
	"back":          "7303",
	"hide":          "731D",
	"info":          "7374",
	"input":         "7308",
	"advanced_menu": "7373",
	"picture_mode":  "73F4",
	"color_profile": "7388",
	"lens_control":  "7330",
	"gamma":         "7375",
	"color_temp":    "7376",
	"hdmi_1":        "7370",
	"hdmi_2":        "7371",
	"anamo":         "73C5",
	"natural":       "736A",
	"cinema":        "7368",
}
