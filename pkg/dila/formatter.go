// SPDX-License-Identifier: Apache-2.0

package dila

import (
	"fmt"
	"strconv"
	"strings"
)

// Friendly power states returned by FormatValue for the PW reference.
const (
	PowerStandby = "standby"
	PowerOn      = "on"
	PowerCooling = "cooling"
	PowerWarming = "warming"
	PowerError   = "error"
)

// Indexed value tables: the raw response is a single hex digit used as
// an index.
var (
	powerNames  = []string{PowerStandby, PowerOn, PowerCooling, PowerWarming, PowerError}
	sourceNames = []string{"nosignal", "signal"}
	laserNames  = []string{"low", "med", "high"}
	dynCtrlName = []string{"off", "low", "high", "balanced"}
)

// Mapped value tables: the raw response is looked up verbatim.
var (
	inputNames = map[string]string{
		"0": "svideo", "1": "video", "2": "component", "3": "pc",
		"6": "hdmi1", "7": "hdmi2",
	}

	// Source Display (IFIS) codes from the 2024 external command list.
	resolutionNames = map[string]string{
		"02": "480p", "03": "576p", "04": "720p50", "05": "720p60",
		"08": "1080p24", "09": "1080p50", "0A": "1080p60",
		"0B": "no_signal", "0F": "out_of_range",
		"10": "4k(4096)60", "11": "4k(4096)50", "12": "4k(4096)30",
		"13": "4k(4096)25", "14": "4k(4096)24",
		"15": "4k(3840)60", "16": "4k(3840)50", "17": "4k(3840)30",
		"18": "4k(3840)25", "19": "4k(3840)24",
		"1C": "1080p25", "1D": "1080p30",
		"1E": "2048x1080p24", "1F": "2048x1080p25", "20": "2048x1080p30",
		"21": "2048x1080p50", "22": "2048x1080p60",
		"25": "vga", "26": "svga", "2C": "wuxga", "30": "uxga",
		"31": "qxga", "3D": "wqhd60",
	}

	colorimetryNames = []string{
		"no_data", "bt601", "bt709", "xvycc601", "xvycc709", "sycc601",
		"adobe_ycc601", "adobe_rgb", "bt2020_cl", "bt2020_ncl", "srgb",
		"dci_p3_d65", "dci_p3_theater",
	}

	// Picture Mode (PMPM) codes from the 2024 external command list.
	pictureModeNames = map[string]string{
		"01": "cinema", "03": "natural",
		"0B": "frame_adapt_hdr", "0C": "sdr1", "0D": "sdr2",
		"0E": "hdr1", "0F": "hdr2",
		"14": "hlg", "15": "hdr10+", "17": "filmmaker",
		"18": "frame_adapt_hdr2", "1B": "vivid",
	}

	contentTypeNames = map[string]string{
		"0": "auto", "1": "sdr", "2": "hdr10+", "3": "hdr10", "4": "hlg",
	}
)

// FormatValue translates a raw reference response into its friendly
// value. ref is the full reference code the value answers (for example
// "IFLT", not the two-character echo). Unknown codes and unmapped raw
// values pass through unchanged so new firmware values stay visible.
func FormatValue(ref, raw string) string {
	switch ref {
	case "PW":
		return lookupIndexed(powerNames, raw)
	case "IP", "IFIN":
		return lookupMapped(inputNames, raw)
	case "SC":
		return lookupIndexed(sourceNames, raw)
	case "IFIS":
		return lookupMapped(resolutionNames, raw)
	case "IFCM":
		return lookupIndexed(colorimetryNames, raw)
	case "PMPM":
		return lookupMapped(pictureModeNames, raw)
	case "PMCT", "PMAT":
		return lookupMapped(contentTypeNames, raw)
	case "PMLP":
		return lookupIndexed(laserNames, raw)
	case "PMDC":
		return lookupIndexed(dynCtrlName, raw)
	case "IFLT":
		// Numeric data arrives as hex, hours in decimal.
		if n, err := strconv.ParseInt(raw, 16, 64); err == nil {
			return strconv.FormatInt(n, 10)
		}
		return raw
	case "MD":
		return strings.TrimSpace(raw)
	case "LSMA":
		mac := strings.ReplaceAll(strings.TrimSpace(raw), " ", "-")
		for strings.Contains(mac, "--") {
			mac = strings.ReplaceAll(mac, "--", "-")
		}
		return mac
	case "LSIP":
		return formatIPQuads(raw)
	}
	return raw
}

// lookupIndexed treats the raw value as a hex index into names.
func lookupIndexed(names []string, raw string) string {
	idx, err := strconv.ParseInt(raw, 16, 32)
	if err != nil || idx < 0 || int(idx) >= len(names) {
		return raw
	}
	return names[idx]
}

func lookupMapped(names map[string]string, raw string) string {
	if v, ok := names[raw]; ok {
		return v
	}
	return raw
}

// formatIPQuads turns eight hex digits into a dotted IPv4 address.
func formatIPQuads(raw string) string {
	if len(raw) != 8 {
		return raw
	}
	quads := make([]string, 4)
	for i := 0; i < 4; i++ {
		n, err := strconv.ParseInt(raw[i*2:i*2+2], 16, 32)
		if err != nil {
			return raw
		}
		quads[i] = strconv.FormatInt(n, 10)
	}
	return fmt.Sprintf("%s.%s.%s.%s", quads[0], quads[1], quads[2], quads[3])
}
