// SPDX-License-Identifier: Apache-2.0

package dila

import "testing"

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name string
		ref  string
		raw  string
		want string
	}{
		{name: "power standby", ref: "PW", raw: "0", want: "standby"},
		{name: "power on", ref: "PW", raw: "1", want: "on"},
		{name: "power cooling", ref: "PW", raw: "2", want: "cooling"},
		{name: "power unknown passes through", ref: "PW", raw: "9", want: "9"},
		{name: "input hdmi1", ref: "IP", raw: "6", want: "hdmi1"},
		{name: "source active", ref: "SC", raw: "1", want: "signal"},
		{name: "resolution 4k24", ref: "IFIS", raw: "14", want: "4k(4096)24"},
		{name: "resolution unmapped", ref: "IFIS", raw: "7F", want: "7F"},
		{name: "colorimetry bt2020", ref: "IFCM", raw: "9", want: "bt2020_ncl"},
		{name: "picture mode hlg", ref: "PMPM", raw: "14", want: "hlg"},
		{name: "content type hdr10", ref: "PMCT", raw: "3", want: "hdr10"},
		{name: "laser power med", ref: "PMLP", raw: "1", want: "med"},
		{name: "dynamic control balanced", ref: "PMDC", raw: "3", want: "balanced"},
		{name: "light time hex to decimal", ref: "IFLT", raw: "0064", want: "100"},
		{name: "light time zero", ref: "IFLT", raw: "0", want: "0"},
		{name: "light time garbage passes through", ref: "IFLT", raw: "XYZ", want: "XYZ"},
		{name: "model trims padding", ref: "MD", raw: "  ILAFPJ -- B5A2  ", want: "ILAFPJ -- B5A2"},
		{name: "mac normalizes separators", ref: "LSMA", raw: "00 A0 B1 C2 D3 E4", want: "00-A0-B1-C2-D3-E4"},
		{name: "ip quads", ref: "LSIP", raw: "C0A8010A", want: "192.168.1.10"},
		{name: "ip malformed passes through", ref: "LSIP", raw: "C0A801", want: "C0A801"},
		{name: "unknown ref passes through", ref: "ZZ", raw: "raw", want: "raw"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatValue(tt.ref, tt.raw)
			if got != tt.want {
				t.Errorf("FormatValue(%s, %q) = %q, want %q", tt.ref, tt.raw, got, tt.want)
			}
		})
	}
}
