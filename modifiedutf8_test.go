// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package classfile

import "testing"

func TestDecodeModifiedUTF8(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want string
	}{
		{"ascii", []byte("Hello"), "Hello"},
		{"null byte as C0 80", []byte{0xC0, 0x80}, "\x00"},
		{"two byte", []byte{0xC2, 0xA2}, "¢"}, // cent sign
		{"three byte", []byte{0xE2, 0x82, 0xAC}, "€"}, // euro sign
		{
			"supplementary as surrogate pair",
			[]byte{0xED, 0xA0, 0xBD, 0xED, 0xB8, 0x80}, // U+1F600 (grinning face)
			"\U0001F600",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := decodeModifiedUTF8(tt.in)
			if got != tt.want {
				t.Fatalf("decodeModifiedUTF8(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestEncodeDecodeModifiedUTF8RoundTrip(t *testing.T) {
	inputs := []string{"", "plain ascii", "café", " embedded null", "\U0001F600 emoji"}
	for _, s := range inputs {
		enc := encodeModifiedUTF8(s)
		got := decodeModifiedUTF8(enc)
		if got != s {
			t.Fatalf("round trip %q -> %v -> %q", s, enc, got)
		}
	}
}
