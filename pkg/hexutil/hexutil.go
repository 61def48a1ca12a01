// Package hexutil parses and formats the hex byte strings exchanged with
// users and tools: ATRs, APDUs and tag values. Input is accepted in the
// loose formats people actually paste ("0x00, 0xA4 04 00", "3b8f8001...").
package hexutil

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// ParseHexInput converts a loose hex string into bytes.
//
// It tolerates "0x" prefixes, commas and any whitespace. Odd-length or
// non-hex input returns nil rather than an error: callers treat nil as
// "not valid hex" and surface that themselves.
func ParseHexInput(s string) []byte {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r', ',':
			return -1
		}
		return r
	}, s)

	cleaned = strings.ReplaceAll(cleaned, "0x", "")
	cleaned = strings.ReplaceAll(cleaned, "0X", "")

	if len(cleaned) == 0 || len(cleaned)%2 != 0 {
		return nil
	}

	data, err := hex.DecodeString(cleaned)
	if err != nil {
		return nil
	}
	return data
}

// Format renders data as upper-case hex with a space between bytes,
// the conventional presentation for APDU traces.
func Format(data []byte) string {
	parts := make([]string, len(data))
	for i, b := range data {
		parts[i] = fmt.Sprintf("%02X", b)
	}
	return strings.Join(parts, " ")
}

// Compact renders data as upper-case hex without separators.
func Compact(data []byte) string {
	return strings.ToUpper(hex.EncodeToString(data))
}

// MakeSafeASCII replaces non-printable bytes with '.' so binary values can
// be shown inline next to their hex form.
func MakeSafeASCII(data []byte) string {
	return strings.Map(func(r rune) rune {
		if r >= 32 && r <= 126 {
			return r
		}
		return '.'
	}, string(data))
}
