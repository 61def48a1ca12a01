// Package atr decodes the Answer-To-Reset a card returns on power-up: the
// 2-33 byte sequence that fixes the signalling convention, announces the
// supported protocols and carries the card's historical bytes. It also
// classifies known ATRs into human-readable identity hints.
package atr

import (
	"fmt"

	"github.com/tomkp/card-spy-sub001/pkg/bits"
	"github.com/tomkp/card-spy-sub001/pkg/hexutil"
)

// Convention is the bit signalling convention announced by TS.
type Convention string

const (
	ConventionDirect  Convention = "direct"
	ConventionInverse Convention = "inverse"
)

// ATR holds the decoded Answer-To-Reset. It is built once per card
// insertion and never mutated afterwards.
type ATR struct {
	Raw             []byte
	Convention      Convention
	Protocols       []string
	HistoricalBytes []byte
	HistoricalASCII string
	CheckByte       *byte
	Hints           []string
}

// ParseHex decodes a loose hex ATR string (spaces, commas and 0x prefixes
// tolerated) and parses it. Returns nil for input that is not valid hex.
func ParseHex(s string) *ATR {
	raw := hexutil.ParseHexInput(s)
	if raw == nil {
		return nil
	}
	return Parse(raw)
}

// Parse decodes raw ATR bytes. It never fails: input shorter than the
// two mandatory bytes yields a result carrying an "invalid ATR" hint and
// no protocols.
func Parse(raw []byte) *ATR {
	a := &ATR{
		Raw:        append([]byte(nil), raw...),
		Convention: ConventionDirect,
		Protocols:  []string{},
	}

	if len(raw) < 2 {
		a.Hints = []string{"Invalid ATR (shorter than 2 bytes)"}
		return a
	}

	// TS fixes the convention. Anything besides the two defined values is
	// treated as direct so the rest of the ATR can still be inspected.
	if raw[0] == 0x3F {
		a.Convention = ConventionInverse
	}

	t0 := raw[1]
	historicalCount := int(bits.LowNibble(t0))

	// T0 bits 5-8 flag the presence of TA1/TB1/TC1/TD1.
	hasTA1 := bits.IsSet(t0, 5)
	hasTB1 := bits.IsSet(t0, 6)
	hasTC1 := bits.IsSet(t0, 7)
	hasTD1 := bits.IsSet(t0, 8)

	// Walk past the first interface-byte group to reach TD1.
	idx := 2
	if hasTA1 {
		idx++
	}
	if hasTB1 {
		idx++
	}
	if hasTC1 {
		idx++
	}

	if hasTD1 && idx < len(raw) {
		td1 := raw[idx]
		a.Protocols = append(a.Protocols, protocolName(bits.LowNibble(td1)))

		// TD1's high nibble flags a second interface group; TD2, when
		// present, sits after any TA2/TB2/TC2.
		if bits.IsSet(td1, 8) {
			idx2 := idx + 1
			if bits.IsSet(td1, 5) {
				idx2++
			}
			if bits.IsSet(td1, 6) {
				idx2++
			}
			if bits.IsSet(td1, 7) {
				idx2++
			}
			if idx2 < len(raw) {
				second := protocolName(bits.LowNibble(raw[idx2]))
				if second != a.Protocols[0] {
					a.Protocols = append(a.Protocols, second)
				}
			}
		}
	} else {
		// No TD1 means the card only speaks the default protocol.
		a.Protocols = append(a.Protocols, "T=0")
	}

	// Historical bytes sit at the tail. A check byte (TCK) is reserved
	// only when T0 flagged any optional interface byte; this is a known
	// simplification of ISO 7816-3 that the hint table below was tuned
	// against, so it stays.
	hasCheckByte := hasTA1 || hasTB1 || hasTC1 || hasTD1
	end := len(raw)
	if hasCheckByte && end > 2 {
		tck := raw[end-1]
		a.CheckByte = &tck
		end--
	}

	start := end - historicalCount
	if start < 2 {
		start = 2
	}
	if start < end {
		a.HistoricalBytes = append([]byte(nil), raw[start:end]...)
	}

	if printable(a.HistoricalBytes) {
		a.HistoricalASCII = string(a.HistoricalBytes)
	}

	if hint := classify(a.Raw); hint != "" {
		a.Hints = append(a.Hints, hint)
	}

	return a
}

// protocolName renders a TD low nibble as the usual protocol label.
func protocolName(n byte) string {
	switch n {
	case 0:
		return "T=0"
	case 1:
		return "T=1"
	default:
		return fmt.Sprintf("T=%d", n)
	}
}

// printable reports whether every byte is printable ASCII. Empty input is
// not considered printable.
func printable(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	for _, b := range data {
		if b < 0x20 || b > 0x7E {
			return false
		}
	}
	return true
}
