package emv

import (
	"time"

	"github.com/tomkp/card-spy-sub001/pkg/tlv"
)

// DOLEntry is one tag/length pair of a Data Object List (PDOL, CDOL1,
// CDOL2): the card names a tag and the exact number of bytes it expects
// the terminal to supply for it.
type DOLEntry struct {
	Tag    uint32
	Length int
}

// ParseDOL decodes the alternating tag/length runs of a DOL. Tags follow
// the same multi-byte rule as BER-TLV. A trailing incomplete entry (cut
// off mid-tag or missing its length byte) terminates parsing early; the
// entries collected so far are returned.
func ParseDOL(data []byte) []DOLEntry {
	var entries []DOLEntry
	offset := 0

	for offset < len(data) {
		tag, next, ok := tlv.ParseTag(data, offset)
		if !ok {
			break
		}
		if next >= len(data) {
			break
		}
		entries = append(entries, DOLEntry{Tag: tag, Length: int(data[next])})
		offset = next + 1
	}

	return entries
}

// BuildDOLData concatenates the values the card asked for, in DOL order.
// The card expects exactly entry.Length bytes per tag: missing values are
// zero-filled, short values left-padded with zeros, long values truncated
// to their leading bytes.
func BuildDOLData(entries []DOLEntry, values map[uint32][]byte) []byte {
	var out []byte
	for _, e := range entries {
		field := make([]byte, e.Length)
		if v, ok := values[e.Tag]; ok {
			if len(v) >= e.Length {
				copy(field, v[:e.Length])
			} else {
				copy(field[e.Length-len(v):], v)
			}
		}
		out = append(out, field...)
	}
	return out
}

// TransactionOptions parameterizes the default terminal data supplied to
// PDOL/CDOL entries. Amounts are in minor currency units.
type TransactionOptions struct {
	Amount              uint64
	OtherAmount         uint64
	CurrencyCode        uint16 // ISO 4217 numeric, e.g. 0x0978 for EUR
	CountryCode         uint16 // ISO 3166 numeric
	Date                time.Time
	UnpredictableNumber []byte // 4 bytes; zero-filled when absent
}

// DefaultDOLValues produces the standard terminal data objects for a
// transaction, using the fixed EMV layouts: BCD amounts and date,
// big-endian codes, and a conventional contact terminal profile.
func DefaultDOLValues(opts TransactionOptions) map[uint32][]byte {
	un := make([]byte, 4)
	copy(un, opts.UnpredictableNumber)

	date := opts.Date
	if date.IsZero() {
		date = time.Now()
	}
	year, month, day := date.Date()

	return map[uint32][]byte{
		0x9F02: EncodeBCD(opts.Amount, 6),      // Amount, Authorised
		0x9F03: EncodeBCD(opts.OtherAmount, 6), // Amount, Other
		0x5F2A: {byte(opts.CurrencyCode >> 8), byte(opts.CurrencyCode)},
		0x9F1A: {byte(opts.CountryCode >> 8), byte(opts.CountryCode)},
		0x9A:   EncodeBCDDigits(year%100, int(month), day), // Transaction Date YYMMDD
		0x9C:   {0x00},                                     // Transaction Type: purchase
		0x9F37: un,                                         // Unpredictable Number
		0x9F33: {0xE0, 0xF8, 0xC8},                         // Terminal Capabilities
		0x9F35: {0x22},                                     // Terminal Type: attended, offline with online
		0x9F40: {0x60, 0x00, 0xF0, 0x50, 0x01},             // Additional Terminal Capabilities
		0x95:   make([]byte, 5),                            // Terminal Verification Results
		0x9F66: {0x26, 0x00, 0x00, 0x00},                   // Terminal Transaction Qualifiers
	}
}

// EncodeBCD packs n into width bytes of binary-coded decimal, one decimal
// digit per nibble, left-padded with zero digits. Digits beyond the width
// are dropped from the most significant end.
func EncodeBCD(n uint64, width int) []byte {
	out := make([]byte, width)
	for i := width - 1; i >= 0 && n > 0; i-- {
		low := byte(n % 10)
		n /= 10
		high := byte(n % 10)
		n /= 10
		out[i] = high<<4 | low
	}
	return out
}

// EncodeBCDDigits packs each argument into one BCD byte (two digits).
// Values above 99 are taken modulo 100.
func EncodeBCDDigits(parts ...int) []byte {
	out := make([]byte, len(parts))
	for i, p := range parts {
		p %= 100
		out[i] = byte(p/10)<<4 | byte(p%10)
	}
	return out
}
