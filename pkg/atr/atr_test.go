package atr

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParse_TooShort(t *testing.T) {
	for _, raw := range [][]byte{nil, {}, {0x3B}} {
		a := Parse(raw)
		if a == nil {
			t.Fatal("Parse must never return nil for byte input")
		}
		if len(a.Protocols) != 0 {
			t.Errorf("short ATR protocols = %v; want empty", a.Protocols)
		}
		if len(a.Hints) != 1 || a.Hints[0] != "Invalid ATR (shorter than 2 bytes)" {
			t.Errorf("short ATR hints = %v; want invalid hint", a.Hints)
		}
	}
}

func TestParse_Convention(t *testing.T) {
	tests := []struct {
		ts   byte
		want Convention
	}{
		{0x3B, ConventionDirect},
		{0x3F, ConventionInverse},
		{0x42, ConventionDirect}, // unknown TS defaults to direct
	}

	for _, tt := range tests {
		a := Parse([]byte{tt.ts, 0x00})
		if a.Convention != tt.want {
			t.Errorf("Parse TS=%02X convention = %s; want %s", tt.ts, a.Convention, tt.want)
		}
	}
}

func TestParse_DefaultProtocol(t *testing.T) {
	// T0 = 0x00: no interface bytes, no historical bytes.
	a := Parse([]byte{0x3B, 0x00})
	if diff := cmp.Diff([]string{"T=0"}, a.Protocols); diff != "" {
		t.Errorf("protocols mismatch:\n%s", diff)
	}
	if a.CheckByte != nil {
		t.Error("no interface bytes means no check byte")
	}
}

func TestParse_SIMCard(t *testing.T) {
	// Classic SIM: TS 3B, T0 9F (TA1 + TD1 + 15 historical), TA1 95,
	// TD1 80 (TD2 follows), TD2 1F (T=15), TC3... simplified fixture.
	raw := []byte{
		0x3B, 0x9F, 0x95, 0x80, 0x1F, 0xC7,
		0x80, 0x31, 0xE0, 0x73, 0xFE, 0x21, 0x1B, 0x63, 0x0E, 0x83, 0x05, 0x95, 0x0C, 0x59, 0x1A,
	}
	a := Parse(raw)

	if a.Convention != ConventionDirect {
		t.Errorf("convention = %s; want direct", a.Convention)
	}
	if len(a.Protocols) < 1 || a.Protocols[0] != "T=0" {
		t.Fatalf("protocols = %v; want T=0 first", a.Protocols)
	}
	// TD1 high bit set: TD2 present after TA2 (TD1 bit 5). TD2 = 0x1F, T=15.
	if len(a.Protocols) != 2 || a.Protocols[1] != "T=15" {
		t.Errorf("protocols = %v; want [T=0 T=15]", a.Protocols)
	}
	if a.CheckByte == nil {
		t.Error("interface bytes present: last byte must be reserved as TCK")
	}
	if len(a.Hints) != 1 || a.Hints[0] != "GSM SIM / USIM" {
		t.Errorf("hints = %v; want GSM SIM / USIM", a.Hints)
	}
}

func TestParse_HistoricalASCII(t *testing.T) {
	// T0 = 0x04: four historical bytes, no interface bytes, no TCK.
	raw := append([]byte{0x3B, 0x04}, []byte("Test")...)
	a := Parse(raw)

	if !bytes.Equal(a.HistoricalBytes, []byte("Test")) {
		t.Errorf("historical = %X; want 'Test'", a.HistoricalBytes)
	}
	if a.HistoricalASCII != "Test" {
		t.Errorf("ASCII = %q; want Test", a.HistoricalASCII)
	}
	if a.CheckByte != nil {
		t.Error("T0 without interface flags must not reserve a check byte")
	}
}

func TestParse_NonPrintableHistorical(t *testing.T) {
	raw := []byte{0x3B, 0x02, 0x00, 0xFF}
	a := Parse(raw)
	if a.HistoricalASCII != "" {
		t.Errorf("ASCII = %q; want empty for non-printable bytes", a.HistoricalASCII)
	}
}

func TestParse_MifareClassicHint(t *testing.T) {
	// PC/SC contactless storage ATR for a MIFARE Classic 1K.
	a := ParseHex("3B 8F 80 01 80 4F 0C A0 00 00 03 06 03 00 01 00 00 00 00 6A")
	if a == nil {
		t.Fatal("ParseHex returned nil for valid hex")
	}
	if len(a.Hints) != 1 || a.Hints[0] != "MIFARE Classic 1K" {
		t.Errorf("hints = %v; want MIFARE Classic 1K", a.Hints)
	}
	if len(a.Protocols) == 0 || a.Protocols[0] != "T=0" {
		t.Errorf("protocols = %v; want T=0 from TD1 low nibble", a.Protocols)
	}
}

func TestParse_FirstMatchWins(t *testing.T) {
	// Generic PC/SC storage prefix without a known name suffix falls
	// through the specific rules to the generic one.
	a := ParseHex("3B 8F 80 01 80 4F 0C A0 00 00 03 06 0B 00 12 00 00 00 00 42")
	if len(a.Hints) != 1 || a.Hints[0] != "Contactless storage card (PC/SC)" {
		t.Errorf("hints = %v; want generic PC/SC hint", a.Hints)
	}
}

func TestParse_InverseConventionHint(t *testing.T) {
	a := Parse([]byte{0x3F, 0x00})
	if len(a.Hints) != 1 || a.Hints[0] != "Inverse convention card" {
		t.Errorf("hints = %v; want inverse convention hint", a.Hints)
	}
}

func TestParseHex_Invalid(t *testing.T) {
	if ParseHex("XYZ") != nil {
		t.Error("ParseHex must return nil for non-hex input")
	}
	if ParseHex("3B8") != nil {
		t.Error("ParseHex must return nil for odd-length input")
	}
}

func TestParse_Immutable(t *testing.T) {
	raw := []byte{0x3B, 0x04, 'T', 'e', 's', 't'}
	a := Parse(raw)
	raw[2] = 'X'

	if a.HistoricalASCII != "Test" {
		t.Error("parsed ATR must not alias the caller's buffer")
	}
}
