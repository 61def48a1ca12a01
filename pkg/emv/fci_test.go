package emv

import (
	"bytes"
	"strings"
	"testing"

	"github.com/tomkp/card-spy-sub001/pkg/hexutil"
)

// A SELECT response for a typical payment application, with a BF0C
// template and one tag the struct does not map (9F4D Log Entry).
var sampleFCI = hexutil.ParseHexInput(`
	6F 2E
	   84 07 A0 00 00 00 04 10 10
	   A5 23
	      50 0A 4D 41 53 54 45 52 43 41 52 44
	      87 01 01
	      5F 2D 04 66 72 65 6E
	      BF 0C 0A
	         9F 4D 02 0B 0A
	         5F 55 02 46 52
`)

func TestParseFCI(t *testing.T) {
	fci, err := ParseFCI(sampleFCI)
	if err != nil {
		t.Fatalf("ParseFCI failed: %v", err)
	}

	if want := []byte{0xA0, 0x00, 0x00, 0x00, 0x04, 0x10, 0x10}; !bytes.Equal(fci.DFName, want) {
		t.Errorf("DFName = %X; want %X", fci.DFName, want)
	}
	if got := string(fci.ProprietaryTemplate.ApplicationLabel); got != "MASTERCARD" {
		t.Errorf("ApplicationLabel = %q; want MASTERCARD", got)
	}
	if got := string(fci.ProprietaryTemplate.LanguagePreference); got != "fren" {
		t.Errorf("LanguagePreference = %q; want fren", got)
	}
	if !bytes.Equal(fci.ProprietaryTemplate.ApplicationPriorityIndicator, []byte{0x01}) {
		t.Errorf("priority = %X; want 01", fci.ProprietaryTemplate.ApplicationPriorityIndicator)
	}

	disc := fci.ProprietaryTemplate.IssuerDiscretionaryData
	if disc == nil {
		t.Fatal("IssuerDiscretionaryData not mapped")
	}
	if !bytes.Equal(disc.LogEntry, []byte{0x0B, 0x0A}) {
		t.Errorf("LogEntry = %X; want 0B0A", disc.LogEntry)
	}
	if got := string(disc.IssuerCountryCodeAlpha2); got != "FR" {
		t.Errorf("alpha2 country = %q; want FR", got)
	}
}

func TestParseFCI_WithoutOuterWrapper(t *testing.T) {
	// Some cards answer with the template contents directly.
	data := hexutil.ParseHexInput("84 05 A0 00 00 00 03 A5 06 50 04 56 49 53 41")

	fci, err := ParseFCI(data)
	if err != nil {
		t.Fatalf("ParseFCI failed: %v", err)
	}
	if got := string(fci.ProprietaryTemplate.ApplicationLabel); got != "VISA" {
		t.Errorf("ApplicationLabel = %q; want VISA", got)
	}
}

func TestParseFCI_PDOL(t *testing.T) {
	data := hexutil.ParseHexInput("6F 0F 84 02 3F 00 A5 09 9F 38 06 9F 66 04 9F 02 06")

	fci, err := ParseFCI(data)
	if err != nil {
		t.Fatalf("ParseFCI failed: %v", err)
	}

	entries := ParseDOL(fci.ProprietaryTemplate.PDOL)
	if len(entries) != 2 || entries[0].Tag != 0x9F66 || entries[1].Tag != 0x9F02 {
		t.Errorf("PDOL entries = %+v", entries)
	}
}

func TestParseFCI_Errors(t *testing.T) {
	if _, err := ParseFCI(nil); err == nil {
		t.Error("expected error for empty data")
	}
	if _, err := ParseFCI([]byte{0x00, 0x00}); err == nil {
		t.Error("expected error for padding-only data")
	}
}

func TestFCI_Describe(t *testing.T) {
	fci, err := ParseFCI(sampleFCI)
	if err != nil {
		t.Fatalf("ParseFCI failed: %v", err)
	}

	report := fci.Describe()
	for _, want := range []string{"EMV FCI TEMPLATE", "MASTERCARD", "DFName"} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q:\n%s", want, report)
		}
	}
}
