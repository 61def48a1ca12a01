package atr

import (
	"regexp"

	"github.com/tomkp/card-spy-sub001/pkg/hexutil"
)

// The hint table matches known ATRs against the compact upper-case hex of
// the full sequence. Order matters: longer, more specific patterns sit
// before the generic families they would otherwise be shadowed by, and the
// first match wins.
type hintPattern struct {
	pattern *regexp.Regexp
	hint    string
}

var hintTable = []hintPattern{
	// PC/SC part 3 contactless storage ATRs carry the card standard and
	// name in the historical bytes (RID A0 00 00 03 06).
	{regexp.MustCompile(`^3B8F8001804F0CA000000306..000100`), "MIFARE Classic 1K"},
	{regexp.MustCompile(`^3B8F8001804F0CA000000306..000200`), "MIFARE Classic 4K"},
	{regexp.MustCompile(`^3B8F8001804F0CA000000306..000300`), "MIFARE Ultralight"},
	{regexp.MustCompile(`^3B8F8001804F0CA000000306`), "Contactless storage card (PC/SC)"},

	// Card OS fingerprints in the historical bytes.
	{regexp.MustCompile(`597562694B6579`), "YubiKey"},             // "YubiKey"
	{regexp.MustCompile(`4A434F50`), "NXP JCOP JavaCard"},         // "JCOP"
	{regexp.MustCompile(`4361727465204E`), "Carte Nationale eID"}, // "Carte N..."
	{regexp.MustCompile(`^3B9F9[56]801FC[37]`), "GSM SIM / USIM"},
	{regexp.MustCompile(`^3B8880010000000000718100`), "Calypso transport card"},
	{regexp.MustCompile(`^3BDF18008131FE7D`), "OpenPGP card (v3)"},
	{regexp.MustCompile(`^3B7D96000080318065B0`), "IAS-ECC PKI card"},
	{regexp.MustCompile(`^3BD[0-9A-F]18FF81`), "eGK health card"},

	// Conventions and broad families, last resorts.
	{regexp.MustCompile(`^3F`), "Inverse convention card"},
}

// classify returns the first hint whose pattern matches the ATR, or an
// empty string when nothing in the table recognizes it.
func classify(raw []byte) string {
	hexATR := hexutil.Compact(raw)
	for _, entry := range hintTable {
		if entry.pattern.MatchString(hexATR) {
			return entry.hint
		}
	}
	return ""
}
