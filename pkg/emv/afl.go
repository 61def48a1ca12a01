// Package emv implements the EMV data objects that drive a payment
// application session: the Application File Locator (which records to
// read), Data Object Lists (what the terminal must supply to the card),
// the Cardholder Verification Method list, and the command builders and
// FCI/directory templates around them.
package emv

// AFLEntry is one four-byte group of the Application File Locator: a file
// (SFI) and the span of records the terminal should read from it.
type AFLEntry struct {
	SFI         byte
	FirstRecord byte
	LastRecord  byte
	ODARecords  byte // records included in offline data authentication
}

// ParseAFL splits an AFL value into its fixed four-byte entries.
//
// A malformed AFL (length not a multiple of four) yields no entries at
// all: reading records from a misaligned locator would walk the wrong
// files, so the whole value is treated as empty rather than an error.
func ParseAFL(data []byte) []AFLEntry {
	if len(data) == 0 || len(data)%4 != 0 {
		return nil
	}

	entries := make([]AFLEntry, 0, len(data)/4)
	for i := 0; i < len(data); i += 4 {
		entries = append(entries, AFLEntry{
			SFI:         (data[i] >> 3) & 0x1F,
			FirstRecord: data[i+1],
			LastRecord:  data[i+2],
			ODARecords:  data[i+3],
		})
	}
	return entries
}
