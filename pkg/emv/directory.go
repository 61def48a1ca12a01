package emv

import (
	"fmt"
	"strings"

	"github.com/tomkp/card-spy-sub001/pkg/tlv"
)

// DirectoryDiscretionaryTemplate (tag 73) carries issuer data attached to
// a directory entry.
type DirectoryDiscretionaryTemplate struct {
	ApplicationSelectionRegisteredProprietaryData []byte `tlv:"9F0A"`
	IssuerCountryCodeAlpha3                       []byte `tlv:"5F56" fmt:"ascii"`
	IssuerCountryCodeAlpha2                       []byte `tlv:"5F55" fmt:"ascii"`
	BankIdentifierCode                            []byte `tlv:"5F54" fmt:"ascii"`
	IBAN                                          []byte `tlv:"5F53" fmt:"ascii"`
	IssuerURL                                     []byte `tlv:"5F50" fmt:"ascii"`
	IssuerIdentificationNumber                    []byte `tlv:"42"`
	IssuerIdentificationNumberExtended            []byte `tlv:"9F0C"`
	LogEntry                                      []byte `tlv:"9F4D"`

	Unknown []tlv.Node `tlv:",unknown"`
}

// ApplicationTemplate (tag 61) is one entry of the Payment System
// Directory: the information needed to select one application.
type ApplicationTemplate struct {
	AID                          []byte                         `tlv:"4F"`             // mandatory
	ApplicationLabel             []byte                         `tlv:"50" fmt:"ascii"` // mandatory
	ApplicationPriorityIndicator []byte                         `tlv:"87" fmt:"int"`
	DirectoryDiscretionaryData   DirectoryDiscretionaryTemplate `tlv:"73"`
	ApplicationPreferredName     []byte                         `tlv:"9F12" fmt:"ascii"`
	DDFName                      []byte                         `tlv:"9D" fmt:"ascii"`

	Unknown []tlv.Node `tlv:",unknown"`
}

// DirectoryRecord is the content of one record read from the PSE SFI,
// wrapped in a Record Template (tag 70).
type DirectoryRecord struct {
	// A record can contain multiple application templates.
	Applications []ApplicationTemplate `tlv:"61"`

	Unknown []tlv.Node `tlv:",unknown"`
}

// ParseDirectoryRecord interprets raw READ RECORD data as EMV directory
// content. The mandatory tag 70 wrapper must be present.
func ParseDirectoryRecord(data []byte) (*DirectoryRecord, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty record data")
	}

	nodes := tlv.Decode(data)
	if len(nodes) == 0 || nodes[0].Tag != 0x70 {
		return nil, fmt.Errorf("missing mandatory Record Template (tag 70)")
	}

	record := &DirectoryRecord{}
	if err := tlv.UnmarshalFromNodes(nodes[0].Children, record); err != nil {
		return nil, fmt.Errorf("failed to map directory record: %w", err)
	}

	return record, nil
}

// Describe generates a report for all applications found in the record.
func (r *DirectoryRecord) Describe() string {
	var sb strings.Builder
	sb.WriteString("=== EMV DIRECTORY RECORD ===")

	tlv.WriteStructFields(&sb, "Record", r)

	for i, app := range r.Applications {
		prefix := fmt.Sprintf("App[%d]", i+1)
		tlv.WriteStructFields(&sb, prefix, app)
		tlv.WriteStructFields(&sb, prefix+".Discretionary", app.DirectoryDiscretionaryData)
	}

	return strings.TrimRight(sb.String(), "\n")
}
