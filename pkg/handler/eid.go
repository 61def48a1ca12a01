package handler

import (
	"fmt"

	"github.com/tomkp/card-spy-sub001/pkg/atr"
	"github.com/tomkp/card-spy-sub001/pkg/hexutil"
	"github.com/tomkp/card-spy-sub001/pkg/iso7816"
)

// EIDHandler recognizes electronic identity and travel documents: the
// ICAO LDS application on passports and national eID applets. Most data
// on these cards sits behind access control, so interrogation stays on
// the freely readable surface (EF.CardAccess).
type EIDHandler struct{}

// NewEID returns the eID/travel document handler.
func NewEID() *EIDHandler { return &EIDHandler{} }

func (h *EIDHandler) Name() string { return "eid" }

var eidAIDs = [][]byte{
	{0xA0, 0x00, 0x00, 0x02, 0x47, 0x10, 0x01},                   // ICAO LDS (eMRTD)
	{0xE8, 0x07, 0x04, 0x00, 0x7F, 0x00, 0x07, 0x03, 0x02},       // German eID
	{0xA0, 0x00, 0x00, 0x01, 0x67, 0x45, 0x53, 0x54, 0x45, 0x49}, // Estonian EstEID
}

var eidLabels = []string{"ICAO travel document", "German eID", "Estonian eID"}

const efCardAccess uint16 = 0x011C

func (h *EIDHandler) Detect(card *atr.ATR, client *iso7816.Client) DetectionResult {
	i, _ := probeAIDs(client, eidAIDs)
	if i < 0 {
		return DetectionResult{}
	}
	return DetectionResult{
		Detected:   true,
		Confidence: confidenceAID,
		CardType:   eidLabels[i],
		Metadata:   map[string]string{"aid": hexutil.Compact(eidAIDs[i])},
	}
}

var eidCatalog = []CardCommand{
	{
		ID: "select", Name: "Select eID application",
		Description: "SELECT the first identity applet the card accepts",
		Category:    "selection",
	},
	{
		ID: "read_card_access", Name: "Read EF.CardAccess",
		Description: "Read the security protocol parameters (freely readable)",
		Category:    "data",
	},
}

func (h *EIDHandler) Commands(meta map[string]string) []CardCommand {
	return eidCatalog
}

func (h *EIDHandler) Execute(client *iso7816.Client, commandID string, params Params) (*iso7816.ResponseAPDU, error) {
	cmd, err := findCommand(eidCatalog, commandID)
	if err != nil {
		return nil, err
	}
	if err := checkRequired(cmd, params); err != nil {
		return nil, err
	}

	switch commandID {
	case "select":
		var last *iso7816.ResponseAPDU
		for _, aid := range eidAIDs {
			resp, err := selectAID(client, aid)
			if err != nil {
				return nil, err
			}
			if resp.IsSuccess() {
				return resp, nil
			}
			last = resp
		}
		return last, nil

	case "read_card_access":
		return readCardAccess(client)
	}

	return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, commandID)
}

// readCardAccess selects EF.CardAccess at the master file level and reads
// its content.
func readCardAccess(client *iso7816.Client) (*iso7816.ResponseAPDU, error) {
	resp, err := client.Exchange(iso7816.SelectFile(0x00, efCardAccess))
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return resp, nil
	}
	return client.Exchange(iso7816.ReadBinary(0x00, 0, iso7816.MaxShortLe))
}

func (h *EIDHandler) Interrogate(client *iso7816.Client) (*Report, error) {
	report := newReport("Identity document")

	for i, aid := range eidAIDs {
		resp, err := selectAID(client, aid)
		if err != nil {
			return nil, err
		}
		if resp.IsSuccess() {
			report.Applications = append(report.Applications, Application{AID: aid, Label: eidLabels[i]})
			report.CardType = eidLabels[i]
			break
		}
	}

	if resp, err := readCardAccess(client); err == nil && resp.IsSuccess() && len(resp.Data) > 0 {
		report.Fields["card_access"] = hexutil.Compact(resp.Data)
	}

	return report, nil
}
