package handler

import (
	"fmt"

	"github.com/tomkp/card-spy-sub001/pkg/atr"
	"github.com/tomkp/card-spy-sub001/pkg/hexutil"
	"github.com/tomkp/card-spy-sub001/pkg/iso7816"
)

// FIDOHandler recognizes U2F/CTAP security keys over NFC or contact. The
// applet answers SELECT with its version string ("U2F_V2", "FIDO_2_0").
type FIDOHandler struct{}

// NewFIDO returns the FIDO security key handler.
func NewFIDO() *FIDOHandler { return &FIDOHandler{} }

func (h *FIDOHandler) Name() string { return "fido" }

var fidoAID = []byte{0xA0, 0x00, 0x00, 0x06, 0x47, 0x2F, 0x00, 0x01}

func (h *FIDOHandler) Detect(card *atr.ATR, client *iso7816.Client) DetectionResult {
	i, resp := probeAIDs(client, [][]byte{fidoAID})
	if i < 0 {
		return DetectionResult{}
	}

	meta := map[string]string{"aid": hexutil.Compact(fidoAID)}
	if len(resp.Data) > 0 {
		meta["version"] = hexutil.MakeSafeASCII(resp.Data)
	}

	return DetectionResult{
		Detected:   true,
		Confidence: confidenceAID,
		CardType:   "FIDO security key",
		Metadata:   meta,
	}
}

var fidoCatalog = []CardCommand{
	{
		ID: "select", Name: "Select FIDO applet",
		Description: "SELECT the U2F/CTAP application",
		Category:    "selection",
	},
	{
		ID: "get_version", Name: "Get U2F version",
		Description: "U2F_VERSION command (INS 03)",
		Category:    "info",
	},
}

func (h *FIDOHandler) Commands(meta map[string]string) []CardCommand {
	return fidoCatalog
}

func (h *FIDOHandler) Execute(client *iso7816.Client, commandID string, params Params) (*iso7816.ResponseAPDU, error) {
	cmd, err := findCommand(fidoCatalog, commandID)
	if err != nil {
		return nil, err
	}
	if err := checkRequired(cmd, params); err != nil {
		return nil, err
	}

	switch commandID {
	case "select":
		return selectAID(client, fidoAID)

	case "get_version":
		return client.Exchange(iso7816.NewCommandAPDU(0x00, 0x03, 0x00, 0x00, nil, iso7816.MaxShortLe))
	}

	return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, commandID)
}

func (h *FIDOHandler) Interrogate(client *iso7816.Client) (*Report, error) {
	report := newReport("FIDO security key")

	resp, err := selectAID(client, fidoAID)
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return report, nil
	}

	label := "FIDO"
	if len(resp.Data) > 0 {
		label = hexutil.MakeSafeASCII(resp.Data)
		report.Fields["version"] = label
	}
	report.Applications = append(report.Applications, Application{AID: fidoAID, Label: label})

	return report, nil
}
