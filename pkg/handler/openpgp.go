package handler

import (
	"fmt"

	"github.com/tomkp/card-spy-sub001/pkg/atr"
	"github.com/tomkp/card-spy-sub001/pkg/hexutil"
	"github.com/tomkp/card-spy-sub001/pkg/iso7816"
	"github.com/tomkp/card-spy-sub001/pkg/tlv"
)

// OpenPGPHandler drives OpenPGP cards (the applet on YubiKeys, Nitrokeys
// and dedicated GnuPG cards). Everything of interest is readable through
// GET DATA on well-known tags.
type OpenPGPHandler struct{}

// NewOpenPGP returns the OpenPGP card handler.
func NewOpenPGP() *OpenPGPHandler { return &OpenPGPHandler{} }

func (h *OpenPGPHandler) Name() string { return "openpgp" }

var openpgpAID = []byte{0xD2, 0x76, 0x00, 0x01, 0x24, 0x01}

// GET DATA tags per the OpenPGP card specification 3.4.
var openpgpTags = map[string]uint16{
	"aid":              0x004F,
	"cardholder":       0x0065,
	"application_data": 0x006E,
	"url":              0x5F50,
	"login":            0x005E,
}

func (h *OpenPGPHandler) Detect(card *atr.ATR, client *iso7816.Client) DetectionResult {
	i, _ := probeAIDs(client, [][]byte{openpgpAID})
	if i < 0 {
		return DetectionResult{}
	}

	meta := map[string]string{"aid": hexutil.Compact(openpgpAID)}
	// The full AID data object carries the applet version and serial.
	if full, err := client.Exchange(iso7816.GetData(0x00, openpgpTags["aid"])); err == nil && full.IsSuccess() && len(full.Data) >= 8 {
		meta["version"] = fmt.Sprintf("%d.%d", full.Data[6], full.Data[7])
	}

	return DetectionResult{
		Detected:   true,
		Confidence: confidenceAID,
		CardType:   "OpenPGP card",
		Metadata:   meta,
	}
}

var openpgpCatalog = []CardCommand{
	{
		ID: "select", Name: "Select OpenPGP applet",
		Description: "SELECT the OpenPGP application",
		Category:    "selection",
	},
	{
		ID: "get_data", Name: "Get data object",
		Description: "Read a well-known OpenPGP data object",
		Category:    "data",
		Params: []CommandParam{
			{
				ID: "object", Name: "Data object", Type: ParamSelect, Required: true,
				Options: []string{"aid", "cardholder", "application_data", "url", "login"},
			},
		},
	},
}

func (h *OpenPGPHandler) Commands(meta map[string]string) []CardCommand {
	return openpgpCatalog
}

func (h *OpenPGPHandler) Execute(client *iso7816.Client, commandID string, params Params) (*iso7816.ResponseAPDU, error) {
	cmd, err := findCommand(openpgpCatalog, commandID)
	if err != nil {
		return nil, err
	}
	if err := checkRequired(cmd, params); err != nil {
		return nil, err
	}

	switch commandID {
	case "select":
		return selectAID(client, openpgpAID)

	case "get_data":
		tag, ok := openpgpTags[params.String("object")]
		if !ok {
			return nil, fmt.Errorf("%w: unknown OpenPGP object %q", ErrInvalidParam, params.String("object"))
		}
		return client.Exchange(iso7816.GetData(0x00, tag))
	}

	return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, commandID)
}

func (h *OpenPGPHandler) Interrogate(client *iso7816.Client) (*Report, error) {
	report := newReport("OpenPGP card")

	resp, err := selectAID(client, openpgpAID)
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return report, nil
	}
	report.Applications = append(report.Applications, Application{AID: openpgpAID, Label: "OpenPGP"})

	if resp, err := client.Exchange(iso7816.GetData(0x00, openpgpTags["aid"])); err == nil && resp.IsSuccess() {
		d := resp.Data
		if len(d) >= 16 {
			report.Fields["version"] = fmt.Sprintf("%d.%d", d[6], d[7])
			report.Fields["manufacturer"] = hexutil.Compact(d[8:10])
			report.Fields["serial"] = hexutil.Compact(d[10:14])
		}
	}

	// Cardholder data: constructed 65 with name (5B) and language (5F2D).
	if resp, err := client.Exchange(iso7816.GetData(0x00, openpgpTags["cardholder"])); err == nil && resp.IsSuccess() {
		nodes := tlv.Decode(resp.Data)
		if name := tlv.FindFirst(nodes, 0x5B); name != nil && len(name.Value) > 0 {
			report.Fields["cardholder"] = hexutil.MakeSafeASCII(name.Value)
		}
		if lang := tlv.FindFirst(nodes, 0x5F2D); lang != nil && len(lang.Value) > 0 {
			report.Fields["language"] = string(lang.Value)
		}
	}

	if resp, err := client.Exchange(iso7816.GetData(0x00, openpgpTags["url"])); err == nil && resp.IsSuccess() && len(resp.Data) > 0 {
		report.Fields["url"] = hexutil.MakeSafeASCII(resp.Data)
	}

	return report, nil
}
