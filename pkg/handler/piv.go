package handler

import (
	"fmt"

	"github.com/tomkp/card-spy-sub001/pkg/atr"
	"github.com/tomkp/card-spy-sub001/pkg/hexutil"
	"github.com/tomkp/card-spy-sub001/pkg/iso7816"
)

// PIVHandler drives US federal identity cards (NIST SP 800-73). Data
// objects are addressed by a BER tag carried in a 5C list inside a
// GET DATA (INS CB) command.
type PIVHandler struct{}

// NewPIV returns the PIV identity card handler.
func NewPIV() *PIVHandler { return &PIVHandler{} }

func (h *PIVHandler) Name() string { return "piv" }

var pivAIDs = [][]byte{
	{0xA0, 0x00, 0x00, 0x03, 0x08, 0x00, 0x00, 0x10, 0x00, 0x01, 0x00},
	{0xA0, 0x00, 0x00, 0x03, 0x08}, // truncated form some cards require
}

// PIV data object tags per SP 800-73-4 part 1.
var pivObjects = map[string][]byte{
	"chuid":       {0x5F, 0xC1, 0x02},
	"ccc":         {0x5F, 0xC1, 0x07},
	"cert_auth":   {0x5F, 0xC1, 0x05},
	"cert_sign":   {0x5F, 0xC1, 0x0A},
	"cert_keymgm": {0x5F, 0xC1, 0x0B},
	"cert_card":   {0x5F, 0xC1, 0x01},
	"printed":     {0x5F, 0xC1, 0x09},
}

func (h *PIVHandler) Detect(card *atr.ATR, client *iso7816.Client) DetectionResult {
	i, _ := probeAIDs(client, pivAIDs)
	if i < 0 {
		return DetectionResult{}
	}
	return DetectionResult{
		Detected:   true,
		Confidence: confidenceAID,
		CardType:   "PIV identity card",
		Metadata:   map[string]string{"aid": hexutil.Compact(pivAIDs[i])},
	}
}

var pivCatalog = []CardCommand{
	{
		ID: "select", Name: "Select PIV application",
		Description: "SELECT the PIV applet",
		Category:    "selection",
	},
	{
		ID: "get_data", Name: "Get data object",
		Description: "Read a PIV data object (CHUID, CCC, certificates)",
		Category:    "data",
		Params: []CommandParam{
			{
				ID: "object", Name: "Data object", Type: ParamSelect, Required: true,
				Options: []string{"chuid", "ccc", "cert_auth", "cert_sign", "cert_keymgm", "cert_card", "printed"},
			},
		},
	},
	{
		ID: "pin_retries", Name: "PIN retry counter",
		Description: "VERIFY with empty data to read the remaining PIN tries",
		Category:    "security",
	},
}

func (h *PIVHandler) Commands(meta map[string]string) []CardCommand {
	return pivCatalog
}

func (h *PIVHandler) Execute(client *iso7816.Client, commandID string, params Params) (*iso7816.ResponseAPDU, error) {
	cmd, err := findCommand(pivCatalog, commandID)
	if err != nil {
		return nil, err
	}
	if err := checkRequired(cmd, params); err != nil {
		return nil, err
	}

	switch commandID {
	case "select":
		return selectAID(client, pivAIDs[0])

	case "get_data":
		tag, ok := pivObjects[params.String("object")]
		if !ok {
			return nil, fmt.Errorf("%w: unknown PIV object %q", ErrInvalidParam, params.String("object"))
		}
		return pivGetData(client, tag)

	case "pin_retries":
		// Empty VERIFY against key reference 80: the card answers 63CX
		// with X remaining tries.
		return client.Exchange(iso7816.NewCommandAPDU(0x00, iso7816.InsVerify, 0x00, 0x80, nil, 0))
	}

	return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, commandID)
}

// pivGetData issues the PIV GET DATA: P1P2 = 3FFF, data = 5C tag list.
func pivGetData(client *iso7816.Client, tag []byte) (*iso7816.ResponseAPDU, error) {
	data := append([]byte{0x5C, byte(len(tag))}, tag...)
	return client.Exchange(iso7816.NewCommandAPDU(0x00, iso7816.InsGetDataBER, 0x3F, 0xFF, data, 0))
}

func (h *PIVHandler) Interrogate(client *iso7816.Client) (*Report, error) {
	report := newReport("PIV identity card")

	i, resp := probeAIDs(client, pivAIDs)
	if i < 0 {
		return report, nil
	}
	report.Applications = append(report.Applications, Application{AID: pivAIDs[i], Label: "PIV"})
	if len(resp.Data) > 0 {
		report.Fields["application_property"] = hexutil.Compact(resp.Data)
	}

	if resp, err := pivGetData(client, pivObjects["chuid"]); err == nil && resp.IsSuccess() {
		report.Fields["chuid"] = hexutil.Compact(resp.Data)
	}
	if resp, err := pivGetData(client, pivObjects["ccc"]); err == nil && resp.IsSuccess() {
		report.Fields["ccc"] = hexutil.Compact(resp.Data)
	}

	// Retry counter comes back as a 63CX warning, not as data.
	if resp, err := client.Exchange(iso7816.NewCommandAPDU(0x00, iso7816.InsVerify, 0x00, 0x80, nil, 0)); err == nil {
		if resp.Status.SW1() == 0x63 && resp.Status.SW2()&0xF0 == 0xC0 {
			report.Fields["pin_retries"] = fmt.Sprintf("%d", resp.Status.SW2()&0x0F)
		}
	}

	return report, nil
}
