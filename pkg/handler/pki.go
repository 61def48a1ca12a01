package handler

import (
	"fmt"

	"github.com/tomkp/card-spy-sub001/pkg/atr"
	"github.com/tomkp/card-spy-sub001/pkg/hexutil"
	"github.com/tomkp/card-spy-sub001/pkg/iso7816"
	"github.com/tomkp/card-spy-sub001/pkg/tlv"
)

// PKIHandler recognizes generic signature and authentication cards built
// on PKCS#15 or IAS-ECC. EF.DIR (2F00) lists the applications such cards
// carry, in the same 61-template format as an EMV directory.
type PKIHandler struct{}

// NewPKI returns the PKCS#15/IAS-ECC handler.
func NewPKI() *PKIHandler { return &PKIHandler{} }

func (h *PKIHandler) Name() string { return "pki" }

var pkiAIDs = [][]byte{
	{0xA0, 0x00, 0x00, 0x00, 0x63, 0x50, 0x4B, 0x43, 0x53, 0x2D, 0x31, 0x35}, // PKCS-15
	{0xA0, 0x00, 0x00, 0x00, 0x77, 0x01, 0x08, 0x00, 0x07, 0x00, 0x00, 0xFE, 0x00, 0x00, 0x01, 0x00}, // IAS-ECC
}

var pkiLabels = []string{"PKCS#15", "IAS-ECC"}

const efDIR uint16 = 0x2F00

func (h *PKIHandler) Detect(card *atr.ATR, client *iso7816.Client) DetectionResult {
	i, _ := probeAIDs(client, pkiAIDs)
	if i < 0 {
		return DetectionResult{}
	}
	return DetectionResult{
		Detected:   true,
		Confidence: confidenceAID,
		CardType:   "PKI card (" + pkiLabels[i] + ")",
		Metadata:   map[string]string{"aid": hexutil.Compact(pkiAIDs[i])},
	}
}

var pkiCatalog = []CardCommand{
	{
		ID: "select", Name: "Select PKI application",
		Description: "SELECT the PKCS#15 or IAS-ECC application",
		Category:    "selection",
	},
	{
		ID: "read_dir", Name: "Read EF.DIR",
		Description: "Read the application directory at 2F00",
		Category:    "data",
	},
}

func (h *PKIHandler) Commands(meta map[string]string) []CardCommand {
	return pkiCatalog
}

func (h *PKIHandler) Execute(client *iso7816.Client, commandID string, params Params) (*iso7816.ResponseAPDU, error) {
	cmd, err := findCommand(pkiCatalog, commandID)
	if err != nil {
		return nil, err
	}
	if err := checkRequired(cmd, params); err != nil {
		return nil, err
	}

	switch commandID {
	case "select":
		var last *iso7816.ResponseAPDU
		for _, aid := range pkiAIDs {
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

	case "read_dir":
		return readDIR(client)
	}

	return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, commandID)
}

// readDIR selects EF.DIR and reads its content.
func readDIR(client *iso7816.Client) (*iso7816.ResponseAPDU, error) {
	resp, err := client.Exchange(iso7816.SelectFile(0x00, efDIR))
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return resp, nil
	}
	return client.Exchange(iso7816.ReadBinary(0x00, 0, iso7816.MaxShortLe))
}

func (h *PKIHandler) Interrogate(client *iso7816.Client) (*Report, error) {
	report := newReport("PKI card")

	for i, aid := range pkiAIDs {
		resp, err := selectAID(client, aid)
		if err != nil {
			return nil, err
		}
		if resp.IsSuccess() {
			report.Applications = append(report.Applications, Application{AID: aid, Label: pkiLabels[i]})
			report.CardType = "PKI card (" + pkiLabels[i] + ")"
			break
		}
	}

	// EF.DIR lists every application, including ones we did not probe.
	if resp, err := readDIR(client); err == nil && resp.IsSuccess() {
		for _, app := range applicationsFromNodes(tlv.Decode(resp.Data)) {
			if !containsAID(report.Applications, app.AID) {
				report.Applications = append(report.Applications, app)
			}
		}
	}

	return report, nil
}

func containsAID(apps []Application, aid []byte) bool {
	for _, app := range apps {
		if hexutil.Compact(app.AID) == hexutil.Compact(aid) {
			return true
		}
	}
	return false
}
