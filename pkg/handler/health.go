package handler

import (
	"fmt"

	"github.com/tomkp/card-spy-sub001/pkg/atr"
	"github.com/tomkp/card-spy-sub001/pkg/hexutil"
	"github.com/tomkp/card-spy-sub001/pkg/iso7816"
)

// HealthHandler recognizes German health sector cards: the insured
// person's card (eGK) and the professional's card (HBA). The freely
// readable EF.GDO carries the ICCSN.
type HealthHandler struct{}

// NewHealth returns the health card handler.
func NewHealth() *HealthHandler { return &HealthHandler{} }

func (h *HealthHandler) Name() string { return "health" }

var healthAIDs = [][]byte{
	{0xD2, 0x76, 0x00, 0x01, 0x44, 0x80, 0x00},       // eGK root application
	{0xD2, 0x76, 0x00, 0x01, 0x46, 0x01},             // HBA root application
	{0xD2, 0x76, 0x00, 0x00, 0x01, 0x02},             // legacy KVK
}

var healthLabels = []string{"eGK (health insurance card)", "HBA (health professional card)", "KVK (legacy insurance card)"}

const efGDO uint16 = 0x2F02

func (h *HealthHandler) Detect(card *atr.ATR, client *iso7816.Client) DetectionResult {
	i, _ := probeAIDs(client, healthAIDs)
	if i < 0 {
		return DetectionResult{}
	}
	return DetectionResult{
		Detected:   true,
		Confidence: confidenceAID,
		CardType:   healthLabels[i],
		Metadata:   map[string]string{"aid": hexutil.Compact(healthAIDs[i])},
	}
}

var healthCatalog = []CardCommand{
	{
		ID: "select", Name: "Select health application",
		Description: "SELECT the card's root health application",
		Category:    "selection",
	},
	{
		ID: "read_gdo", Name: "Read EF.GDO",
		Description: "Read the global data objects (ICCSN)",
		Category:    "data",
	},
}

func (h *HealthHandler) Commands(meta map[string]string) []CardCommand {
	return healthCatalog
}

func (h *HealthHandler) Execute(client *iso7816.Client, commandID string, params Params) (*iso7816.ResponseAPDU, error) {
	cmd, err := findCommand(healthCatalog, commandID)
	if err != nil {
		return nil, err
	}
	if err := checkRequired(cmd, params); err != nil {
		return nil, err
	}

	switch commandID {
	case "select":
		var last *iso7816.ResponseAPDU
		for _, aid := range healthAIDs {
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

	case "read_gdo":
		return readGDO(client)
	}

	return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, commandID)
}

// readGDO selects EF.GDO at master file level and reads it.
func readGDO(client *iso7816.Client) (*iso7816.ResponseAPDU, error) {
	resp, err := client.Exchange(iso7816.SelectFile(0x00, efGDO))
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return resp, nil
	}
	return client.Exchange(iso7816.ReadBinary(0x00, 0, iso7816.MaxShortLe))
}

func (h *HealthHandler) Interrogate(client *iso7816.Client) (*Report, error) {
	report := newReport("Health card")

	for i, aid := range healthAIDs {
		resp, err := selectAID(client, aid)
		if err != nil {
			return nil, err
		}
		if resp.IsSuccess() {
			report.Applications = append(report.Applications, Application{AID: aid, Label: healthLabels[i]})
			report.CardType = healthLabels[i]
			break
		}
	}

	if resp, err := readGDO(client); err == nil && resp.IsSuccess() && len(resp.Data) > 0 {
		report.Fields["gdo"] = hexutil.Compact(resp.Data)
	}

	return report, nil
}
