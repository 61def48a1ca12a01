package handler

import (
	"fmt"
	"regexp"

	"github.com/tomkp/card-spy-sub001/pkg/atr"
	"github.com/tomkp/card-spy-sub001/pkg/hexutil"
	"github.com/tomkp/card-spy-sub001/pkg/iso7816"
)

// JavaCardHandler recognizes GlobalPlatform cards through their Issuer
// Security Domain and reads the card production life cycle data.
type JavaCardHandler struct{}

// NewJavaCard returns the GlobalPlatform/JavaCard handler.
func NewJavaCard() *JavaCardHandler { return &JavaCardHandler{} }

func (h *JavaCardHandler) Name() string { return "javacard" }

var isdAIDs = [][]byte{
	{0xA0, 0x00, 0x00, 0x01, 0x51, 0x00, 0x00},             // GlobalPlatform ISD
	{0xA0, 0x00, 0x00, 0x00, 0x03, 0x00, 0x00, 0x00},       // legacy Visa OpenPlatform
}

var javaCardATRPatterns = []*regexp.Regexp{
	regexp.MustCompile(`4A434F50`), // "JCOP" in historical bytes
}

func (h *JavaCardHandler) Detect(card *atr.ATR, client *iso7816.Client) DetectionResult {
	if i, _ := probeAIDs(client, isdAIDs); i >= 0 {
		return DetectionResult{
			Detected:   true,
			Confidence: 90, // ISD presence proves the platform, not the product
			CardType:   "JavaCard (GlobalPlatform)",
			Metadata:   map[string]string{"isd": hexutil.Compact(isdAIDs[i])},
		}
	}

	if matchATR(card, javaCardATRPatterns) {
		return DetectionResult{
			Detected:   true,
			Confidence: confidenceATR,
			CardType:   "JavaCard (GlobalPlatform)",
			Metadata:   map[string]string{"match": "atr"},
		}
	}

	return DetectionResult{}
}

var javaCardCatalog = []CardCommand{
	{
		ID: "select_isd", Name: "Select security domain",
		Description: "SELECT the Issuer Security Domain",
		Category:    "selection",
	},
	{
		ID: "get_cplc", Name: "Get CPLC",
		Description: "GET DATA 9F7F: fabricator, IC type, batch and dates",
		Category:    "info",
	},
	{
		ID: "get_card_data", Name: "Get card recognition data",
		Description: "GET DATA 66: GlobalPlatform version and card details",
		Category:    "info",
	},
}

func (h *JavaCardHandler) Commands(meta map[string]string) []CardCommand {
	return javaCardCatalog
}

func (h *JavaCardHandler) Execute(client *iso7816.Client, commandID string, params Params) (*iso7816.ResponseAPDU, error) {
	cmd, err := findCommand(javaCardCatalog, commandID)
	if err != nil {
		return nil, err
	}
	if err := checkRequired(cmd, params); err != nil {
		return nil, err
	}

	switch commandID {
	case "select_isd":
		return h.selectISD(client)

	case "get_cplc":
		return client.Exchange(iso7816.GetData(0x80, 0x9F7F))

	case "get_card_data":
		return client.Exchange(iso7816.GetData(0x80, 0x0066))
	}

	return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, commandID)
}

func (h *JavaCardHandler) selectISD(client *iso7816.Client) (*iso7816.ResponseAPDU, error) {
	var last *iso7816.ResponseAPDU
	for _, aid := range isdAIDs {
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
}

func (h *JavaCardHandler) Interrogate(client *iso7816.Client) (*Report, error) {
	report := newReport("JavaCard (GlobalPlatform)")

	resp, err := h.selectISD(client)
	if err != nil {
		return nil, err
	}
	if resp == nil || !resp.IsSuccess() {
		return report, nil
	}
	report.Applications = append(report.Applications, Application{AID: isdAIDs[0], Label: "ISD"})

	if cplc, err := client.Exchange(iso7816.GetData(0x80, 0x9F7F)); err == nil && cplc.IsSuccess() {
		describeCPLC(cplc.Data, report)
	}
	if cd, err := client.Exchange(iso7816.GetData(0x80, 0x0066)); err == nil && cd.IsSuccess() {
		report.Fields["card_data"] = hexutil.Compact(cd.Data)
	}

	return report, nil
}

// describeCPLC splits the card production life cycle value into its fixed
// fields. The value may arrive with or without the 9F7F TLV header.
func describeCPLC(data []byte, report *Report) {
	// Strip the tag and length when present.
	if len(data) >= 3 && data[0] == 0x9F && data[1] == 0x7F {
		data = data[3:]
	}
	if len(data) < 16 {
		return
	}
	report.Fields["ic_fabricator"] = hexutil.Compact(data[0:2])
	report.Fields["ic_type"] = hexutil.Compact(data[2:4])
	report.Fields["os_id"] = hexutil.Compact(data[4:6])
	report.Fields["os_release_date"] = hexutil.Compact(data[6:8])
	report.Fields["os_release_level"] = hexutil.Compact(data[8:10])
	report.Fields["ic_fabrication_date"] = hexutil.Compact(data[10:12])
	report.Fields["ic_serial"] = hexutil.Compact(data[12:16])
}
