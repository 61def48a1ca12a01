package handler

import (
	"fmt"
	"regexp"

	"github.com/tomkp/card-spy-sub001/pkg/atr"
	"github.com/tomkp/card-spy-sub001/pkg/hexutil"
	"github.com/tomkp/card-spy-sub001/pkg/iso7816"
)

// TransportHandler drives Calypso transit cards (Navigo and relatives).
// The ticketing application is a record-structured file set; the
// environment record (SFI 07) identifies the network.
type TransportHandler struct{}

// NewTransport returns the transit ticketing handler.
func NewTransport() *TransportHandler { return &TransportHandler{} }

func (h *TransportHandler) Name() string { return "transport" }

var transportAIDs = [][]byte{
	[]byte("1TIC.ICA"),                         // Calypso ticketing DF name
	{0xA0, 0x00, 0x00, 0x02, 0x91, 0xA0, 0x00}, // Calypso registered AID
}

var calypsoATRPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^3B8F8001805A`),   // Calypso prime
	regexp.MustCompile(`^3B6F00.*805A`),   // older Calypso profiles
	regexp.MustCompile(`^3B8880.*00735A`), // CD21 based cards
}

const (
	calypsoEnvironmentSFI = 0x07
	calypsoContractsSFI   = 0x09
)

func (h *TransportHandler) Detect(card *atr.ATR, client *iso7816.Client) DetectionResult {
	if i, _ := probeAIDs(client, transportAIDs); i >= 0 {
		return DetectionResult{
			Detected:   true,
			Confidence: confidenceAID,
			CardType:   "Transit card (Calypso)",
			Metadata:   map[string]string{"aid": hexutil.Compact(transportAIDs[i])},
		}
	}

	if matchATR(card, calypsoATRPatterns) {
		return DetectionResult{
			Detected:   true,
			Confidence: confidenceATR,
			CardType:   "Transit card (Calypso)",
			Metadata:   map[string]string{"match": "atr"},
		}
	}

	return DetectionResult{}
}

var transportCatalog = []CardCommand{
	{
		ID: "select", Name: "Select ticketing application",
		Description: "SELECT the Calypso ticketing DF",
		Category:    "selection",
	},
	{
		ID: "read_environment", Name: "Read environment",
		Description: "READ RECORD 1 of the environment file (SFI 07)",
		Category:    "data",
	},
	{
		ID: "read_record", Name: "Read record",
		Description: "READ RECORD from an SFI-addressed ticketing file",
		Category:    "data",
		Params: []CommandParam{
			{ID: "sfi", Name: "Short file identifier", Type: ParamNumber, Required: true},
			{ID: "record", Name: "Record number", Type: ParamNumber, Required: true},
		},
	},
}

func (h *TransportHandler) Commands(meta map[string]string) []CardCommand {
	return transportCatalog
}

func (h *TransportHandler) Execute(client *iso7816.Client, commandID string, params Params) (*iso7816.ResponseAPDU, error) {
	cmd, err := findCommand(transportCatalog, commandID)
	if err != nil {
		return nil, err
	}
	if err := checkRequired(cmd, params); err != nil {
		return nil, err
	}

	switch commandID {
	case "select":
		return h.selectTicketing(client)

	case "read_environment":
		return client.Exchange(iso7816.ReadRecord(0x00, calypsoEnvironmentSFI, 1))

	case "read_record":
		sfi, err := params.Number("sfi")
		if err != nil {
			return nil, err
		}
		record, err := params.Number("record")
		if err != nil {
			return nil, err
		}
		return client.Exchange(iso7816.ReadRecord(0x00, byte(sfi), byte(record)))
	}

	return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, commandID)
}

func (h *TransportHandler) selectTicketing(client *iso7816.Client) (*iso7816.ResponseAPDU, error) {
	var last *iso7816.ResponseAPDU
	for _, aid := range transportAIDs {
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

func (h *TransportHandler) Interrogate(client *iso7816.Client) (*Report, error) {
	report := newReport("Transit card (Calypso)")

	resp, err := h.selectTicketing(client)
	if err != nil {
		return nil, err
	}
	if resp == nil || !resp.IsSuccess() {
		return report, nil
	}
	report.Applications = append(report.Applications, Application{AID: transportAIDs[0], Label: "Ticketing"})

	if env, err := client.Exchange(iso7816.ReadRecord(0x00, calypsoEnvironmentSFI, 1)); err == nil && env.IsSuccess() {
		report.Fields["environment"] = hexutil.Compact(env.Data)
	}

	// Contracts: read until the card runs out of records.
	for record := byte(1); record <= 4; record++ {
		resp, err := client.Exchange(iso7816.ReadRecord(0x00, calypsoContractsSFI, record))
		if err != nil || !resp.IsSuccess() {
			break
		}
		report.Fields[fmt.Sprintf("contract_%d", record)] = hexutil.Compact(resp.Data)
	}

	return report, nil
}
