package handler

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tomkp/card-spy-sub001/pkg/atr"
	"github.com/tomkp/card-spy-sub001/pkg/hexutil"
	"github.com/tomkp/card-spy-sub001/pkg/iso7816"
)

// SIMHandler drives GSM SIM cards (TS 11.11). There is no application to
// SELECT by AID; everything is file-id navigation under CLA A0, and the
// card signals "response ready" with SW1 9F instead of 61.
type SIMHandler struct{}

// NewSIM returns the GSM SIM handler.
func NewSIM() *SIMHandler { return &SIMHandler{} }

func (h *SIMHandler) Name() string { return "sim" }

const (
	gsmCla     byte   = 0xA0
	gsmMF      uint16 = 0x3F00
	gsmEFICCID uint16 = 0x2FE2
	gsmEFSPN   uint16 = 0x6F46 // under DF GSM 7F20
	gsmDFGSM   uint16 = 0x7F20
	iccidLength       = 10
)

var simATRPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^3B9F9[56]801FC[37]`), // common USIM profiles
	regexp.MustCompile(`^3B9F95801FC78031E073`),
}

// gsmSelected reports whether a GSM SELECT worked. TS 11.11 answers 9FXX
// (response data of XX bytes waiting) rather than 9000.
func gsmSelected(resp *iso7816.ResponseAPDU) bool {
	return resp.IsSuccess() || resp.Status.SW1() == 0x9F
}

func (h *SIMHandler) Detect(card *atr.ATR, client *iso7816.Client) DetectionResult {
	if client != nil {
		resp, err := client.Exchange(iso7816.SelectFile(gsmCla, gsmMF))
		if err == nil && gsmSelected(resp) {
			confidence := 90
			if matchATR(card, simATRPatterns) {
				confidence = confidenceAID
			}
			return DetectionResult{
				Detected:   true,
				Confidence: confidence,
				CardType:   "GSM SIM card",
				Metadata:   map[string]string{"mf": "3F00"},
			}
		}
	}

	if matchATR(card, simATRPatterns) {
		return DetectionResult{
			Detected:   true,
			Confidence: confidenceATR,
			CardType:   "GSM SIM card",
			Metadata:   map[string]string{"match": "atr"},
		}
	}

	return DetectionResult{}
}

var simCatalog = []CardCommand{
	{
		ID: "select_mf", Name: "Select master file",
		Description: "SELECT MF (3F00) under the GSM class",
		Category:    "selection",
	},
	{
		ID: "read_iccid", Name: "Read ICCID",
		Description: "Select EF_ICCID and read the card serial number",
		Category:    "data",
	},
	{
		ID: "select_file", Name: "Select file",
		Description: "SELECT an arbitrary file identifier",
		Category:    "selection",
		Params: []CommandParam{
			{ID: "file_id", Name: "File identifier", Type: ParamHex, Required: true},
		},
	},
}

func (h *SIMHandler) Commands(meta map[string]string) []CardCommand {
	return simCatalog
}

func (h *SIMHandler) Execute(client *iso7816.Client, commandID string, params Params) (*iso7816.ResponseAPDU, error) {
	cmd, err := findCommand(simCatalog, commandID)
	if err != nil {
		return nil, err
	}
	if err := checkRequired(cmd, params); err != nil {
		return nil, err
	}

	switch commandID {
	case "select_mf":
		return client.Exchange(iso7816.SelectFile(gsmCla, gsmMF))

	case "read_iccid":
		if _, err := h.selectICCID(client); err != nil {
			return nil, err
		}
		return client.Exchange(iso7816.ReadBinary(gsmCla, 0, iccidLength))

	case "select_file":
		fileID, err := params.Hex("file_id")
		if err != nil {
			return nil, err
		}
		if len(fileID) != 2 {
			return nil, fmt.Errorf("%w: file_id must be exactly 2 bytes", ErrInvalidParam)
		}
		return client.Exchange(iso7816.SelectFile(gsmCla, uint16(fileID[0])<<8|uint16(fileID[1])))
	}

	return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, commandID)
}

func (h *SIMHandler) selectICCID(client *iso7816.Client) (*iso7816.ResponseAPDU, error) {
	if resp, err := client.Exchange(iso7816.SelectFile(gsmCla, gsmMF)); err != nil {
		return nil, err
	} else if !gsmSelected(resp) {
		return resp, nil
	}
	return client.Exchange(iso7816.SelectFile(gsmCla, gsmEFICCID))
}

// DecodeICCID converts the EF_ICCID content to its digit string. The file
// stores the number as swapped-nibble BCD; a trailing F pads odd-length
// numbers.
func DecodeICCID(data []byte) string {
	var sb strings.Builder
	for _, b := range data {
		lo := b & 0x0F
		hi := b >> 4
		if lo <= 9 {
			sb.WriteByte('0' + lo)
		}
		if hi <= 9 {
			sb.WriteByte('0' + hi)
		}
	}
	return sb.String()
}

func (h *SIMHandler) Interrogate(client *iso7816.Client) (*Report, error) {
	report := newReport("GSM SIM card")

	resp, err := h.selectICCID(client)
	if err != nil {
		return nil, err
	}
	if gsmSelected(resp) {
		if read, err := client.Exchange(iso7816.ReadBinary(gsmCla, 0, iccidLength)); err == nil && read.IsSuccess() {
			report.Fields["iccid"] = DecodeICCID(read.Data)
		}
	}

	// Service provider name under DF GSM, when personalized.
	if resp, err := client.Exchange(iso7816.SelectFile(gsmCla, gsmDFGSM)); err == nil && gsmSelected(resp) {
		if resp, err := client.Exchange(iso7816.SelectFile(gsmCla, gsmEFSPN)); err == nil && gsmSelected(resp) {
			if read, err := client.Exchange(iso7816.ReadBinary(gsmCla, 0, 17)); err == nil && read.IsSuccess() && len(read.Data) > 1 {
				spn := strings.TrimRight(hexutil.MakeSafeASCII(read.Data[1:]), ".")
				if spn != "" {
					report.Fields["service_provider"] = spn
				}
			}
		}
	}

	return report, nil
}
