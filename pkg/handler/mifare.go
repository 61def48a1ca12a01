package handler

import (
	"fmt"
	"regexp"

	"github.com/tomkp/card-spy-sub001/pkg/atr"
	"github.com/tomkp/card-spy-sub001/pkg/hexutil"
	"github.com/tomkp/card-spy-sub001/pkg/iso7816"
)

// MifareHandler drives Mifare Classic storage cards through the PC/SC
// pseudo-APDU interface (CLA FF): these cards are not ISO 7816-4 at all,
// the reader firmware translates the commands. Detection is ATR-only,
// a SELECT would be meaningless.
type MifareHandler struct{}

// NewMifare returns the Mifare Classic handler.
func NewMifare() *MifareHandler { return &MifareHandler{} }

func (h *MifareHandler) Name() string { return "mifare" }

// PC/SC part 3 ATR layout for contactless storage cards: the RID
// A0 00 00 03 06 followed by a standard and card-name code.
var mifareATRPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^3B8F8001804F0CA000000306030001`), // Mifare Classic 1K
	regexp.MustCompile(`^3B8F8001804F0CA000000306030002`), // Mifare Classic 4K
	regexp.MustCompile(`^3B8F8001804F0CA000000306030003`), // Mifare Ultralight
}

var mifareNames = map[string]string{
	"0001": "Mifare Classic 1K",
	"0002": "Mifare Classic 4K",
	"0003": "Mifare Ultralight",
}

const pcscCla byte = 0xFF

func (h *MifareHandler) Detect(card *atr.ATR, client *iso7816.Client) DetectionResult {
	if !matchATR(card, mifareATRPatterns) {
		return DetectionResult{}
	}

	cardType := "Mifare"
	compact := hexutil.Compact(card.Raw)
	if len(compact) >= 30 {
		if name, ok := mifareNames[compact[26:30]]; ok {
			cardType = name
		}
	}

	return DetectionResult{
		Detected:   true,
		Confidence: 65, // PC/SC storage ATRs are prescriptive, better than a generic hint
		CardType:   cardType,
		Metadata:   map[string]string{"match": "atr"},
	}
}

var mifareCatalog = []CardCommand{
	{
		ID: "get_uid", Name: "Get UID",
		Description: "PC/SC GET DATA: read the card UID",
		Category:    "info",
	},
	{
		ID: "load_key", Name: "Load authentication key",
		Description: "Load a 6-byte Mifare key into reader slot 0",
		Category:    "security",
		Params: []CommandParam{
			{ID: "key", Name: "Key (6 bytes)", Type: ParamHex, Required: true},
		},
	},
	{
		ID: "authenticate", Name: "Authenticate block",
		Description: "Authenticate a block with the loaded key",
		Category:    "security",
		Params: []CommandParam{
			{ID: "block", Name: "Block number", Type: ParamNumber, Required: true},
			{ID: "key_type", Name: "Key type", Type: ParamSelect, Required: false, Default: "A", Options: []string{"A", "B"}},
		},
	},
	{
		ID: "read_block", Name: "Read block",
		Description: "Read 16 bytes from an authenticated block",
		Category:    "data",
		Params: []CommandParam{
			{ID: "block", Name: "Block number", Type: ParamNumber, Required: true},
		},
	},
}

func (h *MifareHandler) Commands(meta map[string]string) []CardCommand {
	return mifareCatalog
}

func (h *MifareHandler) Execute(client *iso7816.Client, commandID string, params Params) (*iso7816.ResponseAPDU, error) {
	cmd, err := findCommand(mifareCatalog, commandID)
	if err != nil {
		return nil, err
	}
	if err := checkRequired(cmd, params); err != nil {
		return nil, err
	}

	switch commandID {
	case "get_uid":
		return client.Exchange(iso7816.NewCommandAPDU(pcscCla, iso7816.InsGetUID, 0x00, 0x00, nil, iso7816.MaxShortLe))

	case "load_key":
		key, err := params.Hex("key")
		if err != nil {
			return nil, err
		}
		if len(key) != 6 {
			return nil, fmt.Errorf("%w: key must be exactly 6 bytes", ErrInvalidParam)
		}
		return client.Exchange(iso7816.NewCommandAPDU(pcscCla, iso7816.InsLoadKeys, 0x00, 0x00, key, 0))

	case "authenticate":
		block, err := params.Number("block")
		if err != nil {
			return nil, err
		}
		keyType := byte(0x60) // key A
		if params.String("key_type") == "B" {
			keyType = 0x61
		}
		// PC/SC part 3 general authenticate data object.
		data := []byte{0x01, 0x00, byte(block), keyType, 0x00}
		return client.Exchange(iso7816.NewCommandAPDU(pcscCla, 0x86, 0x00, 0x00, data, 0))

	case "read_block":
		block, err := params.Number("block")
		if err != nil {
			return nil, err
		}
		return client.Exchange(iso7816.NewCommandAPDU(pcscCla, iso7816.InsMifareRead, 0x00, byte(block), nil, 16))
	}

	return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, commandID)
}

func (h *MifareHandler) Interrogate(client *iso7816.Client) (*Report, error) {
	report := newReport("Mifare Classic")

	resp, err := client.Exchange(iso7816.NewCommandAPDU(pcscCla, iso7816.InsGetUID, 0x00, 0x00, nil, iso7816.MaxShortLe))
	if err != nil {
		return nil, err
	}
	if resp.IsSuccess() && len(resp.Data) > 0 {
		report.Fields["uid"] = hexutil.Compact(resp.Data)
	}

	return report, nil
}
