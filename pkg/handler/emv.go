package handler

import (
	"fmt"
	"time"

	"github.com/tomkp/card-spy-sub001/pkg/atr"
	"github.com/tomkp/card-spy-sub001/pkg/emv"
	"github.com/tomkp/card-spy-sub001/pkg/hexutil"
	"github.com/tomkp/card-spy-sub001/pkg/iso7816"
	"github.com/tomkp/card-spy-sub001/pkg/tlv"
)

// EMVHandler drives payment cards: PSE/PPSE directory discovery,
// application selection, GET PROCESSING OPTIONS and AFL-driven record
// reading.
type EMVHandler struct{}

// NewEMV returns the payment card handler.
func NewEMV() *EMVHandler { return &EMVHandler{} }

func (h *EMVHandler) Name() string { return "emv" }

// Brand AIDs tried when the card has no payment directory. Order matters:
// the most widely deployed schemes come first.
var emvBrandAIDs = [][]byte{
	{0xA0, 0x00, 0x00, 0x00, 0x03, 0x10, 0x10},             // Visa credit/debit
	{0xA0, 0x00, 0x00, 0x00, 0x04, 0x10, 0x10},             // Mastercard
	{0xA0, 0x00, 0x00, 0x00, 0x04, 0x30, 0x60},             // Maestro
	{0xA0, 0x00, 0x00, 0x00, 0x25, 0x01},                   // American Express
	{0xA0, 0x00, 0x00, 0x00, 0x65, 0x10, 0x10},             // JCB
	{0xA0, 0x00, 0x00, 0x01, 0x52, 0x30, 0x10},             // Discover
	{0xA0, 0x00, 0x00, 0x03, 0x33, 0x01, 0x01, 0x01},       // UnionPay debit
	{0xA0, 0x00, 0x00, 0x00, 0x42, 0x10, 0x10},             // Cartes Bancaires
}

func (h *EMVHandler) Detect(card *atr.ATR, client *iso7816.Client) DetectionResult {
	if client == nil {
		// Payment applets have no reliable ATR signature; selection is
		// the only trustworthy probe.
		return DetectionResult{}
	}

	// Directory first: a PSE or PPSE hit is the cleanest possible signal.
	for _, cmd := range []*iso7816.CommandAPDU{emv.SelectPPSE(), emv.SelectPSE()} {
		resp, err := client.Exchange(cmd)
		if err != nil {
			return DetectionResult{}
		}
		if resp.IsSuccess() {
			return DetectionResult{
				Detected:   true,
				Confidence: confidenceAID,
				CardType:   "EMV payment card",
				Metadata:   map[string]string{"directory": string(cmd.Data)},
			}
		}
	}

	if i, resp := probeAIDs(client, emvBrandAIDs); i >= 0 {
		meta := map[string]string{"aid": hexutil.Compact(emvBrandAIDs[i])}
		if label := fciLabel(resp.Data); label != "" {
			meta["label"] = label
		}
		return DetectionResult{
			Detected:   true,
			Confidence: confidenceAID,
			CardType:   "EMV payment card",
			Metadata:   meta,
		}
	}

	return DetectionResult{}
}

var emvCatalog = []CardCommand{
	{
		ID: "select_application", Name: "Select application",
		Description: "SELECT a payment application by AID",
		Category:    "selection",
		Params: []CommandParam{
			{ID: "aid", Name: "Application ID", Type: ParamHex, Required: true},
		},
	},
	{
		ID: "get_processing_options", Name: "Get processing options",
		Description: "Start a transaction and retrieve AIP and AFL",
		Category:    "transaction",
		Params: []CommandParam{
			{ID: "pdol", Name: "PDOL data", Type: ParamHex, Required: false},
		},
	},
	{
		ID: "read_record", Name: "Read record",
		Description: "READ RECORD from an SFI-addressed file",
		Category:    "data",
		Params: []CommandParam{
			{ID: "sfi", Name: "Short file identifier", Type: ParamNumber, Required: true},
			{ID: "record", Name: "Record number", Type: ParamNumber, Required: true},
		},
	},
	{
		ID: "get_data", Name: "Get data",
		Description: "GET DATA for a primitive tag (PIN try counter, ATC, ...)",
		Category:    "data",
		Params: []CommandParam{
			{ID: "tag", Name: "Tag", Type: ParamHex, Required: true},
		},
	},
}

func (h *EMVHandler) Commands(meta map[string]string) []CardCommand {
	return emvCatalog
}

func (h *EMVHandler) Execute(client *iso7816.Client, commandID string, params Params) (*iso7816.ResponseAPDU, error) {
	cmd, err := findCommand(emvCatalog, commandID)
	if err != nil {
		return nil, err
	}
	if err := checkRequired(cmd, params); err != nil {
		return nil, err
	}

	switch commandID {
	case "select_application":
		aid, err := params.Hex("aid")
		if err != nil {
			return nil, err
		}
		return selectAID(client, aid)

	case "get_processing_options":
		var pdolData []byte
		if params.String("pdol") != "" {
			pdolData, err = params.Hex("pdol")
			if err != nil {
				return nil, err
			}
		}
		return client.Exchange(emv.GPO(pdolData))

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

	case "get_data":
		tag, err := params.Hex("tag")
		if err != nil {
			return nil, err
		}
		if len(tag) != 2 {
			return nil, fmt.Errorf("%w: tag must be exactly 2 bytes", ErrInvalidParam)
		}
		return client.Exchange(iso7816.GetData(0x80, uint16(tag[0])<<8|uint16(tag[1])))
	}

	return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, commandID)
}

// Interrogate walks the payment structure: directory discovery, then for
// the first application a GPO and the AFL-listed records.
func (h *EMVHandler) Interrogate(client *iso7816.Client) (*Report, error) {
	report := newReport("EMV payment card")

	apps, err := h.discoverApplications(client)
	if err != nil {
		return nil, err
	}
	report.Applications = apps
	if len(apps) == 0 {
		return report, nil
	}

	// Deep walk of the highest-priority application.
	resp, err := selectAID(client, apps[0].AID)
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return report, nil
	}

	if fci, err := emv.ParseFCI(resp.Data); err == nil {
		if len(fci.ProprietaryTemplate.LanguagePreference) > 0 {
			report.Fields["language"] = string(fci.ProprietaryTemplate.LanguagePreference)
		}
		h.walkTransaction(client, fci, report)
	}

	return report, nil
}

// discoverApplications lists the card's applications via PPSE/PSE, or by
// probing brand AIDs when the card exposes no directory.
func (h *EMVHandler) discoverApplications(client *iso7816.Client) ([]Application, error) {
	// Contactless directory: application entries right in the FCI.
	resp, err := client.Exchange(emv.SelectPPSE())
	if err != nil {
		return nil, err
	}
	if resp.IsSuccess() {
		if apps := applicationsFromNodes(tlv.Decode(resp.Data)); len(apps) > 0 {
			return apps, nil
		}
	}

	// Contact directory: records under the SFI announced in the FCI.
	resp, err = client.Exchange(emv.SelectPSE())
	if err != nil {
		return nil, err
	}
	if resp.IsSuccess() {
		if apps, err := h.readDirectoryRecords(client, resp.Data); err == nil && len(apps) > 0 {
			return apps, nil
		}
	}

	// No directory: fall back to the brand list.
	var apps []Application
	for _, aid := range emvBrandAIDs {
		resp, err := selectAID(client, aid)
		if err != nil {
			return nil, err
		}
		if resp.IsSuccess() {
			apps = append(apps, Application{AID: aid, Label: fciLabel(resp.Data)})
		}
	}
	return apps, nil
}

func (h *EMVHandler) readDirectoryRecords(client *iso7816.Client, fciData []byte) ([]Application, error) {
	fci, err := emv.ParseFCI(fciData)
	if err != nil {
		return nil, err
	}
	if len(fci.ProprietaryTemplate.SFI) == 0 {
		return nil, fmt.Errorf("payment directory FCI carries no SFI")
	}
	sfi := fci.ProprietaryTemplate.SFI[0]

	var apps []Application
	for record := byte(1); record <= 16; record++ {
		resp, err := client.Exchange(iso7816.ReadRecord(0x00, sfi, record))
		if err != nil {
			return nil, err
		}
		if !resp.IsSuccess() {
			break // first missing record ends the directory
		}

		dir, err := emv.ParseDirectoryRecord(resp.Data)
		if err != nil {
			continue
		}
		for _, app := range dir.Applications {
			apps = append(apps, Application{AID: app.AID, Label: string(app.ApplicationLabel)})
		}
	}
	return apps, nil
}

// walkTransaction runs GPO with default PDOL values and reads every
// record the AFL lists, harvesting cardholder data tags into the report.
func (h *EMVHandler) walkTransaction(client *iso7816.Client, fci *emv.FCI, report *Report) {
	opts := emv.TransactionOptions{Date: time.Now()}
	values := emv.DefaultDOLValues(opts)

	var pdolData []byte
	if len(fci.ProprietaryTemplate.PDOL) > 0 {
		pdolData = emv.BuildDOLData(emv.ParseDOL(fci.ProprietaryTemplate.PDOL), values)
	}

	resp, err := client.Exchange(emv.GPO(pdolData))
	if err != nil || !resp.IsSuccess() {
		return
	}

	afl := extractAFL(resp.Data)
	for _, entry := range emv.ParseAFL(afl) {
		for record := entry.FirstRecord; record <= entry.LastRecord; record++ {
			resp, err := client.Exchange(iso7816.ReadRecord(0x00, entry.SFI, record))
			if err != nil || !resp.IsSuccess() {
				continue
			}
			harvestRecordFields(resp.Data, report)
		}
	}
}

// extractAFL pulls the AFL out of a GPO response, handling both response
// formats: template 77 carries tag 94; template 80 is AIP (2 bytes)
// followed directly by the AFL.
func extractAFL(data []byte) []byte {
	nodes := tlv.Decode(data)
	if len(nodes) == 0 {
		return nil
	}
	switch nodes[0].Tag {
	case 0x77:
		if afl := tlv.FindFirst(nodes, 0x94); afl != nil {
			return afl.Value
		}
	case 0x80:
		if len(nodes[0].Value) > 2 {
			return nodes[0].Value[2:]
		}
	}
	return nil
}

// Cardholder data surfaced in the interrogation report. Track 2 and PAN
// stay out on purpose.
var emvReportTags = map[uint32]string{
	0x5F20: "cardholder_name",
	0x5F24: "expiry_date",
	0x5F28: "issuer_country",
	0x9F12: "preferred_name",
	0x5F34: "pan_sequence",
}

func harvestRecordFields(data []byte, report *Report) {
	nodes := tlv.Decode(data)
	for tag, field := range emvReportTags {
		if _, ok := report.Fields[field]; ok {
			continue
		}
		if node := tlv.FindFirst(nodes, tag); node != nil {
			if tag == 0x5F20 || tag == 0x9F12 {
				report.Fields[field] = hexutil.MakeSafeASCII(node.Value)
			} else {
				report.Fields[field] = hexutil.Compact(node.Value)
			}
		}
	}
}

// applicationsFromNodes pulls Application Template (61) entries out of a
// decoded FCI tree, wherever they sit.
func applicationsFromNodes(nodes []tlv.Node) []Application {
	var apps []Application
	for _, tmpl := range tlv.FindAll(nodes, 0x61) {
		aid := tlv.FindFirst(tmpl.Children, 0x4F)
		if aid == nil {
			continue
		}
		app := Application{AID: aid.Value}
		if label := tlv.FindFirst(tmpl.Children, 0x50); label != nil {
			app.Label = string(label.Value)
		}
		apps = append(apps, app)
	}
	return apps
}
