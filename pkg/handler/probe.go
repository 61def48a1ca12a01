package handler

import (
	"regexp"

	"github.com/tomkp/card-spy-sub001/pkg/atr"
	"github.com/tomkp/card-spy-sub001/pkg/emv"
	"github.com/tomkp/card-spy-sub001/pkg/hexutil"
	"github.com/tomkp/card-spy-sub001/pkg/iso7816"
)

// Detection probes shared by the handlers. The pattern is always the
// same: walk a short ordered list of candidate AIDs, accept the first
// SELECT the card answers with 9000, and fall back to ATR byte patterns
// when selection is not possible.

// selectAID issues a SELECT by DF name and returns the assembled
// response. A transport failure is an error; a card rejection is a
// response with a non-success status.
func selectAID(client *iso7816.Client, aid []byte) (*iso7816.ResponseAPDU, error) {
	return client.Exchange(iso7816.SelectByAID(0x00, aid))
}

// probeAIDs tries each candidate in order and returns the index and
// response of the first successful selection, or (-1, nil) when the card
// accepts none of them or no client is available.
func probeAIDs(client *iso7816.Client, candidates [][]byte) (int, *iso7816.ResponseAPDU) {
	if client == nil {
		return -1, nil
	}
	for i, aid := range candidates {
		resp, err := selectAID(client, aid)
		if err != nil {
			return -1, nil
		}
		if resp.IsSuccess() {
			return i, resp
		}
	}
	return -1, nil
}

// matchATR reports whether the card's raw ATR matches any of the given
// patterns. Patterns are applied to the compact upper-case hex form, the
// same convention the ATR hint table uses.
func matchATR(card *atr.ATR, patterns []*regexp.Regexp) bool {
	if card == nil || len(card.Raw) == 0 {
		return false
	}
	compact := hexutil.Compact(card.Raw)
	for _, p := range patterns {
		if p.MatchString(compact) {
			return true
		}
	}
	return false
}

// fciLabel extracts a display label from SELECT response data, trying the
// EMV application label first and falling back to the DF name's printable
// form. Best effort: unparseable data yields an empty string.
func fciLabel(data []byte) string {
	fci, err := emv.ParseFCI(data)
	if err != nil {
		return ""
	}
	if len(fci.ProprietaryTemplate.ApplicationLabel) > 0 {
		return string(fci.ProprietaryTemplate.ApplicationLabel)
	}
	if len(fci.DFName) > 0 {
		return hexutil.MakeSafeASCII(fci.DFName)
	}
	return ""
}
