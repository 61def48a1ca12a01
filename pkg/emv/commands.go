package emv

import (
	"github.com/tomkp/card-spy-sub001/pkg/iso7816"
)

// Payment System Environment names used for directory discovery: the
// contact PSE and its contactless sibling (PPSE).
var (
	PSE  = []byte("1PAY.SYS.DDF01")
	PPSE = []byte("2PAY.SYS.DDF01")
)

// SelectPSE builds the SELECT for the contact Payment System Environment.
func SelectPSE() *iso7816.CommandAPDU {
	return iso7816.SelectByAID(0x00, PSE)
}

// SelectPPSE builds the SELECT for the contactless directory.
func SelectPPSE() *iso7816.CommandAPDU {
	return iso7816.SelectByAID(0x00, PPSE)
}

// GPO builds a GET PROCESSING OPTIONS command. The PDOL response data is
// wrapped in a Command Template (tag 83); an empty template is sent when
// the application declared no PDOL.
func GPO(pdolData []byte) *iso7816.CommandAPDU {
	data := append([]byte{0x83, byte(len(pdolData))}, pdolData...)
	return iso7816.NewCommandAPDU(0x80, iso7816.InsGetProcessingOpts, 0x00, 0x00, data, 0)
}
