package iso7816

import "fmt"

// Standard instruction (INS) codes defined in ISO/IEC 7816-4, plus the EMV
// and GSM instructions the handlers issue. INS values with a '6X' or '9X'
// high nibble are reserved for status words and transport control and never
// appear here.
const (
	InsVerify              byte = 0x20
	InsChangeReferenceData byte = 0x24
	InsActivateFile        byte = 0x44
	InsExternalAuth        byte = 0x82
	InsGetChallenge        byte = 0x84
	InsGeneralAuth         byte = 0x87
	InsInternalAuth        byte = 0x88
	InsGetProcessingOpts   byte = 0xA8 // EMV, CLA 80
	InsSelect              byte = 0xA4
	InsReadBinary          byte = 0xB0
	InsReadRecord          byte = 0xB2
	InsGetResponse         byte = 0xC0
	InsGetData             byte = 0xCA
	InsGetDataBER          byte = 0xCB
	InsPutData             byte = 0xDA
	InsUpdateBinary        byte = 0xD6
	InsUpdateRecord        byte = 0xDC
	InsAppendRecord        byte = 0xE2
	InsGetUID              byte = 0xCA // PC/SC pseudo-APDU, CLA FF
	InsLoadKeys            byte = 0x82 // PC/SC pseudo-APDU, CLA FF
	InsMifareRead          byte = 0xB0 // PC/SC pseudo-APDU, CLA FF
)

var instructionNames = map[byte]string{
	0x04: "DEACTIVATE FILE",
	0x0C: "ERASE RECORD",
	0x0E: "ERASE BINARY",
	0x20: "VERIFY",
	0x22: "MANAGE SECURITY ENVIRONMENT",
	0x24: "CHANGE REFERENCE DATA",
	0x26: "DISABLE VERIFICATION REQUIREMENT",
	0x28: "ENABLE VERIFICATION REQUIREMENT",
	0x2A: "PERFORM SECURITY OPERATION",
	0x2C: "RESET RETRY COUNTER",
	0x44: "ACTIVATE FILE",
	0x46: "GENERATE ASYMMETRIC KEY PAIR",
	0x70: "MANAGE CHANNEL",
	0x82: "EXTERNAL AUTHENTICATE",
	0x84: "GET CHALLENGE",
	0x86: "GENERAL AUTHENTICATE",
	0x87: "GENERAL AUTHENTICATE (BER)",
	0x88: "INTERNAL AUTHENTICATE",
	0xA2: "SEARCH RECORD",
	0xA4: "SELECT",
	0xA8: "GET PROCESSING OPTIONS",
	0xB0: "READ BINARY",
	0xB2: "READ RECORD",
	0xC0: "GET RESPONSE",
	0xC2: "ENVELOPE",
	0xCA: "GET DATA",
	0xCB: "GET DATA (BER)",
	0xD0: "WRITE BINARY",
	0xD2: "WRITE RECORD",
	0xD6: "UPDATE BINARY",
	0xDA: "PUT DATA",
	0xDC: "UPDATE RECORD",
	0xE0: "CREATE FILE",
	0xE2: "APPEND RECORD",
	0xE4: "DELETE FILE",
	0xFE: "TERMINATE CARD USAGE",
}

// InstructionName returns the standard name for an instruction byte, or a
// hex fallback for instructions outside the table.
func InstructionName(ins byte) string {
	if name, ok := instructionNames[ins]; ok {
		return name
	}
	return fmt.Sprintf("INS 0x%02X", ins)
}
