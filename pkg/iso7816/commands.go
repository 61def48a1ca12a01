package iso7816

// Builders for the interindustry commands every handler issues. P1/P2
// construction follows ISO 7816-4; EMV-specific commands (GPO, PSE
// selection) live in pkg/emv.

// SELECT P1 values: how the target is identified.
const (
	SelectByFileID byte = 0x00
	SelectByDFName byte = 0x04 // select by AID
	SelectByPath   byte = 0x08
)

// SELECT P2 values: what the card should return.
const (
	SelectReturnFCI    byte = 0x00
	SelectReturnFCP    byte = 0x04
	SelectReturnNoData byte = 0x0C
)

// SelectByAID builds a SELECT by DF name (application identifier).
//
// T=0 compatibility: a command cannot carry both Lc and Le, so no Le is
// requested here; the card answers 61XX and the Client fetches the FCI
// with GET RESPONSE.
func SelectByAID(cla byte, aid []byte) *CommandAPDU {
	return NewCommandAPDU(cla, InsSelect, SelectByDFName, SelectReturnFCI, aid, 0)
}

// SelectFile builds a SELECT by two-byte file identifier.
func SelectFile(cla byte, fileID uint16) *CommandAPDU {
	data := []byte{byte(fileID >> 8), byte(fileID)}
	return NewCommandAPDU(cla, InsSelect, SelectByFileID, SelectReturnFCI, data, 0)
}

// ReadRecord builds a READ RECORD for one record of an SFI-addressed file.
// P2 per ISO 7816-4 table 49: SFI in bits 8-4, mode 100 (P1 is a record
// number) in bits 3-1.
func ReadRecord(cla, sfi, recordNumber byte) *CommandAPDU {
	p2 := (sfi << 3) | 0x04
	return NewCommandAPDU(cla, InsReadRecord, recordNumber, p2, nil, MaxShortLe)
}

// ReadBinary builds a READ BINARY at the given offset in the current EF.
func ReadBinary(cla byte, offset uint16, length int) *CommandAPDU {
	return NewCommandAPDU(cla, InsReadBinary, byte(offset>>8), byte(offset), nil, length)
}

// GetResponse builds the GET RESPONSE continuation command.
func GetResponse(cla byte, le int) *CommandAPDU {
	return NewCommandAPDU(cla, InsGetResponse, 0x00, 0x00, nil, le)
}

// GetData builds a GET DATA for a one- or two-byte tag carried in P1-P2.
func GetData(cla byte, tag uint16) *CommandAPDU {
	return NewCommandAPDU(cla, InsGetData, byte(tag>>8), byte(tag), nil, MaxShortLe)
}
