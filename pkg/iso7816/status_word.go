package iso7816

import (
	"fmt"

	"github.com/tomkp/card-spy-sub001/pkg/bits"
)

// Status Word interpretation according to ISO/IEC 7816-4.
//
// Every response ends with two status bytes SW1-SW2. Most values are
// static (0x9000 = success) but a few ranges are dynamic and carry
// contextual data:
//
// 1. '61XX': process completed, XX more response bytes are available and
//    must be fetched with GET RESPONSE.
// 2. '6CXX': the expected length (Le) was wrong, XX is the correct value.
// 3. '63CX': warning with a counter in the low nibble (e.g. remaining PIN
//    retries).
//
// The meaning strings returned here are a contract: the retry logic in
// Client and the handler catalogs key off the classification, and callers
// display the meanings verbatim.

// Classification buckets a status word into the three outcomes callers
// care about when deciding whether to keep going.
type Classification int

const (
	StatusSuccess Classification = iota
	StatusWarning
	StatusError
)

func (c Classification) String() string {
	switch c {
	case StatusSuccess:
		return "success"
	case StatusWarning:
		return "warning"
	default:
		return "error"
	}
}

// StatusWord represents the two-byte status response (SW1-SW2) returned by
// the card.
type StatusWord uint16

// NewStatusWord creates a StatusWord instance from two separate bytes.
func NewStatusWord(sw1, sw2 byte) StatusWord {
	return StatusWord(uint16(sw1)<<8 | uint16(sw2))
}

// SW1 returns the first byte (high byte) of the status word.
func (sw StatusWord) SW1() byte {
	return byte(sw >> 8)
}

// SW2 returns the second byte (low byte) of the status word.
func (sw StatusWord) SW2() byte {
	return byte(sw)
}

// Hex returns the four-digit upper-case hex form, e.g. "9000".
func (sw StatusWord) Hex() string {
	return fmt.Sprintf("%04X", uint16(sw))
}

// IsSuccess returns true if the command was processed successfully (9000)
// or if response data is waiting to be fetched (61XX).
func (sw StatusWord) IsSuccess() bool {
	return sw.Classification() == StatusSuccess
}

// Classification returns the success/warning/error bucket for the word.
func (sw StatusWord) Classification() Classification {
	_, c := Info(sw.SW1(), sw.SW2())
	return c
}

// Meaning returns the human-readable interpretation of the word.
func (sw StatusWord) Meaning() string {
	m, _ := Info(sw.SW1(), sw.SW2())
	return m
}

// String combines the hex form and the meaning for traces and logs.
func (sw StatusWord) String() string {
	return fmt.Sprintf("[%s] %s", sw.Hex(), sw.Meaning())
}

// Info maps a raw SW1/SW2 pair to its meaning and classification.
func Info(sw1, sw2 byte) (string, Classification) {
	switch sw1 {
	case 0x90:
		if sw2 == 0x00 {
			return "Success", StatusSuccess
		}
	case 0x61:
		return fmt.Sprintf("More data available, %d bytes", sw2), StatusSuccess
	case 0x62:
		switch sw2 {
		case 0x81:
			return "Warning: part of returned data may be corrupted", StatusWarning
		case 0x82:
			return "Warning: end of file reached before reading Le bytes", StatusWarning
		case 0x83:
			return "Warning: selected file deactivated", StatusWarning
		case 0x84:
			return "Warning: FCI not formatted according to ISO 7816-4", StatusWarning
		}
		return "Warning: state of non-volatile memory unchanged", StatusWarning
	case 0x63:
		if bits.HighNibble(sw2) == 0x0C {
			return fmt.Sprintf("Counter value %d", bits.LowNibble(sw2)), StatusWarning
		}
		return "Warning: state of non-volatile memory changed", StatusWarning
	case 0x64:
		return "Execution error: state of non-volatile memory unchanged", StatusError
	case 0x65:
		return "Execution error: state of non-volatile memory changed", StatusError
	case 0x67:
		if sw2 == 0x00 {
			return "Wrong length", StatusError
		}
	case 0x68:
		switch sw2 {
		case 0x81:
			return "Logical channel not supported", StatusError
		case 0x82:
			return "Secure messaging not supported", StatusError
		case 0x83:
			return "Last command of the chain expected", StatusError
		case 0x84:
			return "Command chaining not supported", StatusError
		}
		return "Functions in CLA not supported", StatusError
	case 0x69:
		switch sw2 {
		case 0x81:
			return "Command incompatible with file structure", StatusError
		case 0x82:
			return "Security status not satisfied", StatusError
		case 0x83:
			return "Authentication method blocked", StatusError
		case 0x84:
			return "Referenced data not usable", StatusError
		case 0x85:
			return "Conditions of use not satisfied", StatusError
		case 0x86:
			return "Command not allowed (no current EF)", StatusError
		case 0x87:
			return "Expected secure messaging data objects missing", StatusError
		case 0x88:
			return "Incorrect secure messaging data objects", StatusError
		}
		return "Command not allowed", StatusError
	case 0x6A:
		switch sw2 {
		case 0x80:
			return "Incorrect parameters in the data field", StatusError
		case 0x81:
			return "Function not supported", StatusError
		case 0x82:
			return "File not found", StatusError
		case 0x83:
			return "Record not found", StatusError
		case 0x84:
			return "Not enough memory space in the file", StatusError
		case 0x85:
			return "Lc inconsistent with TLV structure", StatusError
		case 0x86:
			return "Incorrect parameters P1-P2", StatusError
		case 0x87:
			return "Lc inconsistent with P1-P2", StatusError
		case 0x88:
			return "Referenced data not found", StatusError
		case 0x89:
			return "File already exists", StatusError
		}
		return "Wrong parameters", StatusError
	case 0x6B:
		if sw2 == 0x00 {
			return "Wrong parameters P1-P2", StatusError
		}
	case 0x6C:
		return fmt.Sprintf("Wrong Le length (use %d)", sw2), StatusError
	case 0x6D:
		if sw2 == 0x00 {
			return "Instruction not supported", StatusError
		}
	case 0x6E:
		if sw2 == 0x00 {
			return "Class not supported", StatusError
		}
	case 0x6F:
		if sw2 == 0x00 {
			return "Unknown error", StatusError
		}
	}

	return fmt.Sprintf("Unknown status: %02X%02X", sw1, sw2), StatusError
}

// Status word values the rest of the module keys off directly.
const (
	SwNoError           StatusWord = 0x9000
	SwWrongLength       StatusWord = 0x6700
	SwSecurityNotSat    StatusWord = 0x6982
	SwAuthMethodBlocked StatusWord = 0x6983
	SwConditionsNotSat  StatusWord = 0x6985
	SwFunctionNotSupp   StatusWord = 0x6A81
	SwFileNotFound      StatusWord = 0x6A82
	SwRecordNotFound    StatusWord = 0x6A83
	SwIncorrectP1P2     StatusWord = 0x6A86
	SwRefDataNotFound   StatusWord = 0x6A88
	SwWrongP1P2         StatusWord = 0x6B00
	SwInsNotSupported   StatusWord = 0x6D00
	SwClassNotSupported StatusWord = 0x6E00
	SwUnknownError      StatusWord = 0x6F00
)
