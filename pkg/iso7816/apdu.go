// Package iso7816 implements the APDU layer used to talk to smart cards
// according to ISO/IEC 7816-3 and 7816-4: command and response structures,
// status word interpretation, and a Client that drives a raw transmit
// channel while handling the T=0 transport quirks (GET RESPONSE on 61XX,
// Le correction on 6CXX).
package iso7816

import (
	"bytes"
	"fmt"

	"github.com/tomkp/card-spy-sub001/pkg/hexutil"
)

// ENCODING CASES (ISO 7816-3):
// - Case 1: No Data, No Response (Header only).
// - Case 2: No Data, Response Expected (Header + Le).
// - Case 3: Data Present, No Response (Header + Lc + Data).
// - Case 4: Data Present, Response Expected (Header + Lc + Data + Le).
//
// LENGTH MODES:
// - Short: Lc/Le on 1 byte (max 255/256, 0x00 encodes 256 for Le).
// - Extended: Lc/Le on multiple bytes (max 65535/65536), triggered when
//   either field exceeds the short range.

// APDU limits according to ISO 7816-3.
const (
	// MaxShortLc is the maximum data length (Nc) encodable in short mode.
	MaxShortLc = 255

	// MaxShortLe is the maximum expected response length in short mode.
	// In short mode, 0x00 encodes 256.
	MaxShortLe = 256

	// MaxExtendedLc is the limit for Lc in extended mode.
	MaxExtendedLc = 65535

	// MaxExtendedLe is the maximum Ne encodable in extended mode.
	// In extended mode, 0x0000 encodes 65536.
	MaxExtendedLe = 65536
)

// CommandAPDU represents a command sent to the card.
//
// Cla and Ins are kept as raw bytes: the handler catalogs are driven by
// byte constants and proprietary classes (0x80, 0xA0, 0xFF) are as common
// here as the interindustry one.
type CommandAPDU struct {
	Cla  byte
	Ins  byte
	P1   byte
	P2   byte
	Data []byte
	Ne   int // Expected response length (0 means none)
}

// NewCommandAPDU creates a basic command.
func NewCommandAPDU(cla, ins, p1, p2 byte, data []byte, ne int) *CommandAPDU {
	return &CommandAPDU{Cla: cla, Ins: ins, P1: p1, P2: p2, Data: data, Ne: ne}
}

// Bytes encodes the command into its wire representation, selecting short
// or extended encoding from the lengths involved.
func (c *CommandAPDU) Bytes() ([]byte, error) {
	nc := len(c.Data)
	ne := c.Ne

	if nc > MaxExtendedLc {
		return nil, fmt.Errorf("data field too long: %d bytes", nc)
	}
	if ne > MaxExtendedLe {
		return nil, fmt.Errorf("expected length too large: %d", ne)
	}

	buf := new(bytes.Buffer)
	buf.WriteByte(c.Cla)
	buf.WriteByte(c.Ins)
	buf.WriteByte(c.P1)
	buf.WriteByte(c.P2)

	isExtended := nc > MaxShortLc || ne > MaxShortLe

	if nc > 0 {
		if !isExtended {
			buf.WriteByte(byte(nc))
		} else {
			// Extended Lc: 00 marker + 2 length bytes.
			buf.WriteByte(0x00)
			buf.WriteByte(byte(nc >> 8))
			buf.WriteByte(byte(nc))
		}
		buf.Write(c.Data)
	}

	if ne > 0 {
		if !isExtended {
			if ne == MaxShortLe {
				buf.WriteByte(0x00) // 0x00 encodes 256
			} else {
				buf.WriteByte(byte(ne))
			}
		} else {
			// Case 2 extended needs the leading 00 marker that Lc would
			// otherwise have provided.
			if nc == 0 {
				buf.WriteByte(0x00)
			}
			if ne == MaxExtendedLe {
				buf.WriteByte(0x00)
				buf.WriteByte(0x00)
			} else {
				buf.WriteByte(byte(ne >> 8))
				buf.WriteByte(byte(ne))
			}
		}
	}

	return buf.Bytes(), nil
}

// String returns a readable representation of the command meta-data.
func (c *CommandAPDU) String() string {
	return fmt.Sprintf("%s | CLA: %02X, P1: %02X, P2: %02X | Lc: %d | Le: %d",
		InstructionName(c.Ins), c.Cla, c.P1, c.P2, len(c.Data), c.Ne)
}

// ResponseAPDU represents the reply from the card: data bytes with the
// trailing status word already stripped off.
type ResponseAPDU struct {
	Data   []byte
	Status StatusWord
}

// ParseResponseAPDU parses raw bytes received from the card.
// The input must contain at least the two status bytes.
func ParseResponseAPDU(raw []byte) (*ResponseAPDU, error) {
	if len(raw) < 2 {
		return nil, fmt.Errorf("response too short: length %d", len(raw))
	}

	swIndex := len(raw) - 2
	return &ResponseAPDU{
		Data:   raw[:swIndex],
		Status: NewStatusWord(raw[swIndex], raw[swIndex+1]),
	}, nil
}

// IsSuccess reports whether the response status classifies as success.
func (r *ResponseAPDU) IsSuccess() bool {
	return r.Status.IsSuccess()
}

// Hex returns the data field as spaced upper-case hex.
func (r *ResponseAPDU) Hex() string {
	return hexutil.Format(r.Data)
}

// String returns a readable representation of the response.
func (r *ResponseAPDU) String() string {
	return fmt.Sprintf("Data (%d bytes) | Status: %s", len(r.Data), r.Status)
}
