package emv

import (
	"encoding/binary"
	"fmt"
)

// Cardholder Verification Method list (tag 8E) per EMV Book 3: two
// four-byte amount thresholds ("X" and "Y") followed by two-byte rules.
// The terminal walks the rules in order and applies the first one whose
// condition holds for the transaction at hand.

// CVMethod is the verification method of a rule (low six bits of the
// rule's first byte).
type CVMethod byte

const (
	CVMFail                     CVMethod = 0x00
	CVMPlaintextPIN             CVMethod = 0x01
	CVMEncipheredPINOnline      CVMethod = 0x02
	CVMPlaintextPINAndSignature CVMethod = 0x03
	CVMEncipheredPIN            CVMethod = 0x04
	CVMEncipheredPINAndSig      CVMethod = 0x05
	CVMSignature                CVMethod = 0x1E
	CVMNoCVM                    CVMethod = 0x1F
	CVMUnknown                  CVMethod = 0x3F
)

func (m CVMethod) String() string {
	switch m {
	case CVMFail:
		return "Fail CVM processing"
	case CVMPlaintextPIN:
		return "Plaintext PIN verified by ICC"
	case CVMEncipheredPINOnline:
		return "Enciphered PIN verified online"
	case CVMPlaintextPINAndSignature:
		return "Plaintext PIN verified by ICC and signature"
	case CVMEncipheredPIN:
		return "Enciphered PIN verified by ICC"
	case CVMEncipheredPINAndSig:
		return "Enciphered PIN verified by ICC and signature"
	case CVMSignature:
		return "Signature (paper)"
	case CVMNoCVM:
		return "No CVM required"
	default:
		return fmt.Sprintf("Unknown method (0x%02X)", byte(m))
	}
}

// CVCondition is the applicability condition of a rule (second byte).
type CVCondition byte

const (
	CondAlways              CVCondition = 0x00
	CondUnattendedCash      CVCondition = 0x01
	CondNotCashOrCashback   CVCondition = 0x02
	CondTerminalSupportsCVM CVCondition = 0x03
	CondManualCash          CVCondition = 0x04
	CondPurchaseCashback    CVCondition = 0x05
	CondAmountUnderX        CVCondition = 0x06
	CondAmountOverX         CVCondition = 0x07
	CondAmountUnderY        CVCondition = 0x08
	CondAmountOverY         CVCondition = 0x09
)

func (c CVCondition) String() string {
	switch c {
	case CondAlways:
		return "Always"
	case CondUnattendedCash:
		return "If unattended cash"
	case CondNotCashOrCashback:
		return "If not unattended cash, manual cash or cashback"
	case CondTerminalSupportsCVM:
		return "If terminal supports the CVM"
	case CondManualCash:
		return "If manual cash"
	case CondPurchaseCashback:
		return "If purchase with cashback"
	case CondAmountUnderX:
		return "If amount under X"
	case CondAmountOverX:
		return "If amount over X"
	case CondAmountUnderY:
		return "If amount under Y"
	case CondAmountOverY:
		return "If amount over Y"
	default:
		return fmt.Sprintf("Unknown condition (0x%02X)", byte(c))
	}
}

// CVMRule is one two-byte rule of the list.
type CVMRule struct {
	Method    CVMethod
	Condition CVCondition

	// TerminateOnFailure is set when bit 7 of the first byte is clear:
	// a failed attempt with this method aborts cardholder verification
	// instead of moving to the next rule.
	TerminateOnFailure bool

	Raw [2]byte
}

// CVMList is the decoded tag 8E value.
type CVMList struct {
	X     uint32 // first amount threshold, minor units
	Y     uint32 // second amount threshold, minor units
	Rules []CVMRule
}

// ParseCVMList decodes a CVM list value. Inputs shorter than the two
// mandatory thresholds yield an empty list (zero thresholds, no rules)
// rather than an error. A trailing odd byte is ignored.
func ParseCVMList(data []byte) CVMList {
	if len(data) < 8 {
		return CVMList{}
	}

	list := CVMList{
		X: binary.BigEndian.Uint32(data[0:4]),
		Y: binary.BigEndian.Uint32(data[4:8]),
	}

	for i := 8; i+1 < len(data); i += 2 {
		b1, b2 := data[i], data[i+1]
		method := CVMethod(b1 & 0x3F)
		switch method {
		case CVMFail, CVMPlaintextPIN, CVMEncipheredPINOnline,
			CVMPlaintextPINAndSignature, CVMEncipheredPIN,
			CVMEncipheredPINAndSig, CVMSignature, CVMNoCVM:
			// known method, keep as-is
		default:
			method = CVMUnknown
		}

		list.Rules = append(list.Rules, CVMRule{
			Method:             method,
			Condition:          CVCondition(b2),
			TerminateOnFailure: b1&0x40 == 0,
			Raw:                [2]byte{b1, b2},
		})
	}

	return list
}

// CVMContext carries the transaction facts a condition can depend on.
// Amount-based conditions evaluate false unless HasAmount is set.
type CVMContext struct {
	Amount              uint64
	HasAmount           bool
	UnattendedCash      bool
	ManualCash          bool
	PurchaseCashback    bool
	TerminalSupportsCVM bool
}

// Evaluate scans the rules in list order and returns the first whose
// condition holds for the context, or nil when none applies.
func (l CVMList) Evaluate(ctx CVMContext) *CVMRule {
	for i := range l.Rules {
		if l.conditionHolds(l.Rules[i].Condition, ctx) {
			return &l.Rules[i]
		}
	}
	return nil
}

func (l CVMList) conditionHolds(cond CVCondition, ctx CVMContext) bool {
	switch cond {
	case CondAlways:
		return true
	case CondUnattendedCash:
		return ctx.UnattendedCash
	case CondNotCashOrCashback:
		return !ctx.UnattendedCash && !ctx.ManualCash && !ctx.PurchaseCashback
	case CondTerminalSupportsCVM:
		return ctx.TerminalSupportsCVM
	case CondManualCash:
		return ctx.ManualCash
	case CondPurchaseCashback:
		return ctx.PurchaseCashback
	case CondAmountUnderX:
		return ctx.HasAmount && ctx.Amount < uint64(l.X)
	case CondAmountOverX:
		return ctx.HasAmount && ctx.Amount > uint64(l.X)
	case CondAmountUnderY:
		return ctx.HasAmount && ctx.Amount < uint64(l.Y)
	case CondAmountOverY:
		return ctx.HasAmount && ctx.Amount > uint64(l.Y)
	default:
		return false
	}
}
