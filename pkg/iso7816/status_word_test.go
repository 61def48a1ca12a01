package iso7816

import (
	"testing"
)

func TestInfo_Table(t *testing.T) {
	tests := []struct {
		sw1, sw2 byte
		meaning  string
		class    Classification
	}{
		{0x90, 0x00, "Success", StatusSuccess},
		{0x61, 0x10, "More data available, 16 bytes", StatusSuccess},
		{0x62, 0x00, "Warning: state of non-volatile memory unchanged", StatusWarning},
		{0x62, 0x83, "Warning: selected file deactivated", StatusWarning},
		{0x63, 0xC3, "Counter value 3", StatusWarning},
		{0x63, 0xC0, "Counter value 0", StatusWarning},
		{0x63, 0x00, "Warning: state of non-volatile memory changed", StatusWarning},
		{0x64, 0x00, "Execution error: state of non-volatile memory unchanged", StatusError},
		{0x65, 0x81, "Execution error: state of non-volatile memory changed", StatusError},
		{0x67, 0x00, "Wrong length", StatusError},
		{0x68, 0x00, "Functions in CLA not supported", StatusError},
		{0x68, 0x82, "Secure messaging not supported", StatusError},
		{0x69, 0x82, "Security status not satisfied", StatusError},
		{0x69, 0x83, "Authentication method blocked", StatusError},
		{0x69, 0x85, "Conditions of use not satisfied", StatusError},
		{0x69, 0x00, "Command not allowed", StatusError},
		{0x6A, 0x80, "Incorrect parameters in the data field", StatusError},
		{0x6A, 0x81, "Function not supported", StatusError},
		{0x6A, 0x82, "File not found", StatusError},
		{0x6A, 0x83, "Record not found", StatusError},
		{0x6A, 0x85, "Lc inconsistent with TLV structure", StatusError},
		{0x6A, 0x86, "Incorrect parameters P1-P2", StatusError},
		{0x6A, 0x88, "Referenced data not found", StatusError},
		{0x6B, 0x00, "Wrong parameters P1-P2", StatusError},
		{0x6C, 0x20, "Wrong Le length (use 32)", StatusError},
		{0x6D, 0x00, "Instruction not supported", StatusError},
		{0x6E, 0x00, "Class not supported", StatusError},
		{0x6F, 0x00, "Unknown error", StatusError},
		{0x12, 0x34, "Unknown status: 1234", StatusError},
		{0x90, 0x01, "Unknown status: 9001", StatusError},
	}

	for _, tt := range tests {
		meaning, class := Info(tt.sw1, tt.sw2)
		if meaning != tt.meaning {
			t.Errorf("Info(%02X, %02X) meaning = %q; want %q", tt.sw1, tt.sw2, meaning, tt.meaning)
		}
		if class != tt.class {
			t.Errorf("Info(%02X, %02X) class = %v; want %v", tt.sw1, tt.sw2, class, tt.class)
		}
	}
}

func TestStatusWord_Accessors(t *testing.T) {
	sw := NewStatusWord(0x6A, 0x82)

	if sw.SW1() != 0x6A || sw.SW2() != 0x82 {
		t.Errorf("SW1/SW2 = %02X/%02X; want 6A/82", sw.SW1(), sw.SW2())
	}
	if sw.Hex() != "6A82" {
		t.Errorf("Hex = %q; want 6A82", sw.Hex())
	}
	if sw.Meaning() != "File not found" {
		t.Errorf("Meaning = %q; want File not found", sw.Meaning())
	}
	if sw.IsSuccess() {
		t.Error("6A82 must not classify as success")
	}
}

func TestStatusWord_IsSuccess(t *testing.T) {
	tests := []struct {
		sw      StatusWord
		success bool
	}{
		{SwNoError, true},
		{NewStatusWord(0x61, 0x10), true},
		{NewStatusWord(0x62, 0x83), false}, // warning is not success
		{SwFileNotFound, false},
		{SwUnknownError, false},
	}

	for _, tt := range tests {
		if got := tt.sw.IsSuccess(); got != tt.success {
			t.Errorf("IsSuccess(%s) = %v; want %v", tt.sw.Hex(), got, tt.success)
		}
	}
}

func TestClassification_String(t *testing.T) {
	if StatusSuccess.String() != "success" || StatusWarning.String() != "warning" || StatusError.String() != "error" {
		t.Error("classification strings changed")
	}
}
