package tlv

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/tomkp/card-spy-sub001/pkg/hexutil"
)

func TestDecode_Primitive(t *testing.T) {
	nodes := Decode([]byte{0x50, 0x04, 0x56, 0x49, 0x53, 0x41})

	if len(nodes) != 1 {
		t.Fatalf("expected 1 node, got %d", len(nodes))
	}

	n := nodes[0]
	if n.Tag != 0x50 || n.TagHex != "50" {
		t.Errorf("tag = %X (%s); want 50", n.Tag, n.TagHex)
	}
	if n.Length != 4 {
		t.Errorf("length = %d; want 4", n.Length)
	}
	if n.Constructed {
		t.Error("node should not be constructed")
	}
	if !bytes.Equal(n.Value, []byte{0x56, 0x49, 0x53, 0x41}) {
		t.Errorf("value = %X; want VISA bytes", n.Value)
	}
	if n.Description != "Application Label" {
		t.Errorf("description = %q; want Application Label", n.Description)
	}
}

func TestDecode_Constructed(t *testing.T) {
	raw := hexutil.ParseHexInput("6F 0E 84 07 A0 00 00 00 04 10 10 A5 03 50 01 41")
	nodes := Decode(raw)

	if len(nodes) != 1 {
		t.Fatalf("expected 1 node, got %d", len(nodes))
	}

	fci := nodes[0]
	if fci.Tag != 0x6F || !fci.Constructed {
		t.Fatalf("expected constructed tag 6F, got %s (constructed=%v)", fci.TagHex, fci.Constructed)
	}
	if fci.Value != nil {
		t.Error("constructed node must not carry a raw value")
	}
	if len(fci.Children) != 2 {
		t.Fatalf("expected 2 children, got %d", len(fci.Children))
	}
	if fci.Children[0].Tag != 0x84 || fci.Children[1].Tag != 0xA5 {
		t.Errorf("children = %s, %s; want 84, A5", fci.Children[0].TagHex, fci.Children[1].TagHex)
	}
}

func TestDecode_SkipsPadding(t *testing.T) {
	nodes := Decode([]byte{0x00, 0x00, 0x50, 0x01, 0x41, 0x00})
	if len(nodes) != 1 {
		t.Fatalf("expected exactly 1 node, got %d", len(nodes))
	}
	if nodes[0].Tag != 0x50 {
		t.Errorf("tag = %s; want 50", nodes[0].TagHex)
	}

	nodes = Decode([]byte{0xFF, 0xFF, 0x50, 0x01, 0x41, 0xFF})
	if len(nodes) != 1 || nodes[0].Tag != 0x50 {
		t.Errorf("FF padding not skipped: %+v", nodes)
	}
}

func TestDecode_ExtendedLengths(t *testing.T) {
	tests := []struct {
		name   string
		prefix []byte
		length int
	}{
		{"0x81 form", []byte{0x50, 0x81, 0x80}, 128},
		{"0x82 form", []byte{0x50, 0x82, 0x01, 0x00}, 256},
		{"0x83 form", []byte{0x50, 0x83, 0x00, 0x01, 0x00}, 256},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := append(append([]byte{}, tt.prefix...), make([]byte, tt.length)...)
			nodes := Decode(raw)
			if len(nodes) != 1 {
				t.Fatalf("expected 1 node, got %d", len(nodes))
			}
			if nodes[0].Length != tt.length {
				t.Errorf("length = %d; want %d", nodes[0].Length, tt.length)
			}
		})
	}
}

func TestDecode_InvalidLengthPrefixStops(t *testing.T) {
	// 0x84 is not a valid length prefix: the sequence truncates there but
	// earlier nodes survive.
	raw := []byte{0x50, 0x01, 0x41, 0x5A, 0x84, 0x01, 0x02, 0x03}
	nodes := Decode(raw)
	if len(nodes) != 1 {
		t.Fatalf("expected 1 node before the invalid length, got %d", len(nodes))
	}
	if nodes[0].Tag != 0x50 {
		t.Errorf("surviving node = %s; want 50", nodes[0].TagHex)
	}
}

func TestDecode_ClampsOverrunLength(t *testing.T) {
	// Declared length 9, only 2 bytes remain.
	nodes := Decode([]byte{0x50, 0x09, 0x41, 0x42})
	if len(nodes) != 1 {
		t.Fatalf("expected 1 node, got %d", len(nodes))
	}
	if nodes[0].Length != 2 || !bytes.Equal(nodes[0].Value, []byte{0x41, 0x42}) {
		t.Errorf("clamped node = %+v; want length 2, value 4142", nodes[0])
	}
}

func TestDecode_TruncatedTag(t *testing.T) {
	// 9F with nothing after it: tag parsing cannot complete.
	if nodes := Decode([]byte{0x9F}); len(nodes) != 0 {
		t.Errorf("expected no nodes, got %d", len(nodes))
	}
	// Tag complete, length byte missing.
	if nodes := Decode([]byte{0x9F, 0x38}); len(nodes) != 0 {
		t.Errorf("expected no nodes, got %d", len(nodes))
	}
}

func TestDecode_MultiByteTags(t *testing.T) {
	raw := hexutil.ParseHexInput("9F 38 03 9F 66 04 5F 2D 02 66 72")
	nodes := Decode(raw)
	if len(nodes) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(nodes))
	}
	if nodes[0].Tag != 0x9F38 || nodes[0].TagHex != "9F38" {
		t.Errorf("first tag = %s; want 9F38", nodes[0].TagHex)
	}
	if nodes[1].Tag != 0x5F2D {
		t.Errorf("second tag = %s; want 5F2D", nodes[1].TagHex)
	}
	if !bytes.Equal(nodes[1].Value, []byte("fr")) {
		t.Errorf("5F2D value = %q; want fr", nodes[1].Value)
	}
}

func TestEncode_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
	}{
		{"Primitive", []byte{0x50, 0x04, 0x56, 0x49, 0x53, 0x41}},
		{"Constructed", hexutil.ParseHexInput("6F 0E 84 07 A0 00 00 00 04 10 10 A5 03 50 01 41")},
		{"Multi-byte tag", hexutil.ParseHexInput("9F 12 03 41 42 43")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoded := Decode(tt.raw)
			encoded := Encode(decoded)
			if !bytes.Equal(encoded, tt.raw) {
				t.Errorf("round trip: got %X, want %X", encoded, tt.raw)
			}
			if diff := cmp.Diff(decoded, Decode(encoded)); diff != "" {
				t.Errorf("re-decode mismatch (-first +second):\n%s", diff)
			}
		})
	}
}

func TestEncode_MinimalLengthForms(t *testing.T) {
	tests := []struct {
		length int
		prefix []byte
	}{
		{0x7F, []byte{0x7F}},
		{0x80, []byte{0x81, 0x80}},
		{0x100, []byte{0x82, 0x01, 0x00}},
		{0x10000, []byte{0x83, 0x01, 0x00, 0x00}},
	}

	for _, tt := range tests {
		node := Node{Tag: 0x50, Value: make([]byte, tt.length)}
		encoded := Encode([]Node{node})
		if !bytes.Equal(encoded[1:1+len(tt.prefix)], tt.prefix) {
			t.Errorf("length %d encoded as %X; want prefix %X", tt.length, encoded[1:4], tt.prefix)
		}
	}
}

func TestFindFirstAndAll(t *testing.T) {
	raw := hexutil.ParseHexInput(
		"70 14" +
			"61 08 4F 03 A0 00 01 50 01 41" +
			"61 08 4F 03 A0 00 02 50 01 42")
	nodes := Decode(raw)

	first := FindFirst(nodes, 0x4F)
	if first == nil {
		t.Fatal("FindFirst(4F) returned nil")
	}
	if !bytes.Equal(first.Value, []byte{0xA0, 0x00, 0x01}) {
		t.Errorf("first 4F = %X; want A00001 (pre-order)", first.Value)
	}

	all := FindAll(nodes, 0x4F)
	if len(all) != 2 {
		t.Fatalf("FindAll(4F) found %d nodes; want 2", len(all))
	}

	if FindFirst(nodes, 0x9F99) != nil {
		t.Error("FindFirst for absent tag should return nil")
	}
}

func TestParseTag(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		tag  uint32
		next int
		ok   bool
	}{
		{"Single byte", []byte{0x6F}, 0x6F, 1, true},
		{"Two bytes", []byte{0x9F, 0x38}, 0x9F38, 2, true},
		{"Three bytes", []byte{0x9F, 0x85, 0x22}, 0x9F8522, 3, true},
		{"Truncated", []byte{0x9F}, 0, 1, false},
		{"Empty", nil, 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tag, next, ok := ParseTag(tt.data, 0)
			if ok != tt.ok {
				t.Fatalf("ok = %v; want %v", ok, tt.ok)
			}
			if !ok {
				return
			}
			if tag != tt.tag || next != tt.next {
				t.Errorf("ParseTag = %X at %d; want %X at %d", tag, next, tt.tag, tt.next)
			}
		})
	}
}
