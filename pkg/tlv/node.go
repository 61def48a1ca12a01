// Package tlv implements the BER-TLV encoding used by ISO/IEC 7816 and EMV
// cards: a lenient recursive codec, depth-first tree search, a static tag
// dictionary, and a struct-tag mapping layer for typed access to templates.
//
// PARSING DISCIPLINE:
// Card data is frequently truncated, padded or subtly malformed, and a
// half-readable record is always more useful than an error. Decode therefore
// never fails: padding bytes (00/FF) between objects are skipped, a length
// that overruns the input is clamped to what remains, and an invalid length
// prefix simply terminates the current sequence. Whatever was decoded up to
// that point is returned as-is.
package tlv

import (
	"fmt"
)

// Node is a single decoded TLV data object.
//
// The value is a tagged union: primitive nodes carry raw bytes in Value,
// constructed nodes carry their decoded children in Children. Exactly one
// side is populated, matching the Constructed flag.
type Node struct {
	Tag         uint32
	TagHex      string
	Length      int
	Value       []byte
	Children    []Node
	Constructed bool
	Description string
}

// Maximum encoded tag size per BER rules as applied by EMV (tag numbers
// never exceed 4 bytes on the wire).
const maxTagBytes = 4

// ParseTag reads one BER tag starting at offset.
//
// The first byte carries the class and constructed bits; when its low five
// bits are all set the tag number continues into subsequent bytes, each
// flagged by a set high bit, up to four bytes total. Returns the collapsed
// tag value, the offset just past the tag, and false when the input ends
// mid-tag.
func ParseTag(data []byte, offset int) (tag uint32, next int, ok bool) {
	if offset >= len(data) {
		return 0, offset, false
	}

	first := data[offset]
	tag = uint32(first)
	next = offset + 1

	if first&0x1F != 0x1F {
		return tag, next, true
	}

	for count := 1; count < maxTagBytes; count++ {
		if next >= len(data) {
			return 0, next, false
		}
		b := data[next]
		tag = tag<<8 | uint32(b)
		next++
		if b&0x80 == 0 {
			return tag, next, true
		}
	}

	// Four bytes consumed with the continuation bit still set: treat the
	// tag as complete rather than scanning further.
	return tag, next, true
}

// parseLength reads one BER length field starting at offset.
// Literal lengths run to 0x7F; 0x81/0x82/0x83 announce 1/2/3 big-endian
// length bytes. Anything above 0x83 is invalid here and reported via ok.
func parseLength(data []byte, offset int) (length, next int, ok bool) {
	if offset >= len(data) {
		return 0, offset, false
	}

	b := data[offset]
	next = offset + 1

	if b <= 0x7F {
		return int(b), next, true
	}

	var count int
	switch b {
	case 0x81:
		count = 1
	case 0x82:
		count = 2
	case 0x83:
		count = 3
	default:
		return 0, next, false
	}

	if next+count > len(data) {
		return 0, next, false
	}

	for i := 0; i < count; i++ {
		length = length<<8 | int(data[next+i])
	}
	return length, next + count, true
}

// Decode parses data into a sequence of TLV nodes.
//
// It never returns an error: any local parse failure truncates the sequence
// at that point and the nodes collected so far are returned.
func Decode(data []byte) []Node {
	nodes := []Node{}
	offset := 0

	for offset < len(data) {
		// Inter-object padding, common in record files.
		if data[offset] == 0x00 || data[offset] == 0xFF {
			offset++
			continue
		}

		tagStart := offset
		tag, afterTag, ok := ParseTag(data, offset)
		if !ok {
			break
		}

		length, afterLen, ok := parseLength(data, afterTag)
		if !ok {
			break
		}

		// Defensive truncation: trust the bytes we have over the length
		// the card declared.
		if afterLen+length > len(data) {
			length = len(data) - afterLen
		}

		raw := data[afterLen : afterLen+length]
		constructed := data[tagStart]&0x20 != 0

		node := Node{
			Tag:         tag,
			TagHex:      TagHex(tag),
			Length:      length,
			Constructed: constructed,
			Description: DescribeTag(tag),
		}

		if constructed {
			node.Children = Decode(raw)
		} else {
			node.Value = append([]byte(nil), raw...)
		}

		nodes = append(nodes, node)
		offset = afterLen + length
	}

	return nodes
}

// encodeTag emits the wire form of a collapsed tag value.
func encodeTag(tag uint32) []byte {
	switch {
	case tag <= 0xFF:
		return []byte{byte(tag)}
	case tag <= 0xFFFF:
		return []byte{byte(tag >> 8), byte(tag)}
	case tag <= 0xFFFFFF:
		return []byte{byte(tag >> 16), byte(tag >> 8), byte(tag)}
	default:
		return []byte{byte(tag >> 24), byte(tag >> 16), byte(tag >> 8), byte(tag)}
	}
}

// encodeLength emits the minimal BER length form.
func encodeLength(n int) []byte {
	switch {
	case n <= 0x7F:
		return []byte{byte(n)}
	case n <= 0xFF:
		return []byte{0x81, byte(n)}
	case n <= 0xFFFF:
		return []byte{0x82, byte(n >> 8), byte(n)}
	default:
		return []byte{0x83, byte(n >> 16), byte(n >> 8), byte(n)}
	}
}

// Encode is the structural inverse of Decode. Constructed nodes are encoded
// recursively; lengths always use the minimal form regardless of how the
// original input spelled them.
func Encode(nodes []Node) []byte {
	var out []byte
	for _, n := range nodes {
		value := n.Value
		if n.Constructed {
			value = Encode(n.Children)
		}

		out = append(out, encodeTag(n.Tag)...)
		out = append(out, encodeLength(len(value))...)
		out = append(out, value...)
	}
	return out
}

// FindFirst returns the first node with the given tag in a depth-first
// pre-order walk, or nil when absent.
func FindFirst(nodes []Node, tag uint32) *Node {
	for i := range nodes {
		if nodes[i].Tag == tag {
			return &nodes[i]
		}
		if nodes[i].Constructed {
			if found := FindFirst(nodes[i].Children, tag); found != nil {
				return found
			}
		}
	}
	return nil
}

// FindAll returns every node with the given tag, depth-first pre-order.
func FindAll(nodes []Node, tag uint32) []*Node {
	var found []*Node
	for i := range nodes {
		if nodes[i].Tag == tag {
			found = append(found, &nodes[i])
		}
		if nodes[i].Constructed {
			found = append(found, FindAll(nodes[i].Children, tag)...)
		}
	}
	return found
}

// TagHex renders a collapsed tag value as upper-case hex without padding
// beyond its encoded width.
func TagHex(tag uint32) string {
	return fmt.Sprintf("%X", encodeTag(tag))
}
