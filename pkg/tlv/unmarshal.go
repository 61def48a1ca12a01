package tlv

import (
	"encoding/hex"
	"fmt"
	"reflect"
	"strings"
)

// Unmarshaler allows custom types to implement their own TLV parsing logic.
type Unmarshaler interface {
	UnmarshalTLV(data []byte) error
}

// Unmarshal decodes raw BER-TLV data and maps it into a target Go struct
// using `tlv:"<hex tag>"` field tags.
func Unmarshal(data []byte, target interface{}) error {
	return UnmarshalFromNodes(Decode(data), target)
}

// UnmarshalFromNodes maps a slice of pre-decoded nodes to a target struct.
// It supports multiple occurrences of the same tag if the target field is a
// slice, and collects unmatched nodes into a `tlv:",unknown"` field when
// one is present.
func UnmarshalFromNodes(nodes []Node, target interface{}) error {
	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return fmt.Errorf("target must be a non-nil pointer")
	}
	v = v.Elem()
	t := v.Type()

	consumed := make(map[int]bool)

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)
		tagConfig := fieldType.Tag.Get("tlv")

		if tagConfig == "" || tagConfig == ",unknown" || fieldType.Name == "Unknown" {
			continue
		}

		tagHex := strings.ToUpper(strings.Split(tagConfig, ",")[0])

		for idx := range nodes {
			if strings.ToUpper(nodes[idx].TagHex) == tagHex {
				if err := mapNodeToField(nodes[idx], field); err != nil {
					return err
				}
				consumed[idx] = true
			}
		}
	}

	return handleUnknownFields(v, t, nodes, consumed)
}

// mapNodeToField dispatches the TLV data to the appropriate reflection logic.
func mapNodeToField(node Node, field reflect.Value) error {
	// Repeated tags land in slices of structs ([]byte stays a leaf).
	if field.Kind() == reflect.Slice && !isByteSlice(field) {
		newElem := reflect.New(field.Type().Elem()).Elem()
		if err := decodeToValue(node, newElem); err != nil {
			return err
		}
		field.Set(reflect.Append(field, newElem))
		return nil
	}

	return decodeToValue(node, field)
}

// decodeToValue handles the leaf-node decoding logic (custom Unmarshaler,
// byte slice, hex string, or nested struct).
func decodeToValue(node Node, field reflect.Value) error {
	if field.CanAddr() {
		if u, ok := field.Addr().Interface().(Unmarshaler); ok {
			return u.UnmarshalTLV(nodeRawData(node))
		}
	}

	if isByteSlice(field) {
		field.SetBytes(nodeRawData(node))
		return nil
	}

	if field.Kind() == reflect.String {
		field.SetString(hex.EncodeToString(node.Value))
		return nil
	}

	if isStructOrPtrToStruct(field) {
		targetField := getTargetField(field)
		if node.Constructed {
			return UnmarshalFromNodes(node.Children, targetField.Interface())
		}
		return Unmarshal(node.Value, targetField.Interface())
	}

	return nil
}

func handleUnknownFields(v reflect.Value, t reflect.Type, nodes []Node, consumed map[int]bool) error {
	unknownField, found := findUnknownField(v, t)
	if !found {
		return nil
	}

	var leftovers []Node
	for idx := range nodes {
		if !consumed[idx] {
			leftovers = append(leftovers, nodes[idx])
		}
	}

	if len(leftovers) > 0 && unknownField.CanSet() {
		unknownField.Set(reflect.ValueOf(leftovers))
	}
	return nil
}

func findUnknownField(v reflect.Value, t reflect.Type) (reflect.Value, bool) {
	for i := 0; i < v.NumField(); i++ {
		tag := t.Field(i).Tag.Get("tlv")
		if tag == ",unknown" || t.Field(i).Name == "Unknown" {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

// nodeRawData returns the value bytes of a node, re-encoding the children
// of constructed nodes so nested templates round-trip.
func nodeRawData(n Node) []byte {
	if n.Constructed {
		return Encode(n.Children)
	}
	return n.Value
}

// GetValue scans raw data for a specific tag and returns its payload.
func GetValue(data []byte, tag uint32) ([]byte, error) {
	nodes := Decode(data)
	if found := FindFirst(nodes, tag); found != nil {
		return nodeRawData(*found), nil
	}
	return nil, fmt.Errorf("tag %s not found", TagHex(tag))
}

func isByteSlice(v reflect.Value) bool {
	return v.Kind() == reflect.Slice && v.Type().Elem().Kind() == reflect.Uint8
}

func isStructOrPtrToStruct(v reflect.Value) bool {
	if v.Kind() == reflect.Struct {
		return true
	}
	if v.Kind() == reflect.Ptr && v.Type().Elem().Kind() == reflect.Struct {
		return true
	}
	return false
}

func getTargetField(field reflect.Value) reflect.Value {
	if field.Kind() == reflect.Ptr {
		if field.IsNil() {
			field.Set(reflect.New(field.Type().Elem()))
		}
		return field
	}
	return field.Addr()
}
