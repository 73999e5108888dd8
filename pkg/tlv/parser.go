// Package tlv reads BER-TLV (Basic Encoding Rules - Tag-Length-Value) data found on SIM cards.
//
// Two readers are provided:
//   - Cursor / Find: a tolerant scanner for tags inside padded EF records (see scanner.go).
//   - Unmarshal: maps well-formed templates (FCP '62', application template '61')
//     into Go structures using `tlv:"<hex tag>"` struct tags.
package tlv

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/moov-io/bertlv"
)

// Unmarshaler allows custom types to implement their own TLV parsing logic.
type Unmarshaler interface {
	UnmarshalTLV(data []byte) error
}

// TrimFiller drops the trailing 'FF' bytes that pad a record up to its fixed length.
func TrimFiller(data []byte) []byte {
	end := len(data)
	for end > 0 && data[end-1] == 0xFF {
		end--
	}
	return data[:end]
}

// Unmarshal parses raw BER-TLV data and maps it into a target Go struct.
// Trailing record filler is ignored.
func Unmarshal(data []byte, target interface{}) error {
	packets, err := bertlv.Decode(TrimFiller(data))
	if err != nil {
		return fmt.Errorf("bertlv decode failed: %w", err)
	}
	return UnmarshalFromPackets(packets, target)
}

// UnmarshalFromPackets maps a slice of pre-decoded bertlv.TLV objects to a target struct.
// It supports multiple occurrences of the same tag if the target field is a slice.
func UnmarshalFromPackets(packets []bertlv.TLV, target interface{}) error {
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

		tagHex, ok := fieldTag(fieldType)
		if !ok {
			continue
		}

		for idx, packet := range packets {
			if !strings.EqualFold(packet.Tag, tagHex) {
				continue
			}
			if err := mapPacketToField(packet, field); err != nil {
				return fmt.Errorf("field %s (tag %s): %w", fieldType.Name, tagHex, err)
			}
			consumed[idx] = true
		}
	}

	return handleUnknownFields(v, t, packets, consumed)
}

// fieldTag returns the hex tag bound to a struct field, if any.
func fieldTag(f reflect.StructField) (string, bool) {
	config := f.Tag.Get("tlv")
	if config == "" || config == ",unknown" || f.Name == "Unknown" {
		return "", false
	}
	return strings.ToUpper(strings.Split(config, ",")[0]), true
}

// mapPacketToField appends to slice fields (other than []byte) and decodes in place otherwise.
func mapPacketToField(packet bertlv.TLV, field reflect.Value) error {
	if field.Kind() == reflect.Slice && !isByteSlice(field) {
		elem := reflect.New(field.Type().Elem()).Elem()
		if err := decodeToValue(packet, elem); err != nil {
			return err
		}
		field.Set(reflect.Append(field, elem))
		return nil
	}

	return decodeToValue(packet, field)
}

// decodeToValue handles a leaf: custom Unmarshaler, []byte, integer, or nested template.
func decodeToValue(packet bertlv.TLV, field reflect.Value) error {
	if field.CanAddr() {
		if u, ok := field.Addr().Interface().(Unmarshaler); ok {
			return u.UnmarshalTLV(packetRawData(packet))
		}
	}

	switch {
	case isByteSlice(field):
		field.SetBytes(packetRawData(packet))
		return nil

	case isUnsigned(field):
		raw := packetRawData(packet)
		if len(raw) > int(field.Type().Size()) {
			return fmt.Errorf("%d bytes do not fit in %s", len(raw), field.Type())
		}
		var n uint64
		for _, b := range raw {
			n = n<<8 | uint64(b)
		}
		field.SetUint(n)
		return nil

	case isStructOrPtrToStruct(field):
		target := targetField(field)
		if len(packet.TLVs) > 0 {
			return UnmarshalFromPackets(packet.TLVs, target.Interface())
		}
		return Unmarshal(packet.Value, target.Interface())
	}

	return nil
}

func handleUnknownFields(v reflect.Value, t reflect.Type, packets []bertlv.TLV, consumed map[int]bool) error {
	unknownField, found := findUnknownField(v, t)
	if !found {
		return nil
	}

	var leftovers []bertlv.TLV
	for idx, packet := range packets {
		if !consumed[idx] {
			leftovers = append(leftovers, packet)
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

func packetRawData(p bertlv.TLV) []byte {
	if len(p.TLVs) > 0 {
		if enc, err := bertlv.Encode(p.TLVs); err == nil {
			return enc
		}
	}
	return p.Value
}

// GetValue returns the payload of the first top-level object carrying tag.
// Single-byte tags go through the tolerant scanner, so padded records are accepted.
func GetValue(data []byte, tag uint) ([]byte, error) {
	if tag <= 0xFF {
		if value, ok := Find(data, byte(tag)); ok {
			return value, nil
		}
		return nil, fmt.Errorf("tag %02X not found", tag)
	}

	packets, err := bertlv.Decode(TrimFiller(data))
	if err != nil {
		return nil, err
	}

	target := fmt.Sprintf("%X", tag)
	for _, p := range packets {
		if strings.EqualFold(p.Tag, target) {
			return packetRawData(p), nil
		}
	}
	return nil, fmt.Errorf("tag %s not found", target)
}

func isByteSlice(v reflect.Value) bool {
	return v.Kind() == reflect.Slice && v.Type().Elem().Kind() == reflect.Uint8
}

func isUnsigned(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uint:
		return true
	}
	return false
}

func isStructOrPtrToStruct(v reflect.Value) bool {
	if v.Kind() == reflect.Struct {
		return true
	}
	return v.Kind() == reflect.Ptr && v.Type().Elem().Kind() == reflect.Struct
}

func targetField(field reflect.Value) reflect.Value {
	if field.Kind() == reflect.Ptr {
		if field.IsNil() {
			field.Set(reflect.New(field.Type().Elem()))
		}
		return field
	}
	return field.Addr()
}
