package tlv

import (
	"encoding/hex"
	"fmt"
	"reflect"
	"strings"

	"github.com/moov-io/bertlv"
)

var tlvSliceType = reflect.TypeOf([]bertlv.TLV{})

// WriteStructFields writes one report line per populated field of s.
// Lines are joined with newlines without a trailing one; a separating newline is
// prepended when the builder already holds content.
//
// Handled fields: []byte (formatted by the `fmt` struct tag: "ascii", "int" or hex),
// unsigned integers, non-empty strings, and []bertlv.TLV leftovers.
func WriteStructFields(sb *strings.Builder, prefix string, s interface{}) {
	val := reflect.ValueOf(s)

	if val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return
		}
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return
	}

	typ := val.Type()
	var lines []string

	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)
		if !fieldType.IsExported() {
			continue
		}

		switch {
		case field.Type() == tlvSliceType:
			lines = append(lines, formatUnknownField(prefix, field)...)

		case field.Kind() == reflect.Slice && field.Type().Elem().Kind() == reflect.Uint8:
			if line := formatByteSliceField(prefix, field, fieldType); line != "" {
				lines = append(lines, line)
			}

		case field.Kind() == reflect.String && field.Len() > 0:
			lines = append(lines, fmt.Sprintf("    - %s.%s: %q", prefix, fieldName(fieldType), field.String()))

		case isUnsigned(field) && fieldType.Tag.Get("tlv") != "":
			lines = append(lines, fmt.Sprintf("    - %s.%s: %X (Dec: %d)", prefix, fieldName(fieldType), field.Uint(), field.Uint()))
		}
	}

	if len(lines) > 0 {
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(strings.Join(lines, "\n"))
	}
}

func fieldName(f reflect.StructField) string {
	if tag := f.Tag.Get("tlv"); tag != "" && !strings.HasPrefix(tag, ",") {
		return fmt.Sprintf("%s (%s)", f.Name, strings.Split(tag, ",")[0])
	}
	return f.Name
}

func formatByteSliceField(prefix string, field reflect.Value, fieldType reflect.StructField) string {
	if field.IsNil() || field.Len() == 0 {
		return ""
	}

	displayVal := formatByteValue(field.Bytes(), fieldType.Tag.Get("fmt"))
	return fmt.Sprintf("    - %s.%s: %s", prefix, fieldName(fieldType), displayVal)
}

func formatUnknownField(prefix string, field reflect.Value) []string {
	if field.IsNil() || field.Len() == 0 {
		return nil
	}

	var lines []string
	for _, t := range field.Interface().([]bertlv.TLV) {
		valStr := strings.ToUpper(hex.EncodeToString(packetRawData(t)))
		lines = append(lines, fmt.Sprintf("    - %s.Unknown Tag %s: %s", prefix, strings.ToUpper(t.Tag), valStr))
	}
	return lines
}

func formatByteValue(data []byte, format string) string {
	switch format {
	case "ascii":
		return fmt.Sprintf("%X (%q)", data, MakeSafeASCII(data))
	case "int":
		var integer int
		for _, b := range data {
			integer = (integer << 8) | int(b)
		}
		return fmt.Sprintf("%X (Dec: %d)", data, integer)
	default:
		return strings.ToUpper(hex.EncodeToString(data))
	}
}

// MakeSafeASCII replaces every non-printable byte with '.'.
func MakeSafeASCII(data []byte) string {
	return strings.Map(func(r rune) rune {
		if r >= 32 && r <= 126 {
			return r
		}
		return '.'
	}, string(data))
}
