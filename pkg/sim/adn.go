package sim

import (
	"bytes"
	"fmt"
)

// EF_ADN RECORD (TS 51.011 10.5.1), X + 14 bytes:
//
// Bytes 1..X:      Alpha identifier, 'FF' padded
// Byte X+1:        Length of BCD number + TON/NPI byte
// Byte X+2:        TON/NPI
// Bytes X+3..X+12: Dialing number, swapped BCD, 'F' padded
// Byte X+13:       Capability/configuration identifier
// Byte X+14:       Extension record identifier

const (
	// ADNFooterLength is the part of an ADN record following the alpha identifier.
	ADNFooterLength = 14

	maxNumberBytes = 10
	// TypeInternational is the TON/NPI of international ISDN numbers.
	TypeInternational = 0x91
	// TypeUnknown is the TON/NPI of national or unknown numbers.
	TypeUnknown = 0x81
)

// PhoneNumber is a dialing number with its TON/NPI byte.
type PhoneNumber struct {
	Number string
	Type   uint8
}

func (p PhoneNumber) String() string {
	if p.Type == TypeInternational && p.Number != "" {
		return "+" + p.Number
	}
	return p.Number
}

// ADN is one decoded phonebook entry.
type ADN struct {
	Number     PhoneNumber
	Identifier string
}

// ParseADN decodes an EF_ADN record. Empty ('FF' filled) records are reported as malformed.
func ParseADN(data []byte) (ADN, error) {
	if len(data) < ADNFooterLength {
		return ADN{}, fmt.Errorf("%w: ADN record needs %d bytes, got %d", ErrMalformed, ADNFooterLength, len(data))
	}

	alphaLen := len(data) - ADNFooterLength
	footer := data[alphaLen:]

	numberLen := int(footer[0])
	ton := footer[1]
	if numberLen > maxNumberBytes+1 || ton == 0xFF {
		return ADN{}, fmt.Errorf("%w: ADN number length %02X, type %02X", ErrMalformed, footer[0], ton)
	}

	bcdLen := max(numberLen-1, 0)
	adn := ADN{
		Number: PhoneNumber{
			Number: DecodeBCDNumber(footer[2 : 2+bcdLen]),
			Type:   ton,
		},
	}

	if alphaLen > 0 {
		if id, err := DecodeAlphaString(data[:alphaLen]); err == nil {
			adn.Identifier = id
		}
	}
	return adn, nil
}

// BuildADN encodes an ADN record of the given total length. The identifier is
// truncated to the alpha field size.
func BuildADN(length int, number PhoneNumber, identifier string) ([]byte, error) {
	if length < ADNFooterLength {
		return nil, fmt.Errorf("%w: ADN record of %d bytes", ErrMalformed, length)
	}

	bcd, err := EncodeBCDNumber(number.Number)
	if err != nil {
		return nil, err
	}
	if len(bcd) > maxNumberBytes {
		return nil, fmt.Errorf("%w: number %q longer than %d digits", ErrMalformed, number.Number, maxNumberBytes*2)
	}

	alphaLen := length - ADNFooterLength
	out := bytes.Repeat([]byte{0xFF}, length)
	copy(out, EncodeAlphaString(identifier, alphaLen))

	footer := out[alphaLen:]
	footer[0] = byte(len(bcd) + 1)
	footer[1] = number.Type
	copy(footer[2:], bcd)

	return out, nil
}
