package sim

import (
	"fmt"
	"strings"

	"github.com/gregLibert/sim-card/pkg/bits"
)

// PLMN ENCODING (3GPP TS 24.008 10.5.1.3):
//
// Byte 1: MCC digit 2 (high nibble) | MCC digit 1 (low nibble)
// Byte 2: MNC digit 3 (high nibble) | MCC digit 3 (low nibble)
// Byte 3: MNC digit 2 (high nibble) | MNC digit 1 (low nibble)
//
// MNC digit 3 is 'F' for two-digit MNCs. Nibble 'D' is stored by EF_OPL as a
// wildcard and decodes to 'b'.

const (
	plmnDigits  = "0123456789*#abd"
	dialDigits  = "0123456789*#abc"
	nibbleBlank = 0x0F

	// PLMNLength is the size of an encoded MCC/MNC triple.
	PLMNLength = 3

	maxIMSIBytes = 8
)

// DecodeMCCMNC decodes a 3-byte PLMN into its MCC (3 digits) and MNC (2 or 3 digits).
func DecodeMCCMNC(data []byte) (mcc, mnc string, err error) {
	if len(data) < PLMNLength {
		return "", "", fmt.Errorf("%w: PLMN needs %d bytes, got %d", ErrMalformed, PLMNLength, len(data))
	}

	nibbles := [6]byte{
		bits.Low(data[0]), bits.High(data[0]), bits.Low(data[1]), // MCC
		bits.Low(data[2]), bits.High(data[2]), bits.High(data[1]), // MNC
	}

	var out [6]byte
	for i, n := range nibbles {
		if n == nibbleBlank {
			if i == 5 {
				return string(out[:3]), string(out[3:5]), nil
			}
			return "", "", fmt.Errorf("%w: filler in PLMN digit %d", ErrMalformed, i+1)
		}
		out[i] = plmnDigits[n]
	}

	return string(out[:3]), string(out[3:]), nil
}

// EncodeMCCMNC is the inverse of DecodeMCCMNC. 'b' may be used as a wildcard digit.
func EncodeMCCMNC(mcc, mnc string) ([PLMNLength]byte, error) {
	var out [PLMNLength]byte

	if len(mcc) != 3 || (len(mnc) != 2 && len(mnc) != 3) {
		return out, fmt.Errorf("%w: invalid PLMN %q/%q", ErrMalformed, mcc, mnc)
	}

	var n [6]byte
	digits := mcc + mnc
	for i := 0; i < len(digits); i++ {
		d := strings.IndexByte(plmnDigits, digits[i])
		if d < 0 {
			return out, fmt.Errorf("%w: invalid PLMN digit %q", ErrMalformed, digits[i])
		}
		n[i] = byte(d)
	}
	if len(mnc) == 2 {
		n[5] = nibbleBlank
	}

	out[0] = bits.Pack(n[1], n[0])
	out[1] = bits.Pack(n[5], n[2])
	out[2] = bits.Pack(n[4], n[3])
	return out, nil
}

// DecodeBCDNumber decodes a dialing number stored as swapped BCD nibbles.
// Decoding stops at the first 'F' nibble.
func DecodeBCDNumber(data []byte) string {
	var sb strings.Builder

	for _, b := range data {
		for _, n := range [2]byte{bits.Low(b), bits.High(b)} {
			if n == nibbleBlank {
				return sb.String()
			}
			sb.WriteByte(dialDigits[n])
		}
	}
	return sb.String()
}

// EncodeBCDNumber is the inverse of DecodeBCDNumber. An odd digit count is padded with 'F'.
func EncodeBCDNumber(number string) ([]byte, error) {
	out := make([]byte, (len(number)+1)/2)

	for i := 0; i < len(number); i++ {
		d := strings.IndexByte(dialDigits, lower(number[i]))
		if d < 0 {
			return nil, fmt.Errorf("%w: invalid dialing digit %q", ErrMalformed, number[i])
		}
		if i%2 == 0 {
			out[i/2] = bits.Pack(nibbleBlank, byte(d))
		} else {
			out[i/2] = bits.Pack(byte(d), bits.Low(out[i/2]))
		}
	}
	return out, nil
}

// DecodeICCID decodes EF_ICCID ('2FE2'), ten bytes of swapped BCD digits.
func DecodeICCID(data []byte) (string, error) {
	var sb strings.Builder

	for _, b := range data {
		for _, n := range [2]byte{bits.Low(b), bits.High(b)} {
			if n == nibbleBlank {
				return sb.String(), nil
			}
			if n > 9 {
				return "", fmt.Errorf("%w: non-decimal ICCID digit %X", ErrMalformed, n)
			}
			sb.WriteByte('0' + n)
		}
	}
	return sb.String(), nil
}

func lower(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + 'a' - 'A'
	}
	return c
}

// DecodeIMSI decodes EF_IMSI ('6F07'): a length byte followed by swapped BCD digits.
// The low nibble of the first digit byte is the parity indicator and is dropped.
func DecodeIMSI(data []byte) (string, error) {
	if len(data) < 2 {
		return "", fmt.Errorf("%w: IMSI needs at least 2 bytes, got %d", ErrMalformed, len(data))
	}
	n := int(data[0])
	if n < 1 || n > maxIMSIBytes || len(data) < 1+n {
		return "", fmt.Errorf("%w: IMSI length byte %02X", ErrMalformed, data[0])
	}

	digits, err := DecodeICCID(data[1 : 1+n])
	if err != nil {
		return "", fmt.Errorf("IMSI digits: %w", err)
	}
	if len(digits) < 2 {
		return "", fmt.Errorf("%w: empty IMSI", ErrMalformed)
	}
	return digits[1:], nil
}
