package sim

import (
	"fmt"

	"github.com/gregLibert/sim-card/pkg/bits"
	"github.com/warthog618/sms/encoding/gsm7"
	"github.com/warthog618/sms/encoding/ucs2"
)

// TEXT CODING ON THE SIM:
//
// 1. Network names (PNN long/short name, 3GPP TS 24.008 10.5.3.5a):
//    First byte is a coding byte.
//    - Bit 4: add the country initials to the name.
//    - Bits 7-5: coding scheme. '000' = GSM default alphabet, '001' = UCS2 (big-endian).
//    SIM storage keeps GSM characters unpacked, one per byte.
//
// 2. Alpha identifiers (ADN names, PNN additional info, TS 31.102 Annex A):
//    - '80' prefix: UCS2 big-endian characters.
//    - '81' prefix: length, 8-bit base pointer (bits 15-8 of the base, shifted by 7),
//      then one byte per character. Bit 8 set: base + bits 7-1. Bit 8 clear: GSM character.
//    - '82' prefix: length, 16-bit base pointer, then characters as for '81'.
//    - Otherwise: GSM default alphabet, unpacked, padded with 'FF'.

const (
	schemeGSM  = 0x0
	schemeUCS2 = 0x1

	alphaUCS2     = 0x80
	alphaUCS2Base = 0x81
	alphaUCS2Wide = 0x82

	gsmEscape = 0x1B
)

var (
	gsmDecoder = gsm7.NewDecoder()
	gsmEncoder = gsm7.NewEncoder()
)

// DecodeNetworkName decodes a PNN long or short name field.
// addCI reports whether the country initials should be appended to the name.
func DecodeNetworkName(data []byte) (name string, addCI bool, err error) {
	if len(data) < 1 {
		return "", false, fmt.Errorf("%w: empty network name", ErrMalformed)
	}

	dcs := data[0]
	payload := data[1:]
	addCI = bits.IsSet(dcs, 4)

	switch scheme := bits.GetRange(dcs, 7, 5); scheme {
	case schemeGSM:
		name, err = decodeGSM(payload)

	case schemeUCS2:
		if len(payload)%2 == 1 {
			if payload[len(payload)-1] != 0xFF {
				return "", false, fmt.Errorf("%w: odd UCS2 name without padding", ErrMalformed)
			}
			payload = payload[:len(payload)-1]
		}
		name, err = decodeUCS2(payload)

	default:
		return "", false, fmt.Errorf("%w: unsupported name coding scheme %d", ErrMalformed, scheme)
	}

	if err != nil {
		return "", false, err
	}
	return name, addCI, nil
}

// EncodeNetworkName is the inverse of DecodeNetworkName. GSM coding is used when
// every character exists in the default alphabet, UCS2 otherwise.
func EncodeNetworkName(name string, addCI bool) []byte {
	dcs := bits.Bit(8) // extension bit, always set on the SIM
	if addCI {
		dcs = bits.Set(dcs, 4)
	}

	if gsm, err := gsmEncoder.Encode([]byte(name)); err == nil {
		return append([]byte{dcs}, gsm...)
	}

	dcs |= schemeUCS2 << 4
	return append([]byte{dcs}, ucs2.Encode([]rune(name))...)
}

// DecodeAlphaString decodes an alpha identifier in any of the SIM codings.
func DecodeAlphaString(data []byte) (string, error) {
	if len(data) == 0 {
		return "", nil
	}

	switch data[0] {
	case alphaUCS2:
		payload := data[1:]
		return decodeUCS2(payload[:len(payload)&^1])

	case alphaUCS2Base:
		if len(data) < 3 {
			return "", fmt.Errorf("%w: truncated '81' alpha string", ErrMalformed)
		}
		base := rune(data[2]) << 7
		return decodeBasePointer(data[3:], int(data[1]), base)

	case alphaUCS2Wide:
		if len(data) < 4 {
			return "", fmt.Errorf("%w: truncated '82' alpha string", ErrMalformed)
		}
		base := rune(data[2])<<8 | rune(data[3])
		return decodeBasePointer(data[4:], int(data[1]), base)
	}

	return decodeGSM(data)
}

// EncodeAlphaString encodes text for an alpha field of at most size bytes.
// The GSM default alphabet is preferred; other text is stored with the '80' UCS2 prefix.
// The result is cut on a character boundary when it does not fit.
func EncodeAlphaString(text string, size int) []byte {
	if size <= 0 {
		return nil
	}

	if gsm, err := gsmEncoder.Encode([]byte(text)); err == nil {
		if len(gsm) <= size {
			return gsm
		}
		gsm = gsm[:size]
		// Never leave a dangling escape: it would swallow the next character.
		if gsm[len(gsm)-1] == gsmEscape {
			gsm = gsm[:len(gsm)-1]
		}
		return gsm
	}

	out := append([]byte{alphaUCS2}, ucs2.Encode([]rune(text))...)
	if len(out) > size {
		out = out[:1+(size-1)&^1]
	}
	return out
}

func decodeGSM(data []byte) (string, error) {
	for i, b := range data {
		if b == 0xFF {
			data = data[:i]
			break
		}
	}

	out, err := gsmDecoder.Decode(data)
	if err != nil {
		return "", fmt.Errorf("%w: GSM text: %v", ErrMalformed, err)
	}
	return string(out), nil
}

func decodeUCS2(data []byte) (string, error) {
	for i := 0; i+1 < len(data); i += 2 {
		if data[i] == 0xFF && data[i+1] == 0xFF {
			data = data[:i]
			break
		}
	}

	runes, err := ucs2.Decode(data)
	if err != nil {
		return "", fmt.Errorf("%w: UCS2 text: %v", ErrMalformed, err)
	}
	return string(runes), nil
}

func decodeBasePointer(data []byte, count int, base rune) (string, error) {
	if count > len(data) {
		return "", fmt.Errorf("%w: alpha string declares %d characters, %d present", ErrMalformed, count, len(data))
	}

	var (
		out []rune
		gsm []byte
	)

	flush := func() error {
		if len(gsm) == 0 {
			return nil
		}
		s, err := gsmDecoder.Decode(gsm)
		if err != nil {
			return fmt.Errorf("%w: GSM text: %v", ErrMalformed, err)
		}
		out = append(out, []rune(string(s))...)
		gsm = gsm[:0]
		return nil
	}

	for _, b := range data[:count] {
		if bits.IsSet(b, 8) {
			if err := flush(); err != nil {
				return "", err
			}
			out = append(out, base+rune(b&0x7F))
			continue
		}
		gsm = append(gsm, b)
	}

	if err := flush(); err != nil {
		return "", err
	}
	return string(out), nil
}
