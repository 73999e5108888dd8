package iso7816

import (
	"fmt"

	"github.com/gregLibert/sim-card/pkg/bits"
)

// Dynamic Status Words:
//
// Some SW1 values carry information in SW2 rather than naming a fixed condition:
//
// 1. '61XX' (UICC) and '9FXX' (GSM): Command completed, XX response bytes are
//    waiting for a GET RESPONSE.
//
// 2. '6CXX': Wrong Le, XX is the length to use.
//
// 3. '91XX': Command completed, a proactive command of XX bytes is pending (FETCH).
//
// 4. '920X': GSM command completed after X internal retries.
//
// 5. '62XX' / '64XX' with XX in [0x02, 0x80]: triggering by the card, XX bytes involved.
//
// 6. '63CX': Verification failed or counter, X is the number of retries left.

// StatusWord represents the two-byte status response (SW1-SW2) returned by the card.
type StatusWord uint16

// NewStatusWord creates a StatusWord instance from two separate bytes.
func NewStatusWord(sw1, sw2 byte) StatusWord {
	return StatusWord(uint16(sw1)<<8 | uint16(sw2))
}

// SW1 returns the first byte (high byte) of the status word.
func (sw StatusWord) SW1() byte {
	return byte(sw >> 8)
}

// SW2 returns the second byte (low byte) of the status word.
func (sw StatusWord) SW2() byte {
	return byte(sw)
}

// IsTriggeringByCard checks if the status indicates a "Triggering by the card" event.
func (sw StatusWord) IsTriggeringByCard() bool {
	sw2 := sw.SW2()
	if sw2 < 0x02 || sw2 > 0x80 {
		return false
	}
	return sw.SW1() == 0x62 || sw.SW1() == 0x64
}

// IsCounter checks if the status carries a retry counter ('63CX').
func (sw StatusWord) IsCounter() bool {
	return sw.SW1() == 0x63 && bits.High(sw.SW2()) == 0x0C
}

// ResponseAvailable returns the number of bytes waiting for GET RESPONSE ('61XX' or '9FXX').
func (sw StatusWord) ResponseAvailable() (int, bool) {
	switch sw.SW1() {
	case 0x61, 0x9F:
		return decodeShortLe(sw.SW2()), true
	}
	return 0, false
}

// IsSuccess returns true for normal endings: '9000', '61XX', '9FXX', '91XX' and '920X'.
func (sw StatusWord) IsSuccess() bool {
	switch sw.SW1() {
	case 0x61, 0x9F, 0x91:
		return true
	case 0x92:
		return bits.High(sw.SW2()) == 0
	}
	return sw == SW_NO_ERROR
}

// IsWarning returns true if the status indicates a warning (62XX or 63XX).
func (sw StatusWord) IsWarning() bool {
	sw1 := sw.SW1()
	return sw1 == 0x62 || sw1 == 0x63
}

// IsError returns true for execution and checking errors: '64XX' to '6FXX' and the
// GSM '9240', '94XX' and '98XX' families.
func (sw StatusWord) IsError() bool {
	sw1 := sw.SW1()
	switch {
	case sw1 >= 0x64 && sw1 <= 0x6F:
		return true
	case sw1 == 0x94 || sw1 == 0x98:
		return true
	case sw == SW_ERR_MEMORY_PROBLEM:
		return true
	}
	return false
}

// IsFileNotFound reports the "file not found" status of either dialect.
func (sw StatusWord) IsFileNotFound() bool {
	return sw == SW_ERR_FILE_NOT_FOUND || sw == SW_ERR_FILE_ID_NOT_FOUND
}

// IsSecurityError reports that an access condition was not fulfilled.
func (sw StatusWord) IsSecurityError() bool {
	return sw.SW1() == 0x98 || sw == SW_ERR_SECURITY_STATUS_NOT_SAT || sw == SW_ERR_AUTH_METHOD_BLOCKED
}

// Verbose returns a human-readable description of the status word.
// Dynamic definitions take precedence over the names table.
func (sw StatusWord) Verbose() string {
	sw1, sw2 := sw.SW1(), sw.SW2()

	if sw.IsTriggeringByCard() {
		action := "Warning (Triggering)"
		if sw1 == 0x64 {
			action = "Error/Abort (Triggering)"
		}
		return fmt.Sprintf("%s: Card expects query of %d bytes", action, sw2)
	}

	if sw.IsCounter() {
		return fmt.Sprintf("Warning: State changed, counter = %d", bits.Low(sw2))
	}

	if n, ok := sw.ResponseAvailable(); ok {
		return fmt.Sprintf("Process completed, %d bytes available", n)
	}

	switch sw1 {
	case 0x6C:
		return fmt.Sprintf("Wrong length, correct Le is %d", sw2)
	case 0x91:
		return fmt.Sprintf("Process completed, proactive command of %d bytes pending", sw2)
	case 0x92:
		if bits.High(sw2) == 0 {
			return fmt.Sprintf("Process completed after %d retries", sw2)
		}
	}

	if name, ok := swNames[sw]; ok {
		return fmt.Sprintf("[%04X] %s", uint16(sw), name)
	}
	return fmt.Sprintf("[%04X] %s", uint16(sw), sw.genericCategoryDescription())
}

func (sw StatusWord) String() string {
	if name, ok := swNames[sw]; ok {
		return name
	}
	return fmt.Sprintf("StatusWord(0x%04X)", uint16(sw))
}

// genericCategoryDescription provides a fallback description based on SW1.
func (sw StatusWord) genericCategoryDescription() string {
	switch sw.SW1() {
	case 0x62:
		return "Warning: NV memory unchanged"
	case 0x63:
		return "Warning: NV memory changed"
	case 0x64:
		return "Execution Error: NV memory unchanged"
	case 0x65:
		return "Execution Error: NV memory changed"
	case 0x67:
		return "Checking Error: Incorrect P3"
	case 0x68:
		return "Checking Error: Function not supported"
	case 0x69:
		return "Checking Error: Command not allowed"
	case 0x6A:
		return "Checking Error: Wrong parameters"
	case 0x94:
		return "GSM Error: File or record reference"
	case 0x98:
		return "GSM Error: Security management"
	default:
		return "Unknown Status"
	}
}

// Status words of GSM 11.11 and ETSI TS 102 221.
const (
	SW_NO_ERROR StatusWord = 0x9000

	SW_WARN_NO_INFO            StatusWord = 0x6200
	SW_WARN_TRIGGERING_BY_CARD StatusWord = 0x6202
	SW_WARN_DATA_CORRUPTED     StatusWord = 0x6281
	SW_WARN_EOF_REACHED        StatusWord = 0x6282
	SW_WARN_FILE_DEACTIVATED   StatusWord = 0x6283
	SW_WARN_FCI_BAD_FORMAT     StatusWord = 0x6284
	SW_WARN_NV_CHANGED_NO_INFO StatusWord = 0x6300
	SW_WARN_FILE_FILLED        StatusWord = 0x6381
	SW_WARN_COUNTER_0          StatusWord = 0x63C0

	SW_ERR_MEMORY_PROBLEM StatusWord = 0x9240

	SW_ERR_NO_EF_SELECTED    StatusWord = 0x9400
	SW_ERR_OUT_OF_RANGE      StatusWord = 0x9402
	SW_ERR_FILE_ID_NOT_FOUND StatusWord = 0x9404
	SW_ERR_FILE_INCONSISTENT StatusWord = 0x9408

	SW_ERR_NO_CHV_INITIALIZED         StatusWord = 0x9802
	SW_ERR_ACCESS_NOT_FULFILLED       StatusWord = 0x9804
	SW_ERR_CHV_CONTRADICTION          StatusWord = 0x9808
	SW_ERR_INVALIDATION_CONTRADICTION StatusWord = 0x9810
	SW_ERR_CHV_BLOCKED                StatusWord = 0x9840
	SW_ERR_MAX_VALUE_REACHED          StatusWord = 0x9850

	SW_ERR_EXEC_NO_INFO            StatusWord = 0x6400
	SW_ERR_MEMORY_FAILURE          StatusWord = 0x6581
	SW_ERR_WRONG_LENGTH            StatusWord = 0x6700
	SW_ERR_CHANNEL_NOT_SUPP        StatusWord = 0x6881
	SW_ERR_SM_NOT_SUPP             StatusWord = 0x6882
	SW_ERR_INCOMPATIBLE_FILE       StatusWord = 0x6981
	SW_ERR_SECURITY_STATUS_NOT_SAT StatusWord = 0x6982
	SW_ERR_AUTH_METHOD_BLOCKED     StatusWord = 0x6983
	SW_ERR_REF_DATA_INVALIDATED    StatusWord = 0x6984
	SW_ERR_COND_OF_USE_NOT_SAT     StatusWord = 0x6985
	SW_ERR_NO_EF_SELECTED_ISO      StatusWord = 0x6986

	SW_ERR_INCORRECT_PARAMS_DATA StatusWord = 0x6A80
	SW_ERR_FUNC_NOT_SUPPORTED    StatusWord = 0x6A81
	SW_ERR_FILE_NOT_FOUND        StatusWord = 0x6A82
	SW_ERR_RECORD_NOT_FOUND      StatusWord = 0x6A83
	SW_ERR_NOT_ENOUGH_MEMORY     StatusWord = 0x6A84
	SW_ERR_INCORRECT_PARAMS_P1P2 StatusWord = 0x6A86
	SW_ERR_REF_DATA_NOT_FOUND    StatusWord = 0x6A88

	SW_ERR_WRONG_P1P2        StatusWord = 0x6B00
	SW_ERR_INS_INVALID       StatusWord = 0x6D00
	SW_ERR_CLA_NOT_SUPPORTED StatusWord = 0x6E00
	SW_ERR_UNKNOWN           StatusWord = 0x6F00
)

var swNames = map[StatusWord]string{
	SW_NO_ERROR:                       "SW_NO_ERROR",
	SW_WARN_NO_INFO:                   "SW_WARN_NO_INFO",
	SW_WARN_TRIGGERING_BY_CARD:        "SW_WARN_TRIGGERING_BY_CARD",
	SW_WARN_DATA_CORRUPTED:            "SW_WARN_DATA_CORRUPTED",
	SW_WARN_EOF_REACHED:               "SW_WARN_EOF_REACHED",
	SW_WARN_FILE_DEACTIVATED:          "SW_WARN_FILE_DEACTIVATED",
	SW_WARN_FCI_BAD_FORMAT:            "SW_WARN_FCI_BAD_FORMAT",
	SW_WARN_NV_CHANGED_NO_INFO:        "SW_WARN_NV_CHANGED_NO_INFO",
	SW_WARN_FILE_FILLED:               "SW_WARN_FILE_FILLED",
	SW_WARN_COUNTER_0:                 "SW_WARN_COUNTER_0",
	SW_ERR_MEMORY_PROBLEM:             "SW_ERR_MEMORY_PROBLEM",
	SW_ERR_NO_EF_SELECTED:             "SW_ERR_NO_EF_SELECTED",
	SW_ERR_OUT_OF_RANGE:               "SW_ERR_OUT_OF_RANGE",
	SW_ERR_FILE_ID_NOT_FOUND:          "SW_ERR_FILE_ID_NOT_FOUND",
	SW_ERR_FILE_INCONSISTENT:          "SW_ERR_FILE_INCONSISTENT",
	SW_ERR_NO_CHV_INITIALIZED:         "SW_ERR_NO_CHV_INITIALIZED",
	SW_ERR_ACCESS_NOT_FULFILLED:       "SW_ERR_ACCESS_NOT_FULFILLED",
	SW_ERR_CHV_CONTRADICTION:          "SW_ERR_CHV_CONTRADICTION",
	SW_ERR_INVALIDATION_CONTRADICTION: "SW_ERR_INVALIDATION_CONTRADICTION",
	SW_ERR_CHV_BLOCKED:                "SW_ERR_CHV_BLOCKED",
	SW_ERR_MAX_VALUE_REACHED:          "SW_ERR_MAX_VALUE_REACHED",
	SW_ERR_EXEC_NO_INFO:               "SW_ERR_EXEC_NO_INFO",
	SW_ERR_MEMORY_FAILURE:             "SW_ERR_MEMORY_FAILURE",
	SW_ERR_WRONG_LENGTH:               "SW_ERR_WRONG_LENGTH",
	SW_ERR_CHANNEL_NOT_SUPP:           "SW_ERR_CHANNEL_NOT_SUPP",
	SW_ERR_SM_NOT_SUPP:                "SW_ERR_SM_NOT_SUPP",
	SW_ERR_INCOMPATIBLE_FILE:          "SW_ERR_INCOMPATIBLE_FILE",
	SW_ERR_SECURITY_STATUS_NOT_SAT:    "SW_ERR_SECURITY_STATUS_NOT_SAT",
	SW_ERR_AUTH_METHOD_BLOCKED:        "SW_ERR_AUTH_METHOD_BLOCKED",
	SW_ERR_REF_DATA_INVALIDATED:       "SW_ERR_REF_DATA_INVALIDATED",
	SW_ERR_COND_OF_USE_NOT_SAT:        "SW_ERR_COND_OF_USE_NOT_SAT",
	SW_ERR_NO_EF_SELECTED_ISO:         "SW_ERR_NO_EF_SELECTED_ISO",
	SW_ERR_INCORRECT_PARAMS_DATA:      "SW_ERR_INCORRECT_PARAMS_DATA",
	SW_ERR_FUNC_NOT_SUPPORTED:         "SW_ERR_FUNC_NOT_SUPPORTED",
	SW_ERR_FILE_NOT_FOUND:             "SW_ERR_FILE_NOT_FOUND",
	SW_ERR_RECORD_NOT_FOUND:           "SW_ERR_RECORD_NOT_FOUND",
	SW_ERR_NOT_ENOUGH_MEMORY:          "SW_ERR_NOT_ENOUGH_MEMORY",
	SW_ERR_INCORRECT_PARAMS_P1P2:      "SW_ERR_INCORRECT_PARAMS_P1P2",
	SW_ERR_REF_DATA_NOT_FOUND:         "SW_ERR_REF_DATA_NOT_FOUND",
	SW_ERR_WRONG_P1P2:                 "SW_ERR_WRONG_P1P2",
	SW_ERR_INS_INVALID:                "SW_ERR_INS_INVALID",
	SW_ERR_CLA_NOT_SUPPORTED:          "SW_ERR_CLA_NOT_SUPPORTED",
	SW_ERR_UNKNOWN:                    "SW_ERR_UNKNOWN",
}
