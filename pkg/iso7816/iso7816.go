/*
Package iso7816 implements the command layer used to talk to SIM and USIM cards.

Two dialects share the ISO/IEC 7816-4 framing:

  - GSM 11.11 / TS 51.011 (2G SIM): class byte 'A0'. The card answers '9F XX' when a
    response of XX bytes is waiting, and a SELECT returns the fixed-layout file header.
  - ETSI TS 102 221 (UICC / USIM): interindustry class '00'. The card answers '61 XX'
    and a SELECT returns an FCP template (tag '62').

# Fundamentals

The communication with a card is strictly synchronous:
 1. The host sends a Command APDU (header + optional body).
 2. The card processes it and returns a Response APDU (optional body + SW1/SW2).

# Status Words

Every response ends with a 2-byte Status Word (SW).
  - 0x9000: Success.
  - 0x61XX / 0x9FXX: Success, XX response bytes to fetch with GET RESPONSE.
  - 0x6CXX: Wrong Le, XX is the correct length.
  - 0x94XX / 0x98XX: GSM file and security errors.

The Client hides these transport details and returns a Trace of every exchange.

# Usage Example: Reading EF_SPN on a 2G SIM

	client := iso7816.NewClient(card)
	cla := iso7816.GSMClass()

	for _, fid := range []uint16{0x3F00, 0x7F20, 0x6F46} {
	    trace, err := client.Send(iso7816.SelectFile(cla, fid))
	    if err != nil || !trace.IsSuccess() {
	        return fmt.Errorf("select %04X failed", fid)
	    }
	    if fid == 0x6F46 {
	        result, _ := iso7816.NewSelectResult(trace)
	        info, err := result.FileInfo()
	        ...
	    }
	}

	trace, err := client.Send(iso7816.ReadBinary(cla, 0, int(info.FileLength)))
	spn := trace.Data()
*/
package iso7816
