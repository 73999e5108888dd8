/*
Package sim decodes the contents of SIM / USIM elementary files (EF).

Everything in this package works on caller-owned byte buffers: it never talks to a
card and never logs. A file reader (see package simfs) fetches the raw bytes and
hands them over to the decoders below.

# Operator names

Network registration needs to turn a PLMN (MCC + MNC) and an optional location
area code into a human readable operator name. The SIM carries two sources:

  - EF_SPDI ('6FCD'): the PLMNs where the service provider name is displayed (SPDI).
  - EF_PNN ('6FC5') and EF_OPL ('6FC6'): operator names and the PLMN / LAC ranges
    they apply to (EONS).

	eons := sim.NewEONS(pnnRecordCount)
	for i, rec := range pnnRecords {
	    if err := eons.AddPNNRecord(i+1, rec); err != nil {
	        return err
	    }
	}
	for _, rec := range oplRecords {
	    _ = eons.AddOPLRecord(rec) // malformed records are dropped
	}
	eons.Optimize()

	if info := eons.LookupWithLAC("208", "01", 0x1234); info != nil {
	    fmt.Println(info.LongName)
	}

# File metadata

LookupEF gives the static access and structure attributes of the files the stack
knows about. Parse2GResponse and Parse3GResponse decode the answer to a SELECT
(GSM 11.11 "GET RESPONSE" layout or the ETSI TS 102 221 FCP template).

# Phonebook

ParseADN and BuildADN convert abbreviated dialing number records.
*/
package sim

import "errors"

var (
	// ErrMalformed is returned when the input bytes do not follow the expected layout.
	ErrMalformed = errors.New("sim: malformed data")

	// ErrRecordOutOfRange is returned when a record number falls outside the table capacity.
	ErrRecordOutOfRange = errors.New("sim: record number out of range")

	// ErrNotFound is returned when a mandatory TLV object is absent.
	ErrNotFound = errors.New("sim: not found")
)
