package sim

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gregLibert/sim-card/pkg/tlv"
)

var (
	pnnOrange = tlv.Hex("43 07 80 4F72616E6765", "FFFF")
	pnnSFR    = tlv.Hex("43 04 80 534652", "45 03 88 5346", "FF")
	pnnFree   = tlv.Hex("43 05 80 46726565", "80 04 4D6F6269")
)

func newTestEONS(t *testing.T, pnn [][]byte, opl ...[]byte) *EONS {
	t.Helper()

	eons := NewEONS(len(pnn))
	for i, rec := range pnn {
		if err := eons.AddPNNRecord(i+1, rec); err != nil {
			t.Fatalf("AddPNNRecord(%d) error: %v", i+1, err)
		}
	}
	for _, rec := range opl {
		if err := eons.AddOPLRecord(rec); err != nil {
			t.Fatalf("AddOPLRecord(%X) error: %v", rec, err)
		}
	}
	eons.Optimize()
	return eons
}

func TestEONS_Lookup(t *testing.T) {
	eons := newTestEONS(t, [][]byte{pnnOrange},
		tlv.Hex("02F810 0000 FFFE 01"),
	)

	got := eons.Lookup("208", "01")
	if got == nil {
		t.Fatal("Lookup(208, 01) = nil")
	}
	if diff := cmp.Diff(OperatorInfo{LongName: "Orange"}, *got); diff != "" {
		t.Errorf("Lookup mismatch (-want +got):\n%s", diff)
	}

	if eons.Lookup("208", "10") != nil {
		t.Error("Lookup(208, 10) should miss")
	}
	if eons.LookupWithLAC("208", "01", 0x1234) == nil {
		t.Error("LookupWithLAC should accept any LAC on a match-all entry")
	}
}

func TestEONS_Wildcard(t *testing.T) {
	eons := newTestEONS(t, [][]byte{pnnOrange},
		tlv.Hex("DDFDDD 0000 FFFE 01"),
	)

	for _, op := range []Operator{{"208", "01"}, {"310", "26"}, {"001", "01"}} {
		if eons.Lookup(op.MCC, op.MNC) == nil {
			t.Errorf("wildcard entry should match %s", op)
		}
	}
	for _, op := range []Operator{{"310", "410"}, {"208", "150"}} {
		if got := eons.Lookup(op.MCC, op.MNC); got != nil {
			t.Errorf("two-digit wildcard MNC should not match %s, got %+v", op, got)
		}
	}
}

func TestEONS_LACRange(t *testing.T) {
	eons := newTestEONS(t, [][]byte{pnnOrange, pnnSFR},
		tlv.Hex("02F810 0100 0200 01"),
		tlv.Hex("02F810 0000 FFFE 02"),
	)

	tests := []struct {
		name   string
		lac    *uint16
		wantLN string
	}{
		{"No LAC Skips Ranged Entry", nil, "SFR"},
		{"LAC In Range", ptr(uint16(0x0150)), "Orange"},
		{"LAC On Low Bound", ptr(uint16(0x0100)), "Orange"},
		{"LAC On High Bound", ptr(uint16(0x0200)), "Orange"},
		{"LAC Out Of Range", ptr(uint16(0x0300)), "SFR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got *OperatorInfo
			if tt.lac == nil {
				got = eons.Lookup("208", "01")
			} else {
				got = eons.LookupWithLAC("208", "01", *tt.lac)
			}
			if got == nil || got.LongName != tt.wantLN {
				t.Errorf("lookup = %+v, want long name %q", got, tt.wantLN)
			}
		})
	}
}

func TestEONS_ExplicitNoName(t *testing.T) {
	eons := newTestEONS(t, [][]byte{pnnOrange},
		tlv.Hex("02F810 0000 FFFE 00"),
		tlv.Hex("02F810 0000 FFFE 01"),
	)

	if got := eons.Lookup("208", "01"); got != nil {
		t.Errorf("first matching entry has no name, got %+v", got)
	}
}

func TestEONS_OptimizeRestoresFileOrder(t *testing.T) {
	eons := NewEONS(3)
	for i, rec := range [][]byte{pnnOrange, pnnSFR, pnnFree} {
		if err := eons.AddPNNRecord(i+1, rec); err != nil {
			t.Fatalf("AddPNNRecord error: %v", err)
		}
	}

	for _, rec := range [][]byte{
		tlv.Hex("02F810 0000 FFFE 01"),
		tlv.Hex("02F810 0000 FFFE 02"),
		tlv.Hex("02F810 0000 FFFE 03"),
	} {
		if err := eons.AddOPLRecord(rec); err != nil {
			t.Fatalf("AddOPLRecord error: %v", err)
		}
	}

	if got := eons.Lookup("208", "01"); got == nil || got.LongName != "Free" {
		t.Errorf("before Optimize, last loaded record should win, got %+v", got)
	}

	eons.Optimize()

	var ids []uint8
	for _, rec := range eons.OPL() {
		ids = append(ids, rec.PNNID)
	}
	if diff := cmp.Diff([]uint8{1, 2, 3}, ids); diff != "" {
		t.Errorf("OPL order mismatch (-want +got):\n%s", diff)
	}
	if got := eons.Lookup("208", "01"); got == nil || got.LongName != "Orange" {
		t.Errorf("after Optimize, first file record should win, got %+v", got)
	}
}

func TestEONS_AddOPLRecord(t *testing.T) {
	eons := NewEONS(1)

	if err := eons.AddOPLRecord(tlv.Hex("02F810 0000")); !errors.Is(err, ErrMalformed) {
		t.Errorf("short record error = %v, want ErrMalformed", err)
	}
	if err := eons.AddOPLRecord(tlv.Hex("02F810 0000 FFFE 05")); err != nil {
		t.Errorf("out of table record should be dropped silently, got %v", err)
	}
	if n := eons.OPLCount(); n != 0 {
		t.Errorf("OPL holds %d records, want 0", n)
	}
}

func TestEONS_AddPNNRecord(t *testing.T) {
	eons := NewEONS(2)
	if !eons.PNNIsEmpty() {
		t.Fatal("new table must be empty")
	}

	t.Run("Out Of Range", func(t *testing.T) {
		for _, n := range []int{0, 3, -1} {
			if err := eons.AddPNNRecord(n, pnnOrange); !errors.Is(err, ErrRecordOutOfRange) {
				t.Errorf("AddPNNRecord(%d) error = %v, want ErrRecordOutOfRange", n, err)
			}
		}
	})

	t.Run("Undecodable Name Keeps Table Empty", func(t *testing.T) {
		if err := eons.AddPNNRecord(1, tlv.Hex("43 02 A0 41")); err != nil {
			t.Fatalf("AddPNNRecord error: %v", err)
		}
		if !eons.PNNIsEmpty() {
			t.Error("a record without decodable names must not validate the table")
		}
	})

	t.Run("All Fields", func(t *testing.T) {
		if err := eons.AddPNNRecord(2, pnnSFR); err != nil {
			t.Fatalf("AddPNNRecord error: %v", err)
		}
		if eons.PNNIsEmpty() {
			t.Error("table should be valid")
		}
		got, ok := eons.PNN(2)
		want := OperatorInfo{LongName: "SFR", ShortName: "SF", ShortCI: true}
		if !ok {
			t.Fatal("PNN(2) missing")
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("PNN(2) mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("Additional Info", func(t *testing.T) {
		if err := eons.AddPNNRecord(1, pnnFree); err != nil {
			t.Fatalf("AddPNNRecord error: %v", err)
		}
		got, _ := eons.PNN(1)
		if got.Info != "Mobi" {
			t.Errorf("Info = %q, want Mobi", got.Info)
		}
	})
}

func TestBuildPNN_RoundTrip(t *testing.T) {
	infos := []OperatorInfo{
		{LongName: "Orange"},
		{LongName: "Bouygues Telecom", ShortName: "BYTEL", ShortCI: true, Info: "4G"},
		{LongName: "中国移动", LongCI: true},
	}

	for _, want := range infos {
		t.Run(want.LongName, func(t *testing.T) {
			rec, err := BuildPNN(want)
			if err != nil {
				t.Fatalf("BuildPNN error: %v", err)
			}

			eons := NewEONS(1)
			if err := eons.AddPNNRecord(1, rec); err != nil {
				t.Fatalf("AddPNNRecord error: %v", err)
			}
			got, _ := eons.PNN(1)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEONS_Describe(t *testing.T) {
	eons := newTestEONS(t, [][]byte{pnnOrange},
		tlv.Hex("02F810 0000 FFFE 01"),
	)

	want := []string{
		"=== OPERATOR NAMES (PNN) ===",
		"  > Record 1",
		`    - Long Name: "Orange" (CI: false)`,
		"=== OPERATOR PLMN LIST (OPL) ===",
		"    - PLMN 208-01 LAC 0000-FFFE -> PNN 1",
	}
	if diff := cmp.Diff(want, strings.Split(eons.Describe(), "\n")); diff != "" {
		t.Errorf("Describe mismatch (-want +got):\n%s", diff)
	}
}

func ptr[T any](v T) *T { return &v }
