package simfs

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gregLibert/sim-card/pkg/iso7816"
	"github.com/gregLibert/sim-card/pkg/sim"
	"github.com/gregLibert/sim-card/pkg/tlv"
	"go.uber.org/zap/zaptest"
)

var (
	usimAID = tlv.Hex("A0000000871002FF33FF018900000100")

	pnnOrange = tlv.Hex("43 07 80 4F72616E6765", "FFFFFF")
	pnnSFR    = tlv.Hex("43 04 80 534652", "45 03 88 5346", "FF")
)

func pad(data []byte, size int) []byte {
	return append(bytes.Clone(data), bytes.Repeat([]byte{0xFF}, size-len(data))...)
}

func mustADN(t *testing.T, number sim.PhoneNumber, name string) []byte {
	t.Helper()
	rec, err := sim.BuildADN(28, number, name)
	if err != nil {
		t.Fatalf("BuildADN() error: %v", err)
	}
	return rec
}

// testFiles lays out a card with the subscriber files under their 2G parents.
// On a UICC the DF_GSM files live in the USIM application.
func testFiles(t *testing.T, gen Generation) map[uint16]*fakeEF {
	gsmParent := sim.FileDFGSM
	if gen == Generation3G {
		gsmParent = sim.FileCurrentADF
	}

	broken := mustADN(t, sim.PhoneNumber{Number: "112"}, "Bob")
	broken[len(broken)-sim.ADNFooterLength] = 0x0C

	return map[uint16]*fakeEF{
		sim.EFDir: {parent: sim.FileMF, records: [][]byte{
			pad(tlv.Hex("61 18 4F 10", "A0000000871004FF49FF0189000001FF", "50 04 4953494D"), 32),
			pad(tlv.Hex("61 18 4F 10", "A0000000871002FF33FF018900000100", "50 04 5553494D"), 32),
			pad(nil, 32),
		}},
		sim.EFICCID: {parent: sim.FileMF, data: tlv.Hex("98 33 01 00 00 00 21 43 65 F7")},
		sim.EFIMSI:  {parent: gsmParent, data: tlv.Hex("08 29 80 10 21 43 65 87 09")},
		sim.EFSPN:   {parent: gsmParent, data: pad(tlv.Hex("01 4F72616E6765"), 17)},
		sim.EFSPDI:  {parent: gsmParent, data: tlv.Hex("A3 0B", "80 09 130014 02F810 FFFFFF")},
		sim.EFPNN:   {parent: gsmParent, records: [][]byte{pnnOrange, pnnSFR}},
		sim.EFOPL: {parent: gsmParent, records: [][]byte{
			tlv.Hex("02F810 0000 FFFE 01"),
			tlv.Hex("02F801 0100 01FF 02"),
			tlv.Hex("0FF810 0000 FFFE 01"),
			tlv.Hex("FFFFFF FFFF FFFF FF"),
		}},
		sim.EFADN: {parent: sim.FileDFTelecom, records: [][]byte{
			mustADN(t, sim.PhoneNumber{Number: "33612345678", Type: sim.TypeInternational}, "Alice"),
			pad(nil, 28),
			broken,
			mustADN(t, sim.PhoneNumber{Number: "0612345678", Type: sim.TypeUnknown}, "Carol"),
		}},
	}
}

func newTestReader(t *testing.T, gen Generation) (*Reader, *fakeCard) {
	t.Helper()
	card := newFakeCard(gen, testFiles(t, gen))
	card.usimAID = usimAID
	return NewReader(card, gen, WithLogger(zaptest.NewLogger(t).Sugar())), card
}

func TestParseGeneration(t *testing.T) {
	tests := []struct {
		in      string
		want    Generation
		wantErr bool
	}{
		{"2g", Generation2G, false},
		{" 3G ", Generation3G, false},
		{"4g", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseGeneration(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseGeneration() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseGeneration() = %v, want %v", got, tt.want)
			}
		})
	}

	if s := Generation(5).String(); s != "Generation(5)" {
		t.Errorf("String() = %q", s)
	}
}

func TestReader_Path(t *testing.T) {
	tests := []struct {
		name    string
		gen     Generation
		id      uint16
		want    []uint16
		wantErr bool
	}{
		{"ICCID under MF", Generation2G, sim.EFICCID, nil, false},
		{"ADN under DF_TELECOM", Generation2G, sim.EFADN, []uint16{0x7F10}, false},
		{"SPN under DF_GSM", Generation2G, sim.EFSPN, []uint16{0x7F20}, false},
		{"SPN under the USIM", Generation3G, sim.EFSPN, []uint16{0x7FFF}, false},
		{"USIM only file on 3G", Generation3G, 0x6F06, []uint16{0x7FFF}, false},
		{"USIM only file on 2G", Generation2G, 0x6F06, nil, true},
		{"Unknown file", Generation3G, 0x6F99, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReader(newFakeCard(tt.gen, nil), tt.gen, WithLogger(zaptest.NewLogger(t).Sugar()))
			got, err := r.Path(tt.id)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Path() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, sim.ErrNotFound) {
					t.Errorf("expected sim.ErrNotFound, got %v", err)
				}
				return
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Path() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestReader_CommandSequence(t *testing.T) {
	t.Run("2G walks down from the MF", func(t *testing.T) {
		r, card := newTestReader(t, Generation2G)
		if _, err := r.ReadSPN(); err != nil {
			t.Fatalf("ReadSPN() error: %v", err)
		}
		want := []string{
			"A0A40000023F00", "A0C000000E",
			"A0A40000027F20", "A0C000000E",
			"A0A40000026F46", "A0C000000E",
			"A0B0000011",
		}
		if diff := cmp.Diff(want, card.sent); diff != "" {
			t.Errorf("sent commands mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("3G activates the USIM once", func(t *testing.T) {
		r, card := newTestReader(t, Generation3G)
		if _, err := r.ReadSPN(); err != nil {
			t.Fatalf("ReadSPN() error: %v", err)
		}
		if _, err := r.ReadIMSI(); err != nil {
			t.Fatalf("ReadIMSI() error: %v", err)
		}

		var selects []string
		for _, cmd := range card.sent {
			if cmd[2:4] == "A4" {
				selects = append(selects, cmd)
			}
		}
		want := []string{
			"00A40804022F00",
			"00A4040410" + "A0000000871002FF33FF018900000100",
			"00A40804047FFF6F46",
			"00A40804047FFF6F07",
		}
		if diff := cmp.Diff(want, selects); diff != "" {
			t.Errorf("SELECT commands mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestReader_Load(t *testing.T) {
	for _, gen := range []Generation{Generation2G, Generation3G} {
		t.Run(gen.String(), func(t *testing.T) {
			r, _ := newTestReader(t, gen)

			iccid, err := r.ReadICCID()
			if err != nil {
				t.Fatalf("ReadICCID() error: %v", err)
			}
			if iccid != "8933100000001234567" {
				t.Errorf("ReadICCID() = %q", iccid)
			}

			imsi, err := r.ReadIMSI()
			if err != nil {
				t.Fatalf("ReadIMSI() error: %v", err)
			}
			if imsi != "208011234567890" {
				t.Errorf("ReadIMSI() = %q", imsi)
			}

			spn, err := r.ReadSPN()
			if err != nil {
				t.Fatalf("ReadSPN() error: %v", err)
			}
			if diff := cmp.Diff(sim.ServiceProviderName{Name: "Orange", DisplayCondition: 1}, *spn); diff != "" {
				t.Errorf("ReadSPN() mismatch (-want +got):\n%s", diff)
			}

			spdi, err := r.LoadSPDI()
			if err != nil {
				t.Fatalf("LoadSPDI() error: %v", err)
			}
			if diff := cmp.Diff([]sim.Operator{{MCC: "208", MNC: "01"}, {MCC: "310", MNC: "410"}}, spdi.Operators()); diff != "" {
				t.Errorf("SPDI mismatch (-want +got):\n%s", diff)
			}

			eons, err := r.LoadEONS()
			if err != nil {
				t.Fatalf("LoadEONS() error: %v", err)
			}
			if eons.OPLCount() != 2 {
				t.Errorf("OPLCount() = %d, want 2", eons.OPLCount())
			}
			if got := eons.Lookup("208", "01"); got == nil || got.LongName != "Orange" {
				t.Errorf("Lookup(208, 01) = %+v", got)
			}
			if got := eons.LookupWithLAC("208", "10", 0x0150); got == nil || got.ShortName != "SF" {
				t.Errorf("LookupWithLAC(208, 10, 0150) = %+v", got)
			}
			if got := eons.LookupWithLAC("208", "10", 0x0200); got != nil {
				t.Errorf("LookupWithLAC(208, 10, 0200) = %+v, want nil", got)
			}

			adn, err := r.LoadADN()
			if err != nil {
				t.Fatalf("LoadADN() error: %v", err)
			}
			want := []sim.ADN{
				{Number: sim.PhoneNumber{Number: "33612345678", Type: sim.TypeInternational}, Identifier: "Alice"},
				{Number: sim.PhoneNumber{Number: "0612345678", Type: sim.TypeUnknown}, Identifier: "Carol"},
			}
			if diff := cmp.Diff(want, adn); diff != "" {
				t.Errorf("LoadADN() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestReader_LoadEONSWithoutOPL(t *testing.T) {
	card := newFakeCard(Generation2G, map[uint16]*fakeEF{
		sim.EFPNN: {parent: sim.FileDFGSM, records: [][]byte{pnnOrange}},
	})
	r := NewReader(card, Generation2G, WithLogger(zaptest.NewLogger(t).Sugar()))

	eons, err := r.LoadEONS()
	if err != nil {
		t.Fatalf("LoadEONS() error: %v", err)
	}
	if eons.OPLCount() != 0 || eons.PNNIsEmpty() {
		t.Errorf("OPLCount() = %d, PNNIsEmpty() = %t", eons.OPLCount(), eons.PNNIsEmpty())
	}
	if info, ok := eons.PNN(1); !ok || info.LongName != "Orange" {
		t.Errorf("PNN(1) = %+v, %t", info, ok)
	}
}

func TestReader_Errors(t *testing.T) {
	t.Run("Missing File", func(t *testing.T) {
		r, _ := newTestReader(t, Generation2G)
		_, err := r.LoadMSISDN()
		if !IsNotFound(err) {
			t.Fatalf("LoadMSISDN() error = %v, want file not found", err)
		}
		var se *StatusError
		if !errors.As(err, &se) || se.File != sim.EFMSISDN || se.Status != iso7816.SW_ERR_FILE_ID_NOT_FOUND {
			t.Errorf("StatusError = %+v", se)
		}
	})

	t.Run("Access Denied", func(t *testing.T) {
		files := testFiles(t, Generation3G)
		files[sim.EFIMSI].locked = true
		card := newFakeCard(Generation3G, files)
		card.usimAID = usimAID
		r := NewReader(card, Generation3G, WithLogger(zaptest.NewLogger(t).Sugar()))

		_, err := r.ReadIMSI()
		var se *StatusError
		if !errors.As(err, &se) || !se.Status.IsSecurityError() {
			t.Fatalf("ReadIMSI() error = %v, want security status", err)
		}
		if IsNotFound(err) {
			t.Error("IsNotFound() = true for an access error")
		}
	})

	t.Run("No USIM", func(t *testing.T) {
		card := newFakeCard(Generation3G, testFiles(t, Generation3G))
		card.files[sim.EFDir].records = card.files[sim.EFDir].records[:1]
		r := NewReader(card, Generation3G, WithLogger(zaptest.NewLogger(t).Sugar()))

		if _, err := r.ReadSPN(); !errors.Is(err, sim.ErrNotFound) {
			t.Errorf("ReadSPN() error = %v, want sim.ErrNotFound", err)
		}
	})

	t.Run("Wrong Structure", func(t *testing.T) {
		r, _ := newTestReader(t, Generation2G)
		if _, err := r.ReadRecords(sim.EFSPN); err == nil {
			t.Error("ReadRecords() on a transparent file should fail")
		}
		if _, err := r.ReadBinary(sim.EFADN); err == nil {
			t.Error("ReadBinary() on a record file should fail")
		}
	})
}

func TestReader_ReadRecord(t *testing.T) {
	r, _ := newTestReader(t, Generation3G)

	got, err := r.ReadRecord(sim.EFOPL, 2)
	if err != nil {
		t.Fatalf("ReadRecord() error: %v", err)
	}
	if diff := cmp.Diff(tlv.Hex("02F801 0100 01FF 02"), got); diff != "" {
		t.Errorf("ReadRecord() mismatch (-want +got):\n%s", diff)
	}

	if _, err := r.ReadRecord(sim.EFOPL, 5); !errors.Is(err, sim.ErrRecordOutOfRange) {
		t.Errorf("ReadRecord(5) error = %v, want ErrRecordOutOfRange", err)
	}
}

func TestReader_ReadBinaryChunks(t *testing.T) {
	big := make([]byte, 300)
	for i := range big {
		big[i] = byte(i)
	}
	card := newFakeCard(Generation2G, map[uint16]*fakeEF{
		sim.EFSPDI: {parent: sim.FileDFGSM, data: big},
	})
	r := NewReader(card, Generation2G, WithLogger(zaptest.NewLogger(t).Sugar()))

	got, err := r.ReadBinary(sim.EFSPDI)
	if err != nil {
		t.Fatalf("ReadBinary() error: %v", err)
	}
	if diff := cmp.Diff(big, got); diff != "" {
		t.Errorf("ReadBinary() mismatch (-want +got):\n%s", diff)
	}

	reads := card.sent[len(card.sent)-2:]
	if diff := cmp.Diff([]string{"A0B0000000", "A0B001002C"}, reads); diff != "" {
		t.Errorf("READ BINARY commands mismatch (-want +got):\n%s", diff)
	}
}
