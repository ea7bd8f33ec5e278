package regmap

import "testing"

func TestRoundTripAllKinds(t *testing.T) {
	m := New(0, 100)
	cases := []struct {
		name string
		addr uint32
		v    Value
	}{
		{"i16", 0, I16(-1234)},
		{"u16", 2, U16(0xBEEF)},
		{"i32", 4, I32(-123456789)},
		{"u32", 8, U32(0xCAFEBABE)},
		{"f32", 12, F32(3.14159)},
		{"u64", 16, U64(0x1122334455667788)},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if err := m.Set(c.addr, c.v); err != nil {
				t.Fatalf("Set: %v", err)
			}
			got, err := m.Get(c.addr, c.v.Kind())
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if got != c.v {
				t.Fatalf("round trip mismatch: got %+v want %+v", got, c.v)
			}
		})
	}
}

func TestWordEndianness(t *testing.T) {
	m := New(0, 10)
	if err := m.Set(0, U32(0xAABBCCDD)); err != nil {
		t.Fatal(err)
	}
	lo, err := m.GetRaw(0)
	if err != nil {
		t.Fatal(err)
	}
	hi, err := m.GetRaw(1)
	if err != nil {
		t.Fatal(err)
	}
	if lo != 0xCCDD {
		t.Fatalf("low word = %#x, want 0xCCDD", lo)
	}
	if hi != 0xAABB {
		t.Fatalf("high word = %#x, want 0xAABB", hi)
	}
}

func TestOutOfRange(t *testing.T) {
	m := New(100, 10)
	if _, err := m.Get(5, KindU16); err == nil {
		t.Fatal("expected out-of-range error for address below start")
	}
	if _, err := m.Get(109, KindU32); err == nil {
		t.Fatal("expected out-of-range error when the value overruns the map")
	}
	if err := m.Set(100, U16(1)); err != nil {
		t.Fatalf("Set at start should succeed: %v", err)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	m := New(0, 4)
	_ = m.Set(0, U16(7))
	snap := m.Snapshot()
	_ = m.Set(0, U16(99))
	if snap[0] != 7 {
		t.Fatalf("snapshot mutated by later write: got %d", snap[0])
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/regmap.bin"

	m := New(0, 20)
	_ = m.Set(0, U32(0x12345678))
	_ = m.Set(4, I16(-42))
	if err := m.SaveToDisk(path); err != nil {
		t.Fatalf("SaveToDisk: %v", err)
	}

	m2 := New(0, 20)
	if err := m2.LoadFromDisk(path); err != nil {
		t.Fatalf("LoadFromDisk: %v", err)
	}
	got, _ := m2.Get(0, KindU32)
	if v, _ := got.AsU32(); v != 0x12345678 {
		t.Fatalf("loaded u32 = %#x", v)
	}
}

func TestLoadFromDiskMissingFileIsNotError(t *testing.T) {
	m := New(0, 4)
	if err := m.LoadFromDisk("/nonexistent/path/regmap.bin"); err != nil {
		t.Fatalf("missing file should not be an error, got %v", err)
	}
}
