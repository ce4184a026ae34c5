package keyspace

import (
	"errors"
	"sort"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []struct {
		partition string
		segments  []string
	}{
		{"MSG", []string{"general", "2024-01-01T00:00:00.000000000Z"}},
		{"MSG", []string{"room-with-dash", "ts"}},
		{"USER", []string{"alice"}},
		{"USER", nil},
		{"TX", []string{""}},
	}

	for _, c := range cases {
		key, err := Encode(c.partition, c.segments...)
		if err != nil {
			t.Fatalf("Encode(%q, %v) error: %v", c.partition, c.segments, err)
		}

		partition, segments, err := Decode(key)
		if err != nil {
			t.Fatalf("Decode(%q) error: %v", key, err)
		}
		if partition != c.partition {
			t.Errorf("partition = %q, want %q", partition, c.partition)
		}
		if len(segments) != len(c.segments) {
			t.Fatalf("segments = %v, want %v", segments, c.segments)
		}
		for i := range segments {
			if segments[i] != c.segments[i] {
				t.Errorf("segment[%d] = %q, want %q", i, segments[i], c.segments[i])
			}
		}
	}
}

func TestEncodeRejectsDelimiter(t *testing.T) {
	if _, err := Encode("MSG", "room\x00sneaky"); !errors.Is(err, ErrInvalidSegment) {
		t.Errorf("segment with delimiter: err = %v, want ErrInvalidSegment", err)
	}
	if _, err := Encode("MSG\x00", "room"); !errors.Is(err, ErrInvalidSegment) {
		t.Errorf("partition with delimiter: err = %v, want ErrInvalidSegment", err)
	}
	if _, err := Encode(""); !errors.Is(err, ErrEmptyPartition) {
		t.Errorf("empty partition: err = %v, want ErrEmptyPartition", err)
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	for _, key := range []string{"", "MSG", "\x00"} {
		if _, _, err := Decode(key); !errors.Is(err, ErrMalformedKey) {
			t.Errorf("Decode(%q): err = %v, want ErrMalformedKey", key, err)
		}
	}
}

// Encoded keys must sort the same way their segment tuples do, so byte
// order scans return records in logical order.
func TestEncodingIsOrderPreserving(t *testing.T) {
	tuples := [][]string{
		{"a"},
		{"a", "1"},
		{"a", "2"},
		{"ab"},
		{"b"},
		{"b", "0"},
	}

	keys := make([]string, len(tuples))
	for i, segs := range tuples {
		key, err := Encode("MSG", segs...)
		if err != nil {
			t.Fatalf("Encode error: %v", err)
		}
		keys[i] = key
	}

	if !sort.StringsAreSorted(keys) {
		t.Errorf("encoded keys not in tuple order: %q", keys)
	}
}

// A prefix covers exactly the keys whose decoded segments extend it,
// and never keys from another partition.
func TestPrefixSelectsSupersetOnly(t *testing.T) {
	prefix, err := Prefix("MSG", "general")
	if err != nil {
		t.Fatalf("Prefix error: %v", err)
	}

	in, _ := Encode("MSG", "general", "t1")
	if len(in) <= len(prefix) || in[:len(prefix)] != prefix {
		t.Errorf("key %q should match prefix %q", in, prefix)
	}

	for _, bad := range [][]string{{"generally", "t1"}, {"other", "t1"}} {
		out, _ := Encode("MSG", bad...)
		if len(out) >= len(prefix) && out[:len(prefix)] == prefix {
			t.Errorf("key %q must not match prefix %q", out, prefix)
		}
	}

	user, _ := Encode("USER", "general")
	if len(user) >= len(prefix) && user[:len(prefix)] == prefix {
		t.Errorf("cross-partition key %q must not match prefix %q", user, prefix)
	}
}

func TestHasPrefix(t *testing.T) {
	if !HasPrefix([]string{"a", "b"}, []string{"a"}) {
		t.Error("leading segment should match")
	}
	if HasPrefix([]string{"a"}, []string{"a", "b"}) {
		t.Error("longer leading than segments must not match")
	}
	if HasPrefix([]string{"a", "b"}, []string{"b"}) {
		t.Error("mismatched segment must not match")
	}
}
