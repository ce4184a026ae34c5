// Package keyspace encodes and decodes the composite keys used by the
// ledger state. A key is a partition tag plus an ordered list of string
// segments, each terminated by a reserved delimiter byte. Encoding is
// injective and order-preserving within a partition, so a range scan over
// a shorter segment prefix yields exactly the records sharing that prefix
// in ascending key order.
package keyspace

import (
	"errors"
	"fmt"
	"strings"
)

// Delimiter terminates the partition tag and every segment. It is the
// minimum byte value, so a segment is never ordered after its own
// extensions and prefix scans stay within their partition.
const Delimiter = "\x00"

var (
	ErrInvalidSegment = errors.New("segment contains reserved delimiter")
	ErrEmptyPartition = errors.New("partition must not be empty")
	ErrMalformedKey   = errors.New("malformed composite key")
)

// Encode builds a composite key from a partition tag and segments.
// Partitions and segments containing the delimiter byte are rejected:
// allowing them would let keys from one partition collide with another.
func Encode(partition string, segments ...string) (string, error) {
	if partition == "" {
		return "", ErrEmptyPartition
	}
	if strings.Contains(partition, Delimiter) {
		return "", fmt.Errorf("partition %q: %w", partition, ErrInvalidSegment)
	}

	var b strings.Builder
	b.WriteString(partition)
	b.WriteString(Delimiter)
	for _, seg := range segments {
		if strings.Contains(seg, Delimiter) {
			return "", fmt.Errorf("segment %q: %w", seg, ErrInvalidSegment)
		}
		b.WriteString(seg)
		b.WriteString(Delimiter)
	}
	return b.String(), nil
}

// Decode splits a composite key back into its partition and segments.
// It is the exact inverse of Encode for any key Encode can produce.
func Decode(key string) (string, []string, error) {
	if !strings.HasSuffix(key, Delimiter) {
		return "", nil, ErrMalformedKey
	}
	parts := strings.Split(strings.TrimSuffix(key, Delimiter), Delimiter)
	if len(parts) == 0 || parts[0] == "" {
		return "", nil, ErrMalformedKey
	}
	return parts[0], parts[1:], nil
}

// Prefix returns the key prefix covering every composite key in the
// partition whose leading segments equal the given ones. Passing no
// segments covers the whole partition.
func Prefix(partition string, segments ...string) (string, error) {
	return Encode(partition, segments...)
}

// HasPrefix reports whether a decoded key's segments start with the given
// leading segments.
func HasPrefix(segments, leading []string) bool {
	if len(leading) > len(segments) {
		return false
	}
	for i, s := range leading {
		if segments[i] != s {
			return false
		}
	}
	return true
}
