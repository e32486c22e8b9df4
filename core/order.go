package darc

import (
	"bytes"
	"fmt"
	"strings"
)

// Ordering selects the sort key that fixes the on-disk sequence of entries.
//
// One Ordering applies to a whole archive build; entries are never compared
// under mixed keys.
type Ordering uint8

const (
	// OrderByPath sorts by Path, byte-wise. Default for the legacy layout.
	OrderByPath Ordering = iota

	// OrderByHash sorts by Hash as unsigned bytes, with Path breaking ties
	// between identical payloads. Default for the split layout.
	OrderByHash
)

// String returns the name accepted by ParseOrdering.
func (o Ordering) String() string {
	switch o {
	case OrderByPath:
		return "path"
	case OrderByHash:
		return "hash"
	default:
		return fmt.Sprintf("Ordering(%d)", uint8(o))
	}
}

// ParseOrdering parses "path" or "hash".
func ParseOrdering(s string) (Ordering, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "path":
		return OrderByPath, nil
	case "hash":
		return OrderByHash, nil
	default:
		return 0, fmt.Errorf("unknown ordering %q (want path or hash)", s)
	}
}

// Compare orders a before b with the result convention of cmp.Compare.
// Paths are unique within an archive, so Compare is a strict total order.
func (o Ordering) Compare(a, b *Entry) int {
	if o == OrderByHash {
		if c := bytes.Compare(a.Hash, b.Hash); c != 0 {
			return c
		}
	}
	return strings.Compare(a.Path, b.Path)
}
