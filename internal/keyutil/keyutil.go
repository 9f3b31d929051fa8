package keyutil

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// Digest reduces an arbitrary filter/sort/page tuple to a short opaque hex
// string suitable for a cache key segment. Marshaling is deterministic for
// structs (field order) and maps (sorted keys), so equal tuples digest
// equally across processes.
func Digest(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		// unmarshalable tuples still need a stable-ish key
		b = []byte(fmt.Sprintf("%+v", v))
	}
	sum := sha1.Sum(b)
	return hex.EncodeToString(sum[:])
}

// Namespace returns the key's leading segment, up to the first ':'.
// Keys without a separator are their own namespace.
func Namespace(key string) string {
	if i := strings.IndexByte(key, ':'); i >= 0 {
		return key[:i]
	}
	return key
}
