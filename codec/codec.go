// Package codec (de)serializes cached values to and from the bytes held by
// both tiers. Pick one codec per view; mixing codecs under one key namespace
// corrupts reads.
package codec

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
