package services

import (
	"encoding/binary"
	"encoding/hex"
	"math/bits"
)

// ContentHasher fingerprints normalised source content for change detection.
type ContentHasher interface {
	Hash(text string) string
}

// Murmur3Hasher computes MurmurHash3 x86 32-bit (seed 0) over UTF-8 bytes
// and renders the four little-endian bytes as lowercase hex.
type Murmur3Hasher struct{}

// Hash returns the 8-character hex fingerprint of text.
func (Murmur3Hasher) Hash(text string) string {
	var out [4]byte
	binary.LittleEndian.PutUint32(out[:], murmur3x86_32([]byte(text), 0))
	return hex.EncodeToString(out[:])
}

const (
	murmurC1 = 0xcc9e2d51
	murmurC2 = 0x1b873593
)

func murmur3x86_32(data []byte, seed uint32) uint32 {
	h := seed
	n := len(data) / 4

	for i := 0; i < n; i++ {
		k := binary.LittleEndian.Uint32(data[i*4:])
		k *= murmurC1
		k = bits.RotateLeft32(k, 15)
		k *= murmurC2

		h ^= k
		h = bits.RotateLeft32(h, 13)
		h = h*5 + 0xe6546b64
	}

	tail := data[n*4:]
	var k uint32
	switch len(tail) {
	case 3:
		k ^= uint32(tail[2]) << 16
		fallthrough
	case 2:
		k ^= uint32(tail[1]) << 8
		fallthrough
	case 1:
		k ^= uint32(tail[0])
		k *= murmurC1
		k = bits.RotateLeft32(k, 15)
		k *= murmurC2
		h ^= k
	}

	h ^= uint32(len(data))
	h ^= h >> 16
	h *= 0x85ebca6b
	h ^= h >> 13
	h *= 0xc2b2ae35
	h ^= h >> 16
	return h
}
