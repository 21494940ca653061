package pack

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Digest is the BLAKE2b-256 sum of an entry's raw payload.
type Digest [digestSize]byte

// DigestOf computes the digest of an entry payload. The kind is mixed in so
// a sample and an index with identical bytes never collide.
func DigestOf(kind EntryKind, data []byte) Digest {
	h, _ := blake2b.New256(nil)
	h.Write([]byte{byte(kind)})
	h.Write(data)
	var d Digest
	copy(d[:], h.Sum(nil))
	return d
}

func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}
