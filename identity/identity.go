/*
   Content-derived 128-bit vertex identities.
*/
package identity

import (
	"encoding/binary"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spaolacci/murmur3"
	"golang.org/x/xerrors"
)

// Seed is the MurmurHash3 seed used for every identity. It must never change:
// vertices and edges are hashed by independent passes, possibly by different
// tools, and both sides have to land on the same identity.
const Seed = 1717

// Size is the length of the binary form of an Identity.
const Size = 16

var ErrInvalidIdentity = xerrors.New("invalid identity")

// Identity is the stable external key of a vertex. It is either the 128-bit
// hash of the vertex URL or a pair of words computed upstream.
type Identity struct {
	Hi uint64
	Lo uint64
}

// Hash returns the identity of the provided bytes.
func Hash(b []byte) Identity {
	h1, h2 := murmur3.Sum128WithSeed(b, Seed)
	return Identity{Hi: h1, Lo: h2}
}

// HashString returns the identity of the provided URL.
func HashString(s string) Identity {
	return Hash([]byte(s))
}

// Compare orders identities lexicographically on the (Hi, Lo) pair.
func (id Identity) Compare(other Identity) int {
	switch {
	case id.Hi < other.Hi:
		return -1
	case id.Hi > other.Hi:
		return 1
	case id.Lo < other.Lo:
		return -1
	case id.Lo > other.Lo:
		return 1
	}
	return 0
}

func (id Identity) Less(other Identity) bool { return id.Compare(other) < 0 }

// MarshalBinary encodes the identity as 16 big-endian bytes so that the byte
// order of encoded keys matches Compare.
func (id Identity) MarshalBinary() ([]byte, error) {
	b := make([]byte, Size)
	id.PutBytes(b)
	return b, nil
}

// PutBytes writes the binary form of the identity into b which must be at
// least Size bytes long.
func (id Identity) PutBytes(b []byte) {
	binary.BigEndian.PutUint64(b[0:8], id.Hi)
	binary.BigEndian.PutUint64(b[8:16], id.Lo)
}

func (id *Identity) UnmarshalBinary(b []byte) error {
	if len(b) != Size {
		return xerrors.Errorf("unmarshal identity from %d bytes: %w", len(b), ErrInvalidIdentity)
	}
	id.Hi = binary.BigEndian.Uint64(b[0:8])
	id.Lo = binary.BigEndian.Uint64(b[8:16])
	return nil
}

// FromBytes decodes an identity previously encoded with PutBytes.
func FromBytes(b []byte) (Identity, error) {
	var id Identity
	err := id.UnmarshalBinary(b)
	return id, err
}

// UUID returns the identity bytes as a UUID. Used wherever an external system
// wants a conventional 128-bit key.
func (id Identity) UUID() uuid.UUID {
	var u uuid.UUID
	id.PutBytes(u[:])
	return u
}

// FromUUID is the inverse of UUID.
func FromUUID(u uuid.UUID) Identity {
	id, _ := FromBytes(u[:])
	return id
}

// String renders the identity as "hi-lo" with both words in decimal.
func (id Identity) String() string {
	return strconv.FormatUint(id.Hi, 10) + "-" + strconv.FormatUint(id.Lo, 10)
}

// Parse parses the "hi-lo" form produced by String.
func Parse(s string) (Identity, error) {
	hi, lo, found := strings.Cut(strings.TrimSpace(s), "-")
	if !found {
		return Identity{}, xerrors.Errorf("parse %q: %w", s, ErrInvalidIdentity)
	}
	h, err := strconv.ParseUint(hi, 10, 64)
	if err != nil {
		return Identity{}, xerrors.Errorf("parse %q: %w", s, ErrInvalidIdentity)
	}
	l, err := strconv.ParseUint(lo, 10, 64)
	if err != nil {
		return Identity{}, xerrors.Errorf("parse %q: %w", s, ErrInvalidIdentity)
	}
	return Identity{Hi: h, Lo: l}, nil
}

// FromWords builds an identity out of two signed words, the way pre-hashed
// identities are stored in SQL bigint columns.
func FromWords(hi, lo int64) Identity {
	return Identity{Hi: uint64(hi), Lo: uint64(lo)}
}
