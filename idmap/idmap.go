/*
   Identity to dense vertex index resolution.
*/
package idmap

import (
	"github.com/Ahmed-Sermani/webrank/identity"
	"golang.org/x/xerrors"
)

var (
	// ErrSealed is returned when inserting into a map that was already sealed
	// for lookups.
	ErrSealed = xerrors.New("identity map is sealed")

	// ErrNotSealed is returned by lookups performed while the map is still
	// being populated.
	ErrNotSealed = xerrors.New("identity map is not sealed")
)

// Map associates vertex identities to dense vertex indices. A Map goes
// through two phases: it is populated with Insert, then sealed and only
// queried with Lookup. The two phases never overlap.
type Map interface {
	// Insert maps id to index. If id was already mapped, the previous index
	// is returned together with replaced set to true; the new index wins.
	Insert(id identity.Identity, index uint64) (prev uint64, replaced bool, err error)

	// Seal ends the insertion phase.
	Seal() error

	// Lookup returns the index of id. A missing identity is reported with
	// found set to false and a nil error.
	Lookup(id identity.Identity) (index uint64, found bool, err error)

	// Len returns the number of distinct identities in the map.
	Len() uint64

	// Close releases the resources held by the map.
	Close() error
}
