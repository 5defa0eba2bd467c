package bolt

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Ahmed-Sermani/webrank/identity"
	"github.com/Ahmed-Sermani/webrank/idmap"
	bolt "go.etcd.io/bbolt"
	"golang.org/x/xerrors"
)

var _ idmap.Map = (*BoltMap)(nil)

var bucketIndices = []byte("indices")

// DefaultBatchSize is the number of puts grouped in a single write
// transaction. bolt puts get slower as a transaction grows while commits are
// expensive, so inserts are committed in chunks.
const DefaultBatchSize = 16384

// Options configures a BoltMap.
type Options struct {
	// BatchSize is the maximum number of inserts buffered in one write
	// transaction. This bounds the memory held by pending writes.
	BatchSize int

	// MmapSize is the initial size of the memory mapping of the database
	// file. Pages beyond it are mapped on demand by the B+tree.
	MmapSize int

	// Temporary removes the database file when the map is closed.
	Temporary bool
}

func (o *Options) applyDefaults() {
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
}

// BoltMap is an identity map stored in a bolt B+tree. Keys are the 16-byte
// big-endian identity so the tree is ordered on the (hi, lo) word pair;
// values are 8-byte big-endian indices.
type BoltMap struct {
	mu   sync.Mutex
	db   *bolt.DB
	path string
	opts Options

	// wtx is the open write transaction during the insertion phase and rtx
	// the long-lived read transaction once sealed.
	wtx     *bolt.Tx
	rtx     *bolt.Tx
	puts    int
	scratch []byte
	count   uint64
	sealed  bool
}

// Open creates a fresh identity map at path. Any existing file is replaced:
// maps are never carried over between runs.
func Open(path string, opts Options) (*BoltMap, error) {
	opts.applyDefaults()
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, xerrors.Errorf("open identity map: %w", err)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, xerrors.Errorf("open identity map: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{
		Timeout:         time.Second,
		NoSync:          true,
		NoFreelistSync:  true,
		InitialMmapSize: opts.MmapSize,
	})
	if err != nil {
		return nil, xerrors.Errorf("open identity map: %w", err)
	}

	if err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketIndices)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, xerrors.Errorf("open identity map: %w", err)
	}

	return &BoltMap{
		db:      db,
		path:    path,
		opts:    opts,
		scratch: make([]byte, opts.BatchSize*8),
	}, nil
}

// Path returns the location of the database file.
func (m *BoltMap) Path() string { return m.path }

func (m *BoltMap) Insert(id identity.Identity, index uint64) (uint64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sealed {
		return 0, false, xerrors.Errorf("insert %v: %w", id, idmap.ErrSealed)
	}

	if m.wtx == nil {
		tx, err := m.db.Begin(true)
		if err != nil {
			return 0, false, xerrors.Errorf("insert %v: %w", id, err)
		}
		m.wtx, m.puts = tx, 0
	}

	var key [identity.Size]byte
	id.PutBytes(key[:])

	bkt := m.wtx.Bucket(bucketIndices)
	var (
		prev     uint64
		replaced bool
	)
	if v := bkt.Get(key[:]); v != nil {
		prev, replaced = binary.BigEndian.Uint64(v), true
	}

	// bolt keeps a reference to values until commit.
	val := m.scratch[m.puts*8 : m.puts*8+8]
	binary.BigEndian.PutUint64(val, index)
	if err := bkt.Put(key[:], val); err != nil {
		return 0, false, xerrors.Errorf("insert %v: %w", id, err)
	}
	if !replaced {
		m.count++
	}

	if m.puts++; m.puts == m.opts.BatchSize {
		if err := m.commit(); err != nil {
			return 0, false, xerrors.Errorf("insert %v: %w", id, err)
		}
	}
	return prev, replaced, nil
}

func (m *BoltMap) commit() error {
	if m.wtx == nil {
		return nil
	}
	err := m.wtx.Commit()
	m.wtx = nil
	return err
}

// Seal commits pending inserts and opens the read transaction used by
// Lookup. Sealing an already sealed map is a no-op.
func (m *BoltMap) Seal() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sealed {
		return nil
	}
	if err := m.commit(); err != nil {
		return xerrors.Errorf("seal: %w", err)
	}

	tx, err := m.db.Begin(false)
	if err != nil {
		return xerrors.Errorf("seal: %w", err)
	}
	m.rtx, m.sealed = tx, true
	return nil
}

func (m *BoltMap) Lookup(id identity.Identity) (uint64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.sealed {
		return 0, false, xerrors.Errorf("lookup %v: %w", id, idmap.ErrNotSealed)
	}

	var key [identity.Size]byte
	id.PutBytes(key[:])
	v := m.rtx.Bucket(bucketIndices).Get(key[:])
	if v == nil {
		return 0, false, nil
	}
	return binary.BigEndian.Uint64(v), true, nil
}

func (m *BoltMap) Len() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.count
}

// Size returns the number of bytes in the data file.
func (m *BoltMap) Size() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rtx != nil {
		return m.rtx.Size()
	}
	st, err := os.Stat(m.path)
	if err != nil {
		return 0
	}
	return st.Size()
}

func (m *BoltMap) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.db == nil {
		return nil
	}

	if m.wtx != nil {
		_ = m.wtx.Rollback()
		m.wtx = nil
	}
	if m.rtx != nil {
		_ = m.rtx.Rollback()
		m.rtx = nil
	}
	err := m.db.Close()
	m.db = nil
	if err != nil {
		return xerrors.Errorf("close identity map: %w", err)
	}

	if m.opts.Temporary {
		if err := os.Remove(m.path); err != nil && !os.IsNotExist(err) {
			return xerrors.Errorf("remove identity map: %w", err)
		}
	}
	return nil
}
