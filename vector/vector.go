/*
   Disk-backed vectors of fixed-size records.
*/
package vector

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/xerrors"
)

var (
	// ErrVariableSize is returned when the element type has no fixed binary
	// encoding.
	ErrVariableSize = xerrors.New("vector element type has no fixed size")

	// ErrOutOfRange is returned for accesses beyond the end of the vector.
	ErrOutOfRange = xerrors.New("vector index out of range")
)

// order is the byte order of every record written by this package.
var order = binary.LittleEndian

// iterChunk is the number of records decoded per read while iterating.
const iterChunk = 4096

// Vector is an append-only file of T records addressed by position. T must
// have a fixed binary size (numbers, arrays and structs thereof).
//
// Appends are buffered; reads and in-place writes flush pending appends
// first. A Vector is safe for concurrent use.
type Vector[T any] struct {
	mu       sync.Mutex
	f        *os.File
	w        *bufio.Writer
	path     string
	elemSize int
	n        uint64
}

// Create creates an empty vector at path, truncating any existing file.
func Create[T any](path string) (*Vector[T], error) {
	return open[T](path, os.O_CREATE|os.O_RDWR|os.O_TRUNC)
}

// Open opens an existing vector.
func Open[T any](path string) (*Vector[T], error) {
	return open[T](path, os.O_RDWR)
}

func open[T any](path string, flag int) (*Vector[T], error) {
	var zero T
	elemSize := binary.Size(zero)
	if elemSize <= 0 {
		return nil, xerrors.Errorf("open vector %s: %w", path, ErrVariableSize)
	}
	if flag&os.O_CREATE != 0 {
		if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
			return nil, xerrors.Errorf("open vector: %w", err)
		}
	}

	f, err := os.OpenFile(path, flag, 0600)
	if err != nil {
		return nil, xerrors.Errorf("open vector: %w", err)
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, xerrors.Errorf("open vector: %w", err)
	}
	if st.Size()%int64(elemSize) != 0 {
		_ = f.Close()
		return nil, xerrors.Errorf("open vector %s: size %d is not a multiple of %d", path, st.Size(), elemSize)
	}
	if _, err = f.Seek(0, io.SeekEnd); err != nil {
		_ = f.Close()
		return nil, xerrors.Errorf("open vector: %w", err)
	}

	return &Vector[T]{
		f:        f,
		w:        bufio.NewWriter(f),
		path:     path,
		elemSize: elemSize,
		n:        uint64(st.Size()) / uint64(elemSize),
	}, nil
}

// Path returns the backing file location.
func (v *Vector[T]) Path() string { return v.path }

// ElemSize returns the encoded size of one record.
func (v *Vector[T]) ElemSize() int { return v.elemSize }

// Len returns the number of records, including buffered ones.
func (v *Vector[T]) Len() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.n
}

// Append adds a record at position Len() and returns that position.
func (v *Vector[T]) Append(val T) (uint64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := binary.Write(v.w, order, val); err != nil {
		return 0, xerrors.Errorf("append to %s: %w", v.path, err)
	}
	pos := v.n
	v.n++
	return pos, nil
}

// Flush writes buffered appends to the file.
func (v *Vector[T]) Flush() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.flush()
}

func (v *Vector[T]) flush() error {
	if err := v.w.Flush(); err != nil {
		return xerrors.Errorf("flush %s: %w", v.path, err)
	}
	return nil
}

// Get returns the record at position i.
func (v *Vector[T]) Get(i uint64) (T, error) {
	dst := make([]T, 1)
	err := v.ReadRange(i, dst)
	return dst[0], err
}

// ReadRange fills dst with the records starting at position start.
func (v *Vector[T]) ReadRange(start uint64, dst []T) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if start+uint64(len(dst)) > v.n {
		return xerrors.Errorf("read [%d, %d) of %d records: %w", start, start+uint64(len(dst)), v.n, ErrOutOfRange)
	}
	if len(dst) == 0 {
		return nil
	}
	if err := v.flush(); err != nil {
		return err
	}

	buf := make([]byte, len(dst)*v.elemSize)
	if _, err := v.f.ReadAt(buf, int64(start)*int64(v.elemSize)); err != nil {
		return xerrors.Errorf("read %s: %w", v.path, err)
	}
	if err := binary.Read(bytes.NewReader(buf), order, dst); err != nil {
		return xerrors.Errorf("decode %s: %w", v.path, err)
	}
	return nil
}

// WriteRange overwrites the records starting at position start.
func (v *Vector[T]) WriteRange(start uint64, src []T) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if start+uint64(len(src)) > v.n {
		return xerrors.Errorf("write [%d, %d) of %d records: %w", start, start+uint64(len(src)), v.n, ErrOutOfRange)
	}
	if len(src) == 0 {
		return nil
	}
	if err := v.flush(); err != nil {
		return err
	}

	buf := bytes.NewBuffer(make([]byte, 0, len(src)*v.elemSize))
	if err := binary.Write(buf, order, src); err != nil {
		return xerrors.Errorf("encode %s: %w", v.path, err)
	}
	if _, err := v.f.WriteAt(buf.Bytes(), int64(start)*int64(v.elemSize)); err != nil {
		return xerrors.Errorf("write %s: %w", v.path, err)
	}
	return nil
}

// Resize grows the vector with zero-valued records or truncates it so that
// it holds exactly n records.
func (v *Vector[T]) Resize(n uint64) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.flush(); err != nil {
		return err
	}
	if err := v.f.Truncate(int64(n) * int64(v.elemSize)); err != nil {
		return xerrors.Errorf("resize %s: %w", v.path, err)
	}
	if _, err := v.f.Seek(0, io.SeekEnd); err != nil {
		return xerrors.Errorf("resize %s: %w", v.path, err)
	}
	v.n = n
	return nil
}

// ForEach visits every record in position order.
func (v *Vector[T]) ForEach(visitFn func(i uint64, val T) error) error {
	n := v.Len()
	chunk := make([]T, iterChunk)
	for start := uint64(0); start < n; start += iterChunk {
		batch := chunk
		if rem := n - start; rem < iterChunk {
			batch = chunk[:rem]
		}
		if err := v.ReadRange(start, batch); err != nil {
			return err
		}
		for i, val := range batch {
			if err := visitFn(start+uint64(i), val); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close flushes pending appends and closes the file.
func (v *Vector[T]) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.f == nil {
		return nil
	}
	err := v.flush()
	if cErr := v.f.Close(); err == nil && cErr != nil {
		err = xerrors.Errorf("close %s: %w", v.path, cErr)
	}
	v.f = nil
	return err
}
