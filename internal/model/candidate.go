package model

import (
	"bytes"
	"io"
	"time"
)

// File is a candidate offered by the user. Implementations must be immutable.
type File interface {
	Name() string
	Size() int64
	Type() string
	LastModified() time.Time
	Open() (io.ReadCloser, error)
}

// MemoryFile is a File backed by a byte slice.
type MemoryFile struct {
	name    string
	typ     string
	modTime time.Time
	data    []byte
}

var _ File = (*MemoryFile)(nil)

// NewMemoryFile wraps data as a candidate file. The slice must not be modified
// afterwards.
func NewMemoryFile(name, typ string, modTime time.Time, data []byte) *MemoryFile {
	return &MemoryFile{
		name:    name,
		typ:     typ,
		modTime: modTime,
		data:    data,
	}
}

func (m *MemoryFile) Name() string            { return m.name }
func (m *MemoryFile) Size() int64             { return int64(len(m.data)) }
func (m *MemoryFile) Type() string            { return m.typ }
func (m *MemoryFile) LastModified() time.Time { return m.modTime }

func (m *MemoryFile) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(m.data)), nil
}
