package credstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Region is a fixed-size non-volatile area. Implementations must make
// WriteRegion all-or-nothing: after a failed write the previous image is still
// readable.
type Region interface {
	Size() int
	ReadRegion() ([]byte, error)
	WriteRegion(data []byte) error
}

// FileRegion keeps the region image in a single file. A missing file reads as
// a virgin (all-zero) region.
type FileRegion struct {
	path string
	size int
}

// NewFileRegion returns a RegionSize file-backed region at path.
func NewFileRegion(path string) *FileRegion {
	return &FileRegion{path: path, size: RegionSize}
}

// Path returns the backing file path.
func (r *FileRegion) Path() string {
	return r.path
}

// Size implements Region.
func (r *FileRegion) Size() int {
	return r.size
}

// ReadRegion implements Region.
func (r *FileRegion) ReadRegion() ([]byte, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return make([]byte, r.size), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read region file: %w", err)
	}
	if len(data) != r.size {
		return nil, fmt.Errorf("%w: %s is %d bytes, want %d", ErrRegionSize, r.path, len(data), r.size)
	}
	return data, nil
}

// WriteRegion implements Region. The image goes to a temporary file which is
// synced and then renamed over the region file.
func (r *FileRegion) WriteRegion(data []byte) error {
	if len(data) != r.size {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrRegionSize, len(data), r.size)
	}

	if err := os.MkdirAll(filepath.Dir(r.path), 0700); err != nil {
		return fmt.Errorf("failed to create region directory: %w", err)
	}

	tmpPath := r.path + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open temporary region file: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write temporary region file: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to sync temporary region file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close temporary region file: %w", err)
	}

	if err := os.Rename(tmpPath, r.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to commit region file: %w", err)
	}

	return nil
}

// ErrWornOut is returned by MemoryRegion once its write budget is spent.
var ErrWornOut = errors.New("erase cycles exhausted")

// MemoryRegion is an in-memory Region used by tests and the simulator. It can
// emulate a medium that wears out after a number of writes and a medium whose
// reads fail.
type MemoryRegion struct {
	mu         sync.Mutex
	data       []byte
	writesLeft int // negative means unlimited
	readErr    error
	writes     int
}

// NewMemoryRegion returns a zeroed RegionSize region with no write limit.
func NewMemoryRegion() *MemoryRegion {
	return &MemoryRegion{
		data:       make([]byte, RegionSize),
		writesLeft: -1,
	}
}

// Size implements Region.
func (r *MemoryRegion) Size() int {
	return len(r.data)
}

// ReadRegion implements Region.
func (r *MemoryRegion) ReadRegion() ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.readErr != nil {
		return nil, r.readErr
	}
	out := make([]byte, len(r.data))
	copy(out, r.data)
	return out, nil
}

// WriteRegion implements Region.
func (r *MemoryRegion) WriteRegion(data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(data) != len(r.data) {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrRegionSize, len(data), len(r.data))
	}
	if r.writesLeft == 0 {
		return ErrWornOut
	}
	if r.writesLeft > 0 {
		r.writesLeft--
	}

	copy(r.data, data)
	r.writes++
	return nil
}

// SetWriteBudget limits the number of further successful writes. A negative
// budget removes the limit.
func (r *MemoryRegion) SetWriteBudget(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writesLeft = n
}

// FailReads makes every subsequent read return err. Passing nil restores reads.
func (r *MemoryRegion) FailReads(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.readErr = err
}

// Writes returns the number of successful writes.
func (r *MemoryRegion) Writes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writes
}

// Raw returns a copy of the current image.
func (r *MemoryRegion) Raw() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]byte, len(r.data))
	copy(out, r.data)
	return out
}
