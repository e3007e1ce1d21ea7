package fusefs

import (
	"io"
	"os"
	"testing"
	"time"
)

// fixedFileInfo is a bare-minimum os.FileInfo for exercising
// fileRefAdapter.Size.
type fixedFileInfo struct{ size int64 }

func (f fixedFileInfo) Name() string       { return "mock" }
func (f fixedFileInfo) Size() int64        { return f.size }
func (f fixedFileInfo) Mode() os.FileMode  { return 0 }
func (f fixedFileInfo) ModTime() time.Time { return time.Time{} }
func (f fixedFileInfo) IsDir() bool        { return false }
func (f fixedFileInfo) Sys() interface{}   { return nil }

// seekerSizerStub is a minimal SeekerSizer: Seek reports a fixed position
// for io.SeekCurrent (the only call NewFileRef's adapter ever makes) and
// Stat reports a fixed size.
type seekerSizerStub struct {
	pos  int64
	size int64
}

func (s *seekerSizerStub) Seek(offset int64, whence int) (int64, error) {
	if whence != io.SeekCurrent {
		return 0, os.ErrInvalid
	}
	return s.pos, nil
}

func (s *seekerSizerStub) Stat() (os.FileInfo, error) {
	return fixedFileInfo{size: s.size}, nil
}

func TestFileRefAdapterPositionAndSize(t *testing.T) {
	ref := NewFileRef(&seekerSizerStub{pos: 42, size: 1000})

	pos, err := ref.Position()
	if err != nil {
		t.Fatalf("Position failed: %v", err)
	}
	if pos != 42 {
		t.Errorf("expected position 42, got %d", pos)
	}

	size, err := ref.Size()
	if err != nil {
		t.Fatalf("Size failed: %v", err)
	}
	if size != 1000 {
		t.Errorf("expected size 1000, got %d", size)
	}
}
