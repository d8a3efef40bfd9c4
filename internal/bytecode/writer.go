package bytecode

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

// Emitter receives compiled types. Implementations are safe for
// concurrent Emit calls; Close flushes whatever is buffered.
type Emitter interface {
	Emit(t Type) error
	Close() error
}

const (
	TypeFileExt    = ".kbc"
	ArchiveFileExt = ".kar"
)

// DirWriter writes one image file per type into Dir.
type DirWriter struct {
	Dir string

	once    sync.Once
	mkErr   error
	mu      sync.Mutex
	written []string
}

func NewDirWriter(dir string) *DirWriter {
	return &DirWriter{Dir: dir}
}

// Emit writes <Dir>/<type>.kbc through a temp file and rename, so a
// reader never sees a partial file.
func (w *DirWriter) Emit(t Type) error {
	w.once.Do(func() {
		w.mkErr = os.MkdirAll(w.Dir, 0o755)
	})
	if w.mkErr != nil {
		return w.mkErr
	}
	data, err := Marshal(NewImage(t))
	if err != nil {
		return fmt.Errorf("encode %s: %w", t.Name, err)
	}
	path := filepath.Join(w.Dir, fileName(t.Name)+TypeFileExt)
	if err := writeAtomic(path, data); err != nil {
		return err
	}
	w.mu.Lock()
	w.written = append(w.written, path)
	w.mu.Unlock()
	return nil
}

// Written lists the files produced so far, sorted; a file rewritten by
// a later build is listed once.
func (w *DirWriter) Written() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := slices.Clone(w.written)
	slices.Sort(out)
	return slices.Compact(out)
}

func (w *DirWriter) Close() error { return nil }

// ArchiveWriter collects types and writes a single image on Close.
type ArchiveWriter struct {
	Path string

	mu     sync.Mutex
	types  map[string]Type
	closed bool
}

func NewArchiveWriter(path string) *ArchiveWriter {
	return &ArchiveWriter{Path: path, types: make(map[string]Type)}
}

func (w *ArchiveWriter) Emit(t Type) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return fmt.Errorf("archive %s already closed", w.Path)
	}
	if _, dup := w.types[t.Name]; dup {
		return fmt.Errorf("archive %s: type %s emitted twice", w.Path, t.Name)
	}
	w.types[t.Name] = t
	return nil
}

// Len returns the number of buffered types.
func (w *ArchiveWriter) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.types)
}

// Close writes the archive with types sorted by name. An archive with no
// types is not written.
func (w *ArchiveWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	if len(w.types) == 0 {
		return nil
	}
	names := make([]string, 0, len(w.types))
	for name := range w.types {
		names = append(names, name)
	}
	slices.Sort(names)
	img := NewImage()
	for _, name := range names {
		img.Types = append(img.Types, w.types[name])
	}
	data, err := Marshal(img)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(w.Path), 0o755); err != nil {
		return err
	}
	return writeAtomic(w.Path, data)
}

func writeAtomic(path string, data []byte) (err error) {
	f, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(f.Name())
		}
	}()
	if _, err = f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	// Атомарная замена
	return os.Rename(f.Name(), path)
}

// fileName keeps type names usable as file names.
func fileName(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', 0:
			return '_'
		}
		return r
	}, name)
}
