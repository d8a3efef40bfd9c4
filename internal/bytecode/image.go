package bytecode

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/vmihailenco/msgpack/v5"
)

const (
	// Magic opens every image.
	Magic = "KILN"
	// Version of the image schema; bump when Type or Method change shape.
	Version uint16 = 1
)

// Method is one compiled method.
type Method struct {
	Name      string  `msgpack:"name"`
	Params    int     `msgpack:"params"`
	MaxLocals int     `msgpack:"locals"`
	MaxStack  int     `msgpack:"stack"`
	Abstract  bool    `msgpack:"abstract,omitempty"`
	Code      []Instr `msgpack:"code"`
}

// Type is one compiled class or interface.
type Type struct {
	Name      string   `msgpack:"name"`
	Interface bool     `msgpack:"iface,omitempty"`
	Fields    []string `msgpack:"fields"`
	Methods   []Method `msgpack:"methods"`
}

// MethodIndex returns the index of the named method, or -1.
func (t *Type) MethodIndex(name string) int {
	for i, m := range t.Methods {
		if m.Name == name {
			return i
		}
	}
	return -1
}

// FieldIndex returns the index of the named field, or -1.
func (t *Type) FieldIndex(name string) int {
	for i, f := range t.Fields {
		if f == name {
			return i
		}
	}
	return -1
}

// Image is the serialised unit of output.
type Image struct {
	Magic   string `msgpack:"magic"`
	Version uint16 `msgpack:"version"`
	Types   []Type `msgpack:"types"`
}

// NewImage wraps types into a current-version image.
func NewImage(types ...Type) *Image {
	return &Image{Magic: Magic, Version: Version, Types: types}
}

var (
	ErrBadMagic   = errors.New("not a kiln image")
	ErrBadVersion = errors.New("unsupported image version")
)

// Encode writes img as msgpack.
func Encode(w io.Writer, img *Image) error {
	enc := msgpack.NewEncoder(w)
	enc.UseCompactInts(true)
	return enc.Encode(img)
}

// Decode reads and checks an image.
func Decode(r io.Reader) (*Image, error) {
	var img Image
	if err := msgpack.NewDecoder(r).Decode(&img); err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	if img.Magic != Magic {
		return nil, ErrBadMagic
	}
	if img.Version != Version {
		return nil, fmt.Errorf("%w: %d (want %d)", ErrBadVersion, img.Version, Version)
	}
	return &img, nil
}

// Marshal encodes img into a byte slice.
func Marshal(img *Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes an image from data.
func Unmarshal(data []byte) (*Image, error) {
	return Decode(bytes.NewReader(data))
}

// ReadFile loads a .kbc or .kar file.
func ReadFile(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	img, err := Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}
