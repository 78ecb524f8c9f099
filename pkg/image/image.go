// Package image reads and writes program images.
//
// A raw image holds one word per byte, widened unsigned to int32. A CBOR
// image is a container holding full-range words and an optional name. An
// asm image is assembly text, assembled on load.
package image

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"regvm/pkg/assembler"

	"github.com/fxamacker/cbor/v2"
)

type Format string

const (
	FormatRaw  Format = "raw"
	FormatCBOR Format = "cbor"
	FormatAsm  Format = "asm"
)

var ErrImageTooLarge = errors.New("image larger than memory capacity")

// Program is a decoded image
type Program struct {
	Name  string  `cbor:"1,keyasint,omitempty"`
	Words []int32 `cbor:"2,keyasint"`
}

var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("image: failed to create CBOR enc mode: %v", err))
	}
	encMode = em
}

// ParseFormat validates a format name. An empty name yields "".
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case "", FormatRaw, FormatCBOR, FormatAsm:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported image format: %s. Valid options: %s, %s, %s", s, FormatRaw, FormatCBOR, FormatAsm)
	}
}

// FormatFromPath guesses the format from the file extension
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cbor":
		return FormatCBOR
	case ".asm", ".rasm":
		return FormatAsm
	}

	return FormatRaw
}

// FromBytes widens every byte into one word
func FromBytes(data []byte) []int32 {
	words := make([]int32, len(data))
	for i, b := range data {
		words[i] = int32(b)
	}

	return words
}

// Decode reads an image of the given format. Images with more words than
// capacity are rejected; a capacity <= 0 disables the check.
func Decode(r io.Reader, format Format, capacity int) (*Program, error) {
	var p Program

	switch format {
	case FormatRaw, "":
		src := r
		if capacity > 0 {
			src = io.LimitReader(r, int64(capacity)+1)
		}
		data, err := io.ReadAll(src)
		if err != nil {
			return nil, fmt.Errorf("reading raw image: %w", err)
		}
		p.Words = FromBytes(data)

	case FormatCBOR:
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("reading cbor image: %w", err)
		}
		if err := cbor.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decoding cbor image: %w", err)
		}

	case FormatAsm:
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("reading assembly: %w", err)
		}
		if p.Words, err = assembler.Assemble(string(data)); err != nil {
			return nil, err
		}

	default:
		return nil, fmt.Errorf("unsupported image format: %s", format)
	}

	if capacity > 0 && len(p.Words) > capacity {
		return nil, fmt.Errorf("%w: more than %d words", ErrImageTooLarge, capacity)
	}

	return &p, nil
}

// ReadFile opens path and decodes it. The format is taken from the
// extension when empty; the program name defaults to the file name.
func ReadFile(path string, format Format, capacity int) (*Program, error) {
	if format == "" {
		format = FormatFromPath(path)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	p, err := Decode(file, format, capacity)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}

	if p.Name == "" {
		p.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	return p, nil
}

// Marshal encodes p as a canonical CBOR container
func Marshal(p *Program) ([]byte, error) {
	data, err := encMode.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encoding cbor image: %w", err)
	}

	return data, nil
}

// WriteFile stores p as a CBOR container at path
func WriteFile(path string, p *Program) error {
	data, err := Marshal(p)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	return nil
}
