// Package docx opens zip-packaged WordprocessingML documents and returns the
// markup of their XML parts. It knows nothing about field semantics.
package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/kosarica/intake-service/internal/parsers/charset"
)

// MainPartName is the primary markup part of a WordprocessingML package
const MainPartName = "word/document.xml"

// ErrInvalidContainer is returned when the buffer is not a readable archive
// or the primary markup part is missing
var ErrInvalidContainer = errors.New("invalid document container")

// PartKind classifies a markup part inside the package
type PartKind string

const (
	PartMain     PartKind = "main"
	PartHeader   PartKind = "header"
	PartFooter   PartKind = "footer"
	PartFootnote PartKind = "footnotes"
	PartEndnote  PartKind = "endnotes"
)

// Part is one decoded XML part of the package
type Part struct {
	Name string
	Kind PartKind
	XML  string
}

// Document holds the parts read from a package. Auxiliary parts come first
// (sorted by name) and the main part is always last.
type Document struct {
	Parts []Part
}

// Main returns the primary markup part
func (d *Document) Main() Part {
	return d.Parts[len(d.Parts)-1]
}

// Options contains limits for container reading
type Options struct {
	// MaxPartSize is the maximum uncompressed size of a single part (0 = unlimited)
	MaxPartSize int64
	// MaxTotalSize is the maximum total uncompressed size of all parts read (0 = unlimited)
	MaxTotalSize int64
	// IncludeAuxiliaryParts also reads headers, footers, footnotes and endnotes
	IncludeAuxiliaryParts bool
}

// DefaultOptions returns default options for container reading
func DefaultOptions() Options {
	return Options{
		MaxPartSize:           50 * 1024 * 1024,
		MaxTotalSize:          200 * 1024 * 1024,
		IncludeAuxiliaryParts: true,
	}
}

// Reader opens document containers
type Reader struct {
	options Options
}

// NewReader creates a new container reader
func NewReader(options Options) *Reader {
	return &Reader{options: options}
}

// Open parses content as a zip package and returns its markup parts
func (r *Reader) Open(ctx context.Context, content []byte) (*Document, error) {
	archive, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidContainer, err)
	}

	var main *zip.File
	var aux []*zip.File
	var declared int64

	for _, file := range archive.File {
		if file.FileInfo().IsDir() {
			continue
		}
		name, ok := cleanPartName(file.Name)
		if !ok {
			continue
		}
		if name == MainPartName {
			main = file
			declared += int64(file.UncompressedSize64)
			continue
		}
		if r.options.IncludeAuxiliaryParts && classify(name) != "" {
			aux = append(aux, file)
			declared += int64(file.UncompressedSize64)
		}
	}

	if main == nil {
		return nil, fmt.Errorf("%w: %s not found", ErrInvalidContainer, MainPartName)
	}
	if r.options.MaxTotalSize > 0 && declared > r.options.MaxTotalSize {
		return nil, fmt.Errorf("%w: parts exceed maximum total size (%d > %d)",
			ErrInvalidContainer, declared, r.options.MaxTotalSize)
	}

	sort.Slice(aux, func(i, j int) bool { return aux[i].Name < aux[j].Name })
	files := append(aux, main)
	parts := make([]Part, len(files))

	g, gctx := errgroup.WithContext(ctx)
	for i, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			part, err := r.readPart(file)
			if err != nil {
				return err
			}
			parts[i] = part
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Document{Parts: parts}, nil
}

// readPart reads and decodes one part with size-limit enforcement
func (r *Reader) readPart(file *zip.File) (Part, error) {
	name, _ := cleanPartName(file.Name)

	if r.options.MaxPartSize > 0 && int64(file.UncompressedSize64) > r.options.MaxPartSize {
		return Part{}, fmt.Errorf("%w: part %s exceeds maximum size (%d > %d)",
			ErrInvalidContainer, name, file.UncompressedSize64, r.options.MaxPartSize)
	}

	rc, err := file.Open()
	if err != nil {
		return Part{}, fmt.Errorf("%w: failed to open part %s: %v", ErrInvalidContainer, name, err)
	}
	defer rc.Close()

	// Declared sizes can lie, so cap the actual read too
	var reader io.Reader = rc
	if r.options.MaxPartSize > 0 {
		reader = io.LimitReader(rc, r.options.MaxPartSize+1)
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return Part{}, fmt.Errorf("%w: failed to read part %s: %v", ErrInvalidContainer, name, err)
	}
	if r.options.MaxPartSize > 0 && int64(len(data)) > r.options.MaxPartSize {
		return Part{}, fmt.Errorf("%w: part %s exceeds maximum size", ErrInvalidContainer, name)
	}

	text, err := charset.DecodeXML(data)
	if err != nil {
		return Part{}, fmt.Errorf("%w: part %s: %v", ErrInvalidContainer, name, err)
	}

	kind := classify(name)
	if name == MainPartName {
		kind = PartMain
	}
	return Part{Name: name, Kind: kind, XML: text}, nil
}

// cleanPartName normalises a zip entry name and rejects names that escape the
// package root
func cleanPartName(name string) (string, bool) {
	name = strings.ReplaceAll(name, "\\", "/")
	if path.IsAbs(name) || (len(name) >= 2 && name[1] == ':') {
		return "", false
	}
	cleaned := path.Clean(name)
	if cleaned == "." || strings.HasPrefix(cleaned, "..") {
		return "", false
	}
	return cleaned, true
}

// classify returns the kind of an auxiliary part, or "" when the part is not read
func classify(name string) PartKind {
	dir, base := path.Split(name)
	if dir != "word/" || !strings.HasSuffix(base, ".xml") {
		return ""
	}
	switch {
	case strings.HasPrefix(base, "header"):
		return PartHeader
	case strings.HasPrefix(base, "footer"):
		return PartFooter
	case base == "footnotes.xml":
		return PartFootnote
	case base == "endnotes.xml":
		return PartEndnote
	}
	return ""
}

// ReadInMemory is a convenience function that opens content with default options
func ReadInMemory(content []byte) (*Document, error) {
	return NewReader(DefaultOptions()).Open(context.Background(), content)
}
