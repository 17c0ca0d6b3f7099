// Package format identifies the Office Open XML packages slidetext reads and
// writes.
package format

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Format represents a supported package format.
type Format int

const (
	// Unknown indicates an unrecognized format.
	Unknown Format = iota
	// PPTX indicates a PowerPoint presentation, the only accepted input.
	PPTX
	// DOCX indicates a Word document, the output format.
	DOCX
)

// Part names that identify each package type.
const (
	PresentationPart = "ppt/presentation.xml"
	DocumentPart     = "word/document.xml"
)

var zipMagic = []byte{0x50, 0x4B, 0x03, 0x04}

// String returns the string representation of the format.
func (f Format) String() string {
	switch f {
	case PPTX:
		return "PPTX"
	case DOCX:
		return "DOCX"
	default:
		return "Unknown"
	}
}

// Detect determines file format from filename extension.
func Detect(filename string) Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pptx":
		return PPTX
	case ".docx":
		return DOCX
	default:
		return Unknown
	}
}

// IsZip reports whether data starts with the local file header signature.
func IsZip(data []byte) bool {
	return bytes.HasPrefix(data, zipMagic)
}

// DetectFromReader inspects the package content. Extension-less uploads and
// misnamed files are classified by the parts they contain.
func DetectFromReader(r io.ReaderAt, size int64) (Format, error) {
	magic := make([]byte, len(zipMagic))
	n, err := r.ReadAt(magic, 0)
	if err != nil && err != io.EOF {
		return Unknown, fmt.Errorf("reading signature: %w", err)
	}
	if !IsZip(magic[:n]) {
		return Unknown, nil
	}

	zr, err := zip.NewReader(r, size)
	if err != nil {
		return Unknown, fmt.Errorf("reading zip directory: %w", err)
	}

	for _, f := range zr.File {
		switch f.Name {
		case PresentationPart:
			return PPTX, nil
		case DocumentPart:
			return DOCX, nil
		}
	}
	return Unknown, nil
}

// DetectFile opens filename and classifies it by content.
func DetectFile(filename string) (Format, error) {
	f, err := os.Open(filename)
	if err != nil {
		return Unknown, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return Unknown, err
	}
	return DetectFromReader(f, info.Size())
}
