package validation

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// MaxFileSize is the largest upload accepted, in bytes.
const MaxFileSize int64 = 10 << 20 // 10MB

var ErrInvalidInput = errors.New("invalid input")

// Error describes why a request was rejected. It matches ErrInvalidInput.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *Error) Unwrap() error {
	return ErrInvalidInput
}

func invalid(field, format string, args ...any) error {
	return &Error{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// FileConstraints defines validation rules for file uploads
type FileConstraints struct {
	AllowedExtensions map[string]bool // Lowercase, with leading dot
	MaxSize           int64
}

// DocumentConstraints defines the rules for study documents
var DocumentConstraints = FileConstraints{
	AllowedExtensions: map[string]bool{
		".txt": true,
		".pdf": true,
	},
	MaxSize: MaxFileSize,
}

// ValidateUpload checks a filename and declared size against DocumentConstraints.
// It performs no I/O.
func ValidateUpload(filename string, size int64) error {
	return DocumentConstraints.Validate(filename, size)
}

// Validate checks filename and size. Extensions are compared case-insensitively.
func (c FileConstraints) Validate(filename string, size int64) error {
	if strings.TrimSpace(filename) == "" {
		return invalid("filename", "filename cannot be empty")
	}

	if size < 0 {
		return invalid("size", "file size cannot be negative")
	}

	if size > c.MaxSize {
		return invalid("size", "file size exceeds maximum allowed size of %d bytes", c.MaxSize)
	}

	return c.ValidateExtension(filename)
}

// ValidateExtension checks only the extension of filename.
func (c FileConstraints) ValidateExtension(filename string) error {
	ext := strings.ToLower(Extension(filename))
	if !c.AllowedExtensions[ext] {
		return invalid("filename", "file type %q not allowed, supported types: %s", ext, strings.Join(c.allowed(), ", "))
	}
	return nil
}

func (c FileConstraints) allowed() []string {
	exts := make([]string, 0, len(c.AllowedExtensions))
	for ext := range c.AllowedExtensions {
		exts = append(exts, ext)
	}
	slices.Sort(exts)
	return exts
}

// Extension returns the substring from the last '.' of filename, dot included.
// A filename without a dot has no extension.
func Extension(filename string) string {
	i := strings.LastIndex(filename, ".")
	if i == -1 {
		return ""
	}
	return filename[i:]
}
