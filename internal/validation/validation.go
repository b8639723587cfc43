// Package validation checks user-supplied paths and generated file names
// before they reach the filesystem.
package validation

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// Length limits.
const (
	// MaxFilenameLength is the maximum allowed filename length.
	MaxFilenameLength = 255
	// MaxPathLength is the maximum allowed path length.
	MaxPathLength = 4096
)

// Common validation errors.
var (
	ErrInvalidFilename  = errors.New("invalid filename")
	ErrPathTooLong      = errors.New("path too long")
	ErrFilenameTooLong  = errors.New("filename too long")
	ErrInvalidCharacter = errors.New("invalid character in path")
	ErrEmptyPath        = errors.New("path cannot be empty")
)

// reservedChars cannot appear in a file name on at least one supported
// platform.
const reservedChars = `/\<>:"|?*`

// ValidatePath checks an input path for emptiness, length and control
// characters. It does not require the path to exist.
func ValidatePath(path string) error {
	if path == "" {
		return ErrEmptyPath
	}
	if len(path) > MaxPathLength {
		return ErrPathTooLong
	}
	for _, r := range path {
		if r == 0 {
			return fmt.Errorf("%w: null byte not allowed", ErrInvalidCharacter)
		}
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: control character not allowed", ErrInvalidCharacter)
		}
	}
	return nil
}

// ValidateFilename checks that name can be used as a single file name in
// an output directory on every platform. Bucket names such as "13+" pass;
// anything that could escape the directory, hide the file or clash with a
// temp file does not.
func ValidateFilename(name string) error {
	if name == "" {
		return ErrInvalidFilename
	}
	if len(name) > MaxFilenameLength {
		return ErrFilenameTooLong
	}
	if name == "." || name == ".." {
		return fmt.Errorf("%w: reserved name", ErrInvalidFilename)
	}
	if i := strings.IndexAny(name, reservedChars); i >= 0 {
		return fmt.Errorf("%w: %q not allowed", ErrInvalidFilename, name[i])
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: control character not allowed", ErrInvalidFilename)
		}
	}
	switch {
	case strings.HasPrefix(name, "."):
		return fmt.Errorf("%w: hidden file names not allowed", ErrInvalidFilename)
	case strings.HasPrefix(name, "-"):
		return fmt.Errorf("%w: filename cannot start with hyphen", ErrInvalidFilename)
	case strings.HasSuffix(name, ".") || strings.HasSuffix(name, " "):
		return fmt.Errorf("%w: trailing dot or space not allowed", ErrInvalidFilename)
	}
	return nil
}
