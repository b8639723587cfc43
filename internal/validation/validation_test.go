package validation

import (
	"errors"
	"strings"
	"testing"
)

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantErr error
	}{
		{"relative", "data/pop.html", nil},
		{"absolute", "/srv/levelsheet/data/ordering.txt", nil},
		{"unicode", "data/GIGANTØMAKHIA.txt", nil},
		{"parent dir is allowed for inputs", "../shared/intl_del.txt", nil},
		{"empty", "", ErrEmptyPath},
		{"too long", strings.Repeat("a", MaxPathLength+1), ErrPathTooLong},
		{"null byte", "data/pop\x00.html", ErrInvalidCharacter},
		{"newline", "data/pop\n.html", ErrInvalidCharacter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePath(tt.path)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidatePath(%q) = %v, want nil", tt.path, err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidatePath(%q) = %v, want %v", tt.path, err, tt.wantErr)
			}
		})
	}
}

func TestValidateFilename(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		wantErr error
	}{
		{"bucket", "13.csv", nil},
		{"plus bucket", "14+.csv", nil},
		{"manifest", "manifest.json", nil},
		{"no extension", "15", nil},
		{"empty", "", ErrInvalidFilename},
		{"too long", strings.Repeat("a", MaxFilenameLength+1), ErrFilenameTooLong},
		{"dot", ".", ErrInvalidFilename},
		{"dot dot", "..", ErrInvalidFilename},
		{"slash", "../13.csv", ErrInvalidFilename},
		{"backslash", `a\b.csv`, ErrInvalidFilename},
		{"colon", "C:13.csv", ErrInvalidFilename},
		{"question mark", "13?.csv", ErrInvalidFilename},
		{"control", "13\t.csv", ErrInvalidFilename},
		{"hidden", ".csv", ErrInvalidFilename},
		{"hyphen", "-13.csv", ErrInvalidFilename},
		{"trailing dot", "13.", ErrInvalidFilename},
		{"trailing space", "13 ", ErrInvalidFilename},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFilename(tt.file)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateFilename(%q) = %v, want nil", tt.file, err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateFilename(%q) = %v, want %v", tt.file, err, tt.wantErr)
			}
		})
	}
}
