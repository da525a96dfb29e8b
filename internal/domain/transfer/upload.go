package transfer

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// DefaultMaxUploadBytes bounds an uploaded document
const DefaultMaxUploadBytes = 2 << 20

var (
	ErrUnsupportedFile = errors.New("only .htm and .html files can be imported")
	ErrTooLarge        = errors.New("file exceeds the upload limit")
	ErrNotText         = errors.New("file content is not text")
)

var allowedExtensions = map[string]bool{".htm": true, ".html": true}

var textTypes = []string{"text/html", "text/plain", "application/xhtml+xml"}

// ReadUpload reads at most maxBytes of an uploaded file and validates it
func ReadUpload(r io.Reader, filename string, maxBytes int64) ([]byte, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	if err := checkExtension(filename); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w (%d bytes)", ErrTooLarge, maxBytes)
	}
	if err := Validate(filename, data); err != nil {
		return nil, err
	}
	return data, nil
}

// Validate checks the extension and sniffed content type of an upload
func Validate(filename string, data []byte) error {
	if err := checkExtension(filename); err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}

	detected := mimetype.Detect(data)
	for m := detected; m != nil; m = m.Parent() {
		for _, t := range textTypes {
			if m.Is(t) {
				return nil
			}
		}
	}
	return fmt.Errorf("%w: detected %s", ErrNotText, detected.String())
}

func checkExtension(filename string) error {
	if !allowedExtensions[strings.ToLower(filepath.Ext(filename))] {
		return fmt.Errorf("%w: %q", ErrUnsupportedFile, filename)
	}
	return nil
}
