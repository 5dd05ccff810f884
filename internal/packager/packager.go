// Package packager builds the deployment archive uploaded to Lambda.
//
// Archives hold a single entry and are byte-for-byte reproducible, so the
// source_code_hash only changes when the source file does.
package packager

import (
	"archive/zip"
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

const (
	DefaultSource = "lambda_function.py"
	DefaultOutput = "lambda_function.zip"

	// BootstrapName is the entry name the provided.al2023 runtime executes.
	BootstrapName = "bootstrap"
)

// ErrEmptySource is returned when the source path is blank.
var ErrEmptySource = errors.New("source file is required")

// modTime is the earliest timestamp the zip format can hold.
var modTime = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

// Result describes a written archive.
type Result struct {
	Path         string
	Size         int64
	Base64SHA256 string
}

// Zip writes source as the only entry of the archive at output.
// An empty output defaults to the source name with a .zip extension.
func Zip(source, output string) (Result, error) {
	if source == "" {
		return Result{}, ErrEmptySource
	}
	if output == "" {
		output = OutputFor(source)
	}

	src, err := os.ReadFile(source)
	if err != nil {
		return Result{}, fmt.Errorf("reading source %s: %w", source, err)
	}

	data, err := archive(filepath.Base(source), src)
	if err != nil {
		return Result{}, err
	}

	if dir := filepath.Dir(output); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Result{}, fmt.Errorf("creating output dir: %w", err)
		}
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return Result{}, fmt.Errorf("writing archive %s: %w", output, err)
	}

	return Result{
		Path:         output,
		Size:         int64(len(data)),
		Base64SHA256: hash(data),
	}, nil
}

// OutputFor derives the archive name for a source file.
func OutputFor(source string) string {
	ext := filepath.Ext(source)
	return source[:len(source)-len(ext)] + ".zip"
}

// FileHash returns the base64 encoded SHA-256 of the file at path, the
// format Lambda reports as CodeSha256.
func FileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return base64.StdEncoding.EncodeToString(h.Sum(nil)), nil
}

func archive(name string, content []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	hdr := &zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: modTime,
	}
	if name == BootstrapName {
		hdr.SetMode(0o755)
	} else {
		hdr.SetMode(0o644)
	}

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return nil, fmt.Errorf("creating zip entry: %w", err)
	}
	if _, err := w.Write(content); err != nil {
		return nil, fmt.Errorf("writing zip entry: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("closing zip: %w", err)
	}
	return buf.Bytes(), nil
}

func hash(data []byte) string {
	sum := sha256.Sum256(data)
	return base64.StdEncoding.EncodeToString(sum[:])
}
