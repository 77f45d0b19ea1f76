// Package fileutil holds filesystem helpers shared by the ingest pipeline:
// atomic moves, content hashing, and filename sanitization.
package fileutil

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// hashChunkSize bounds memory use while hashing regardless of file size.
const hashChunkSize = 1 << 20

// MoveFile moves src to dst. Within one filesystem this is a single rename.
// Across filesystems it copies to a hidden staging name in dst's directory
// and renames into place, so the final name never exists partially written.
// The source is removed in either case.
func MoveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	} else if !isCrossDevice(err) {
		return err
	}

	staging := filepath.Join(filepath.Dir(dst), "."+filepath.Base(dst)+".part")

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(staging, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(staging)
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		os.Remove(staging)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(staging)
		return err
	}

	if err := os.Rename(staging, dst); err != nil {
		os.Remove(staging)
		return err
	}

	return os.Remove(src)
}

func isCrossDevice(err error) bool {
	var linkErr *os.LinkError
	if !errors.As(err, &linkErr) {
		return false
	}
	// EXDEV surfaces differently across platforms; match the message to
	// avoid a syscall dependency.
	msg := linkErr.Err.Error()
	return strings.Contains(msg, "cross-device") || strings.Contains(msg, "invalid cross-device link")
}

// HashFile computes the SHA-256 digest of the file contents, streaming in
// fixed-size chunks. Returns the lowercase hex digest.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	hasher := sha256.New()
	buf := make([]byte, hashChunkSize)
	if _, err := io.CopyBuffer(hasher, f, buf); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

var (
	unsafeChars  = regexp.MustCompile(`[^\w-]`)
	runsOfJoiner = regexp.MustCompile(`[\s_.-]+`)
)

// SanitizeFilename reduces a string to a safe slug-style filename fragment:
// ASCII, lowercase, underscore-joined, at most maxLength runes.
func SanitizeFilename(name string, maxLength int) string {
	var ascii strings.Builder
	for _, r := range name {
		if r < 128 {
			ascii.WriteRune(r)
		}
	}
	name = unsafeChars.ReplaceAllString(ascii.String(), " ")
	name = runsOfJoiner.ReplaceAllString(name, "_")
	name = strings.Trim(name, "_")
	name = strings.ToLower(name)
	if len(name) > maxLength {
		name = name[:maxLength]
	}
	return name
}
