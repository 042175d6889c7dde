/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package migration

import (
	"cmp"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// DefaultFileExtension is the extension change-unit files carry unless overridden.
const DefaultFileExtension = ".sql"

// changeUnitNameRegexp matches m<14-digit-version>_<name> with the extension stripped.
var changeUnitNameRegexp = regexp.MustCompile(`^m(\d{14})_(.+)$`)

// ChangeUnit is a single versioned migration file discovered on disk.
type ChangeUnit struct {
	// Version is the 14-digit numeric version parsed from the filename, typically a yyyymmddhhmmss timestamp.
	Version int64

	// Name is the descriptive part of the filename between the version and the extension.
	Name string

	// Path is the full path of the discovered file.
	Path string

	// Checksum is the lowercase hex SHA-256 digest of the file contents.
	Checksum string
}

// DiscoverOption is an option for change-unit discovery.
type DiscoverOption func(o *discoverOptions)

type discoverOptions struct {
	extension string
}

// WithFileExtension overrides the file extension discovery looks for.
// The extension must include the leading dot.
func WithFileExtension(ext string) DiscoverOption {
	return func(o *discoverOptions) {
		o.extension = ext
	}
}

// DiscoverChangeUnits scans dir for change-unit files, computes their checksums
// and returns them sorted by ascending version. Files that do not carry the
// configured extension are skipped; files that carry it but do not match the
// naming convention produce an InvalidNameError. Two files sharing a version
// produce a DuplicateVersionError.
func DiscoverChangeUnits(dir string, options ...DiscoverOption) ([]ChangeUnit, error) {
	opts := discoverOptions{extension: DefaultFileExtension}
	for _, opt := range options {
		opt(&opts)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations directory %q: %w", dir, err)
	}

	seen := make(map[int64]string)
	var units []ChangeUnit
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), opts.extension) {
			continue
		}
		version, name, err := ParseChangeUnitFilename(entry.Name())
		if err != nil {
			return nil, err
		}
		path := filepath.Join(dir, entry.Name())
		if prev, ok := seen[version]; ok {
			return nil, &DuplicateVersionError{Version: version, Paths: [2]string{prev, path}}
		}
		seen[version] = path

		checksum, err := FileChecksum(path)
		if err != nil {
			return nil, err
		}
		units = append(units, ChangeUnit{Version: version, Name: name, Path: path, Checksum: checksum})
	}

	slices.SortFunc(units, func(a, b ChangeUnit) int {
		return cmp.Compare(a.Version, b.Version)
	})
	return units, nil
}

// ParseChangeUnitFilename extracts the version and name from a change-unit
// filename of the form m<14-digit-version>_<name>.<ext>.
func ParseChangeUnitFilename(filename string) (version int64, name string, err error) {
	base := filename
	if ext := filepath.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	match := changeUnitNameRegexp.FindStringSubmatch(base)
	if match == nil {
		return 0, "", &InvalidNameError{Filename: filename}
	}
	version, err = strconv.ParseInt(match[1], 10, 64)
	if err != nil {
		return 0, "", &InvalidNameError{Filename: filename}
	}
	return version, match[2], nil
}

// FileChecksum returns the lowercase hex SHA-256 digest of the file at path.
func FileChecksum(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read change unit %q: %w", path, err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
