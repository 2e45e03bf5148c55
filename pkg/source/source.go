// Package source lists and classifies the files of a collector output directory.
package source

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Name fragments that classify directory entries.
const (
	markerFragment   = "processed"
	artifactFragment = ".tar."
)

// Subfolder names maintained inside each source directory.
const (
	ArchiveDirName          = "archive"
	ProcessedArchiveDirName = "processed_archive"
)

// Sentinel errors.
var (
	ErrNotDirectory       = errors.New("source path is not a directory")
	ErrProjectUnparseable = errors.New("project name cannot be identified from path")
)

// Kind classifies a file found in a source directory.
type Kind int

// File kinds.
const (
	KindCandidate Kind = iota
	KindMarker
	KindArtifact
)

// String returns the lowercase kind name.
func (k Kind) String() string {
	switch k {
	case KindCandidate:
		return "candidate"
	case KindMarker:
		return "marker"
	case KindArtifact:
		return "artifact"
	default:
		return "unknown"
	}
}

// File is a regular file discovered in a source directory.
type File struct {
	Path    string
	ModTime time.Time
	Size    int64
}

// Name returns the file's base name.
func (f File) Name() string {
	return filepath.Base(f.Path)
}

// Listing is the classified content of one source directory.
type Listing struct {
	Dir        string
	Candidates []File
	Markers    []File
	Artifacts  []File
}

// Classify returns the kind of a file by its base name.
func Classify(name string) Kind {
	switch {
	case strings.Contains(name, markerFragment):
		return KindMarker
	case strings.Contains(name, artifactFragment):
		return KindArtifact
	default:
		return KindCandidate
	}
}

// Scan lists regular files directly inside dir, in lexical order.
// Subdirectories and non-regular entries are ignored.
func Scan(dir string) (*Listing, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("stat source dir: %w", err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read source dir: %w", err)
	}

	listing := &Listing{Dir: dir}

	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}

		fi, infoErr := entry.Info()
		if infoErr != nil {
			// Removed between ReadDir and Info.
			if errors.Is(infoErr, fs.ErrNotExist) {
				continue
			}

			return nil, fmt.Errorf("stat %s: %w", entry.Name(), infoErr)
		}

		file := File{
			Path:    filepath.Join(dir, entry.Name()),
			ModTime: fi.ModTime(),
			Size:    fi.Size(),
		}

		switch Classify(entry.Name()) {
		case KindMarker:
			listing.Markers = append(listing.Markers, file)
		case KindArtifact:
			listing.Artifacts = append(listing.Artifacts, file)
		default:
			listing.Candidates = append(listing.Candidates, file)
		}
	}

	return listing, nil
}

// ProjectName derives the project identity from a source path. Exactly one
// path segment must contain a hyphen; the project is the part before it.
func ProjectName(dir string) (string, error) {
	var hyphenated []string

	for _, segment := range strings.Split(filepath.ToSlash(filepath.Clean(dir)), "/") {
		if strings.Contains(segment, "-") {
			hyphenated = append(hyphenated, segment)
		}
	}

	if len(hyphenated) != 1 {
		return "", fmt.Errorf("%w: %s", ErrProjectUnparseable, dir)
	}

	project, _, _ := strings.Cut(hyphenated[0], "-")
	if project == "" {
		return "", fmt.Errorf("%w: %s", ErrProjectUnparseable, dir)
	}

	return project, nil
}
