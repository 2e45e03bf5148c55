package archive

import (
	"archive/tar"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Sumatoshi-tech/stackzip/pkg/source"
)

// ErrFileChanged is returned when a file changes size while it is archived.
var ErrFileChanged = errors.New("file changed while archiving")

// WriteTar writes every file into a compressed tar stream on w. Entries are
// named by base name. Any unreadable file aborts the whole stream.
func WriteTar(w io.Writer, codec Codec, files []source.File) error {
	zw, err := codec.NewWriter(w)
	if err != nil {
		return err
	}

	tw := tar.NewWriter(zw)

	for _, f := range files {
		err = addFile(tw, f.Path)
		if err != nil {
			return err
		}
	}

	err = tw.Close()
	if err != nil {
		return fmt.Errorf("close tar: %w", err)
	}

	err = zw.Close()
	if err != nil {
		return fmt.Errorf("close %s stream: %w", codec.Name(), err)
	}

	return nil
}

func addFile(tw *tar.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", filepath.Base(path), err)
	}

	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return fmt.Errorf("tar header %s: %w", filepath.Base(path), err)
	}

	hdr.Name = filepath.Base(path)

	err = tw.WriteHeader(hdr)
	if err != nil {
		return fmt.Errorf("write header %s: %w", hdr.Name, err)
	}

	written, err := io.Copy(tw, f)
	if err != nil {
		return fmt.Errorf("write %s: %w", hdr.Name, err)
	}

	if written != hdr.Size {
		return fmt.Errorf("%w: %s", ErrFileChanged, hdr.Name)
	}

	return nil
}

// Entry is one member of an artifact.
type Entry struct {
	Name string
	Size int64
	// SHA256 is the hex digest of the member's content.
	SHA256 string
}

// ReadEntries lists the members of a compressed tar stream with a digest of
// each body.
func ReadEntries(r io.Reader, codec Codec) ([]Entry, error) {
	zr, err := codec.NewReader(r)
	if err != nil {
		return nil, err
	}

	tr := tar.NewReader(zr)

	var entries []Entry

	for {
		hdr, nextErr := tr.Next()
		if errors.Is(nextErr, io.EOF) {
			return entries, nil
		}

		if nextErr != nil {
			return nil, fmt.Errorf("read tar: %w", nextErr)
		}

		hash := sha256.New()

		_, err = io.Copy(hash, tr)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", hdr.Name, err)
		}

		entries = append(entries, Entry{
			Name:   hdr.Name,
			Size:   hdr.Size,
			SHA256: hex.EncodeToString(hash.Sum(nil)),
		})
	}
}

// Covers reports whether entries hold every file byte for byte. Two source
// directories may share a destination and an artifact name, so equal names
// and sizes are not enough.
func Covers(entries []Entry, files []source.File) (bool, error) {
	byName := make(map[string]Entry, len(entries))
	for _, e := range entries {
		byName[e.Name] = e
	}

	for _, f := range files {
		e, ok := byName[f.Name()]
		if !ok || e.Size != f.Size {
			return false, nil
		}

		sum, err := fileDigest(f.Path)
		if err != nil {
			return false, err
		}

		if sum != e.SHA256 {
			return false, nil
		}
	}

	return true, nil
}

func fileDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	hash := sha256.New()

	_, err = io.Copy(hash, f)
	if err != nil {
		return "", fmt.Errorf("hash %s: %w", filepath.Base(path), err)
	}

	return hex.EncodeToString(hash.Sum(nil)), nil
}
