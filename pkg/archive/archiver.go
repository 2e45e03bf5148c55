package archive

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/Sumatoshi-tech/stackzip/pkg/source"
)

// maxSequence bounds the search for a free artifact name.
const maxSequence = 100

// Sentinel errors.
var (
	ErrNoFiles       = errors.New("bucket has no files")
	ErrNameExhausted = errors.New("no free artifact name")
)

// Request describes one bucket to archive.
type Request struct {
	Parts NameParts
	Files []source.File
	Sink  Sink
}

// Result describes a committed (or reused) artifact.
type Result struct {
	Name     string
	Location string
	Files    int
	Bytes    int64
	SHA256   string
	// Reused is set when an identical artifact was already at the destination
	// and nothing new was written.
	Reused bool
}

// Archiver builds artifacts with a codec and commits them to sinks.
type Archiver struct {
	Codec Codec
	// StagingDir overrides the sink's staging directory when set.
	StagingDir string
}

// New creates an archiver for codec.
func New(codec Codec) *Archiver {
	return &Archiver{Codec: codec}
}

// Archive writes one artifact for req. On error nothing is left at the final
// location and the staged file is removed.
func (a *Archiver) Archive(ctx context.Context, req Request) (Result, error) {
	if len(req.Files) == 0 {
		return Result{}, ErrNoFiles
	}

	err := req.Sink.Prepare(ctx)
	if err != nil {
		return Result{}, err
	}

	name, reused, err := a.resolveName(ctx, req)
	if err != nil {
		return Result{}, err
	}

	if reused {
		return Result{
			Name:     name,
			Location: req.Sink.Location(name),
			Files:    len(req.Files),
			Reused:   true,
		}, nil
	}

	staged, size, sum, err := a.stage(req, name)
	if err != nil {
		return Result{}, err
	}

	err = req.Sink.Commit(ctx, staged, name)
	if err != nil {
		os.Remove(staged)

		return Result{}, fmt.Errorf("commit %s: %w", name, err)
	}

	return Result{
		Name:     name,
		Location: req.Sink.Location(name),
		Files:    len(req.Files),
		Bytes:    size,
		SHA256:   sum,
	}, nil
}

// resolveName finds the first sequenced name that is either free or already
// holds the exact content of every file of the bucket.
func (a *Archiver) resolveName(ctx context.Context, req Request) (string, bool, error) {
	for seq := range maxSequence {
		name := SequencedName(req.Parts, a.Codec, seq)

		rc, err := req.Sink.Open(ctx, name)
		if errors.Is(err, fs.ErrNotExist) {
			return name, false, nil
		}

		if err != nil {
			return "", false, err
		}

		entries, readErr := ReadEntries(rc, a.Codec)
		rc.Close()

		if readErr != nil {
			// An unreadable artifact is never overwritten; try the next name.
			continue
		}

		covered, err := Covers(entries, req.Files)
		if err != nil {
			return "", false, err
		}

		if covered {
			return name, true, nil
		}
	}

	return "", false, fmt.Errorf("%w: %s", ErrNameExhausted, Name(req.Parts, a.Codec))
}

func (a *Archiver) stage(req Request, name string) (string, int64, string, error) {
	dir := a.StagingDir
	if dir == "" {
		dir = req.Sink.StagingDir()
	}

	tmp, err := os.CreateTemp(dir, "."+name+".tmp-*")
	if err != nil {
		return "", 0, "", fmt.Errorf("create staging file: %w", err)
	}

	fail := func(err error) (string, int64, string, error) {
		tmp.Close()
		os.Remove(tmp.Name())

		return "", 0, "", err
	}

	hash := sha256.New()
	counter := &countingWriter{}

	err = WriteTar(io.MultiWriter(tmp, hash, counter), a.Codec, req.Files)
	if err != nil {
		return fail(fmt.Errorf("write %s: %w", name, err))
	}

	err = tmp.Sync()
	if err != nil {
		return fail(fmt.Errorf("sync %s: %w", name, err))
	}

	err = tmp.Close()
	if err != nil {
		return fail(fmt.Errorf("close %s: %w", name, err))
	}

	return tmp.Name(), counter.n, hex.EncodeToString(hash.Sum(nil)), nil
}

type countingWriter struct {
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	c.n += int64(len(p))

	return len(p), nil
}
