package archive

import (
	"path"
)

// Destination chooses the sink for a source directory's artifacts.
type Destination interface {
	SinkFor(sourceDir, server, project string) Sink
}

// LocalDestination keeps artifacts in a tar_files directory next to the source.
type LocalDestination struct{}

// SinkFor implements Destination.
func (LocalDestination) SinkFor(sourceDir, _, _ string) Sink {
	return &DirSink{Dir: LocalDir(sourceDir)}
}

// VolumeDestination relocates artifacts to <Root>/<server>/<project>.
type VolumeDestination struct {
	Root string
}

// SinkFor implements Destination.
func (d VolumeDestination) SinkFor(_, server, project string) Sink {
	return &DirSink{Dir: VolumeDir(d.Root, server, project), Root: d.Root}
}

// S3Destination uploads artifacts under <Prefix>/<server>/<project>/.
type S3Destination struct {
	Client  S3API
	Bucket  string
	Prefix  string
	Staging string
}

// SinkFor implements Destination.
func (d S3Destination) SinkFor(_, server, project string) Sink {
	return &S3Sink{
		Client:  d.Client,
		Bucket:  d.Bucket,
		Prefix:  path.Join(d.Prefix, server, project),
		Staging: d.Staging,
	}
}
