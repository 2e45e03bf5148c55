package archive

import (
	"strconv"
	"strings"
)

// NameParts identifies one artifact.
type NameParts struct {
	Server      string
	Project     string
	SubIdentity string
	Date        string
}

// Name returns "<server>-<project>[-<subid>]-<date><ext>".
func Name(parts NameParts, codec Codec) string {
	return stem(parts) + codec.Extension()
}

// SequencedName returns the artifact name for the seq-th collision. Sequence
// zero is the plain name; later ones insert "-<seq>" before the extension.
func SequencedName(parts NameParts, codec Codec, seq int) string {
	if seq == 0 {
		return Name(parts, codec)
	}

	return stem(parts) + "-" + strconv.Itoa(seq) + codec.Extension()
}

func stem(parts NameParts) string {
	fields := []string{parts.Server, parts.Project}
	if parts.SubIdentity != "" {
		fields = append(fields, parts.SubIdentity)
	}

	fields = append(fields, parts.Date)

	return strings.Join(fields, "-")
}
