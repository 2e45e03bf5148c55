package version_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Sumatoshi-tech/stackzip/pkg/version"
)

func TestString_ContainsMetadata(t *testing.T) {
	version.InitBinaryVersion()

	out := version.String()
	assert.Contains(t, out, "stackzip ")
	assert.Contains(t, out, version.Version)
	assert.Contains(t, out, "commit: "+version.Commit)
	assert.Contains(t, out, "built: "+version.Date)
}
