package bucket_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/stackzip/pkg/bucket"
	"github.com/Sumatoshi-tech/stackzip/pkg/source"
)

var testNow = time.Date(2024, time.March, 10, 14, 30, 0, 0, time.UTC)

func fileAt(name string, daysAgo int, hour int) source.File {
	day := testNow.AddDate(0, 0, -daysAgo)

	return source.File{
		Path:    "/data/proj-1/" + name,
		ModTime: time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, time.UTC),
	}
}

func TestByDay_EveryFileInExactlyOneBucket(t *testing.T) {
	t.Parallel()

	var files []source.File
	for i := range 20 {
		files = append(files, fileAt(fmt.Sprintf("f%02d.json", i), i%5, i%24))
	}

	buckets := bucket.ByDay(files, time.UTC)
	require.Len(t, buckets, 5)
	assert.Equal(t, len(files), bucket.Count(buckets))

	seen := make(map[string]int)

	for _, b := range buckets {
		for _, f := range b.Files {
			seen[f.Path]++

			assert.Equal(t, b.Date(), f.ModTime.Format(bucket.DateLayout))
		}
	}

	for _, f := range files {
		assert.Equal(t, 1, seen[f.Path], f.Path)
	}
}

func TestByDay_OrderIsDeterministic(t *testing.T) {
	t.Parallel()

	files := []source.File{
		fileAt("c.json", 1, 3),
		fileAt("a.json", 3, 1),
		fileAt("b.json", 1, 2),
		fileAt("d.json", 3, 0),
	}

	buckets := bucket.ByDay(files, time.UTC)
	require.Len(t, buckets, 2)

	assert.Equal(t, "2024-03-07", buckets[0].Date())
	assert.Equal(t, []string{"/data/proj-1/a.json", "/data/proj-1/d.json"}, buckets[0].Paths())
	assert.Equal(t, "2024-03-09", buckets[1].Date())
	assert.Equal(t, []string{"/data/proj-1/c.json", "/data/proj-1/b.json"}, buckets[1].Paths())
}

func TestByDay_UsesLocalCalendarDay(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("UTC+5", 5*60*60)

	// 21:00 UTC on the 7th is 02:00 on the 8th at UTC+5.
	late := source.File{Path: "late", ModTime: time.Date(2024, 3, 7, 21, 0, 0, 0, time.UTC)}
	early := source.File{Path: "early", ModTime: time.Date(2024, 3, 7, 10, 0, 0, 0, time.UTC)}

	buckets := bucket.ByDay([]source.File{late, early}, loc)
	require.Len(t, buckets, 2)
	assert.Equal(t, "2024-03-07", buckets[0].Date())
	assert.Equal(t, "2024-03-08", buckets[1].Date())
}

func TestByDay_Empty(t *testing.T) {
	t.Parallel()

	assert.Empty(t, bucket.ByDay(nil, time.UTC))
}

func TestSubIdentity(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "alice", bucket.SubIdentity("tl-scrape-tweets-alice-20240301.json"))
	assert.Equal(t, "bob", bucket.SubIdentity("/x/y/tl-scrape-tweets-bob.json"))
	assert.Empty(t, bucket.SubIdentity("short-name.json"))
}

func TestBySubIdentityAndDay(t *testing.T) {
	t.Parallel()

	files := []source.File{
		fileAt("tl-s-t-bob-1.json", 3, 1),
		fileAt("tl-s-t-alice-1.json", 3, 1),
		fileAt("tl-s-t-alice-2.json", 3, 2),
		fileAt("tl-s-t-alicex-1.json", 3, 2),
		fileAt("tl-s-t-bob-2.json", 2, 1),
	}

	buckets := bucket.BySubIdentityAndDay(files, time.UTC)
	require.Len(t, buckets, 4)

	assert.Equal(t, "alice", buckets[0].SubIdentity)
	assert.Len(t, buckets[0].Files, 2)
	assert.Equal(t, "alicex", buckets[1].SubIdentity)
	assert.Len(t, buckets[1].Files, 1)
	assert.Equal(t, "bob", buckets[2].SubIdentity)
	assert.Equal(t, "2024-03-07", buckets[2].Date())
	assert.Equal(t, "bob", buckets[3].SubIdentity)
	assert.Equal(t, "2024-03-08", buckets[3].Date())
	assert.Equal(t, len(files), bucket.Count(buckets))
}
