// Package bucket groups source files into calendar-day buckets and decides
// which buckets are ripe for archival.
package bucket

import (
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/Sumatoshi-tech/stackzip/pkg/source"
)

// DateLayout is the day-granularity key format.
const DateLayout = "2006-01-02"

// subIdentityIndex is the hyphen-delimited segment of a file name that carries
// the sub-identity in multi-identity mode.
const subIdentityIndex = 3

// Bucket is the set of files of one source directory (and optional
// sub-identity) last modified on the same local calendar day.
type Bucket struct {
	// Day is local midnight of the bucket's date.
	Day         time.Time
	SubIdentity string
	Files       []source.File
}

// Date returns the bucket key in YYYY-MM-DD form.
func (b Bucket) Date() string {
	return b.Day.Format(DateLayout)
}

// Paths returns the file paths in bucket order.
func (b Bucket) Paths() []string {
	paths := make([]string, len(b.Files))
	for i, f := range b.Files {
		paths[i] = f.Path
	}

	return paths
}

// DayOf truncates t to local midnight in loc.
func DayOf(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)

	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// ByDay partitions files by modification day in loc. Files keep their input
// order inside a bucket; buckets are returned in ascending date order.
func ByDay(files []source.File, loc *time.Location) []Bucket {
	return byDay(files, loc, "")
}

// BySubIdentityAndDay splits files by sub-identity first and then by day.
// Buckets are ordered by sub-identity, then date.
func BySubIdentityAndDay(files []source.File, loc *time.Location) []Bucket {
	groups := make(map[string][]source.File)

	var order []string

	for _, f := range files {
		id := SubIdentity(f.Name())
		if _, seen := groups[id]; !seen {
			order = append(order, id)
		}

		groups[id] = append(groups[id], f)
	}

	slices.Sort(order)

	var buckets []Bucket
	for _, id := range order {
		buckets = append(buckets, byDay(groups[id], loc, id)...)
	}

	return buckets
}

// SubIdentity returns the fourth hyphen-delimited segment of a file's base
// name with its extension removed, or "" when the name is too short.
func SubIdentity(name string) string {
	base := filepath.Base(name)

	segments := strings.Split(base, "-")
	if len(segments) <= subIdentityIndex {
		return ""
	}

	token := segments[subIdentityIndex]
	if len(segments) == subIdentityIndex+1 {
		token = strings.TrimSuffix(token, filepath.Ext(token))
	}

	return token
}

func byDay(files []source.File, loc *time.Location, subIdentity string) []Bucket {
	index := make(map[string]int)

	var buckets []Bucket

	for _, f := range files {
		day := DayOf(f.ModTime, loc)
		key := day.Format(DateLayout)

		pos, ok := index[key]
		if !ok {
			pos = len(buckets)
			index[key] = pos
			buckets = append(buckets, Bucket{Day: day, SubIdentity: subIdentity})
		}

		buckets[pos].Files = append(buckets[pos].Files, f)
	}

	slices.SortStableFunc(buckets, func(a, b Bucket) int {
		return a.Day.Compare(b.Day)
	})

	return buckets
}

// Count returns the number of files across buckets.
func Count(buckets []Bucket) int {
	total := 0
	for _, b := range buckets {
		total += len(b.Files)
	}

	return total
}
