package bucket

import "time"

// minFiles is the smallest bucket size archived under the normal rule.
const minFiles = 2

// Reason explains an eligibility decision.
type Reason string

// Eligibility outcomes.
const (
	ReasonEligible    Reason = "eligible"
	ReasonTooRecent   Reason = "too_recent"
	ReasonSingleFile  Reason = "single_file"
	ReasonForcedAging Reason = "forced_single"
)

// Policy decides which buckets may be archived.
type Policy struct {
	// ForceSingleAfterDays makes single-file buckets eligible once they are at
	// least this many calendar days old. Zero never archives single files.
	ForceSingleAfterDays int
}

// DaysBetween returns the number of whole calendar days from day to today,
// both interpreted in today's location.
func DaysBetween(day, today time.Time) int {
	loc := today.Location()
	from := DayOf(day, loc)
	to := DayOf(today, loc)

	// Compare on UTC calendar dates so DST shifts cannot skew the count.
	fromUTC := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	toUTC := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)

	return int(toUTC.Sub(fromUTC).Hours() / 24)
}

// Past reports whether day lies strictly more than one calendar day before
// today, i.e. it is neither today nor yesterday.
func Past(day, today time.Time) bool {
	return DaysBetween(day, today) > 1
}

// Evaluate returns whether b is eligible on today and why.
func (p Policy) Evaluate(b Bucket, today time.Time) (bool, Reason) {
	if !Past(b.Day, today) {
		return false, ReasonTooRecent
	}

	if len(b.Files) >= minFiles {
		return true, ReasonEligible
	}

	if p.ForceSingleAfterDays > 0 && len(b.Files) == 1 && DaysBetween(b.Day, today) >= p.ForceSingleAfterDays {
		return true, ReasonForcedAging
	}

	return false, ReasonSingleFile
}

// Eligible reports whether b is eligible under the default policy.
func Eligible(b Bucket, today time.Time) bool {
	ok, _ := Policy{}.Evaluate(b, today)

	return ok
}
