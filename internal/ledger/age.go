package ledger

import "time"

// Ageing bucket labels, ordered youngest to oldest.
const (
	BucketUnder6Months   = "<6 months"
	Bucket6MonthsTo1Year = "6 months - 1 year"
	Bucket1To2Years      = "1 - 2 years"
	Bucket2To3Years      = "2 - 3 years"
	Bucket3To5Years      = "3 - 5 years"
	BucketOver5Years     = ">5 years"

	// BucketUnknown is assigned when the posting date is missing or did not
	// parse. Such rows still count toward every total.
	BucketUnknown = "Unknown"
)

// ageBuckets holds the exclusive upper bound in days for each bucket, i.e.
// a row with AgeDays in [prev upper, upper) gets the label. Ages of 1825
// days and above fall through to BucketOver5Years.
var ageBuckets = []struct {
	upperDays int
	label     string
}{
	{180, BucketUnder6Months},
	{365, Bucket6MonthsTo1Year},
	{730, Bucket1To2Years},
	{1095, Bucket2To3Years},
	{1825, Bucket3To5Years},
}

// AgeDays returns the whole number of days between the posting date and the
// reference date. Both are truncated to calendar dates first so time of day
// and timezone never shift a row across a bucket boundary. The result is
// negative when the posting date lies after the reference date.
func AgeDays(ref, posting time.Time) int {
	refDay := toUTCDate(ref)
	postingDay := toUTCDate(posting)
	return int(refDay.Sub(postingDay).Hours() / 24)
}

func toUTCDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ClassifyAge maps a posting date to its ageing bucket relative to the
// reference date. A nil posting date yields BucketUnknown; every other input
// lands in exactly one bucket, negative ages included.
func ClassifyAge(ref time.Time, posting *time.Time) string {
	if posting == nil {
		return BucketUnknown
	}
	return classifyAgeDays(AgeDays(ref, *posting))
}

func classifyAgeDays(days int) string {
	for _, b := range ageBuckets {
		if days < b.upperDays {
			return b.label
		}
	}
	return BucketOver5Years
}
