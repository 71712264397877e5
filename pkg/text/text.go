// Package text holds small pure formatting helpers for presenting
// review times and furigana.
package text

import (
	"fmt"
	"time"
)

func pluralize(value int, unit string) string {
	if value == 1 {
		return fmt.Sprintf("%d %s", value, unit)
	}
	return fmt.Sprintf("%d %ss", value, unit)
}

// ApproximateDuration renders d using its two most significant units,
// e.g. "1 hour and 5 minutes" or "2 weeks and 3 days". Durations
// under a minute render as "less than a minute".
func ApproximateDuration(d time.Duration) string {
	const (
		minute = time.Minute
		hour   = time.Hour
		day    = 24 * hour
		week   = 7 * day
		month  = 30 * day
		year   = 365 * day
	)

	years := int(d / year)
	d %= year
	months := int(d / month)
	d %= month
	weeks := int(d / week)
	d %= week
	days := int(d / day)
	d %= day
	hours := int(d / hour)
	d %= hour
	minutes := int(d / minute)

	join := func(first, second string) string {
		return first + " and " + second
	}

	switch {
	case years > 0:
		if months > 0 {
			return join(pluralize(years, "year"), pluralize(months, "month"))
		}
		return pluralize(years, "year")
	case months > 0:
		if weeks > 0 {
			return join(pluralize(months, "month"), pluralize(weeks, "week"))
		}
		return pluralize(months, "month")
	case weeks > 0:
		if days > 0 {
			return join(pluralize(weeks, "week"), pluralize(days, "day"))
		}
		return pluralize(weeks, "week")
	case days > 0:
		if hours > 0 {
			return join(pluralize(days, "day"), pluralize(hours, "hour"))
		}
		return pluralize(days, "day")
	case hours > 0:
		if minutes > 0 {
			return join(pluralize(hours, "hour"), pluralize(minutes, "minute"))
		}
		return pluralize(hours, "hour")
	case minutes > 0:
		return pluralize(minutes, "minute")
	default:
		return "less than a minute"
	}
}

// Segment pairs a run of written text with the part of the reading
// that covers it.
type Segment struct {
	Kanji   string
	Reading string
}

// SegmentReading splits a written form and its full reading into up
// to three segments by peeling off the shared prefix and suffix,
// leaving the kanji run paired with its furigana in the middle:
// 食べる / たべる → [食:た][べる:べる].
func SegmentReading(kanji, reading string) []Segment {
	k := []rune(kanji)
	r := []rune(reading)

	var prefix Segment
	for len(k) > 0 && len(r) > 0 && k[0] == r[0] {
		prefix.Kanji += string(k[0])
		prefix.Reading += string(r[0])
		k = k[1:]
		r = r[1:]
	}

	var suffix Segment
	for len(k) > 0 && len(r) > 0 && k[len(k)-1] == r[len(r)-1] {
		suffix.Kanji = string(k[len(k)-1]) + suffix.Kanji
		suffix.Reading = string(r[len(r)-1]) + suffix.Reading
		k = k[:len(k)-1]
		r = r[:len(r)-1]
	}

	var segments []Segment
	if prefix.Kanji != "" {
		segments = append(segments, prefix)
	}
	segments = append(segments, Segment{Kanji: string(k), Reading: string(r)})
	if suffix.Kanji != "" {
		segments = append(segments, suffix)
	}
	return segments
}
