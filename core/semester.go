package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type Season int

const (
	Spring Season = iota
	Summer
	Fall
)

var (
	seasonCodes = map[string]Season{"sp": Spring, "su": Summer, "fa": Fall}
	seasonNames = map[Season]string{Spring: "Spring", Summer: "Summer", Fall: "Fall"}

	// first month of each season
	seasonStarts = map[Season]time.Month{Spring: time.January, Summer: time.June, Fall: time.August}

	NowFunc = time.Now // mockable
)

// Semester identifies an academic term, e.g. "fa2024".
type Semester struct {
	Season Season
	Year   int
}

// ParseSemester parses codes like "fa2024", "sp24" or "Fall 2024".
func ParseSemester(s string) (Semester, error) {
	s = strings.ToLower(strings.Join(strings.Fields(s), ""))
	if len(s) < 4 {
		return Semester{}, fmt.Errorf("invalid semester %q", s)
	}

	var season Season
	var rest string
	found := false
	for code, ssn := range seasonCodes {
		if strings.HasPrefix(s, code) {
			season, found = ssn, true
			rest = strings.TrimLeft(s[len(code):], "abcdefghijklmnopqrstuvwxyz")
			break
		}
	}
	if !found {
		return Semester{}, fmt.Errorf("invalid semester season %q", s)
	}

	year, err := strconv.Atoi(rest)
	if err != nil || year < 0 {
		return Semester{}, fmt.Errorf("invalid semester year %q", s)
	}
	switch len(rest) {
	case 2:
		year += 2000
	case 4:
	default:
		return Semester{}, fmt.Errorf("invalid semester year %q", s)
	}
	return Semester{Season: season, Year: year}, nil
}

// SemesterOf returns the semester t falls in.
func SemesterOf(t time.Time) Semester {
	season := Spring
	switch m := t.Month(); {
	case m >= seasonStarts[Fall]:
		season = Fall
	case m >= seasonStarts[Summer]:
		season = Summer
	}
	return Semester{Season: season, Year: t.Year()}
}

// CurrentSemester returns the semester containing NowFunc().
func CurrentSemester() Semester {
	return SemesterOf(NowFunc())
}

func (s Semester) Start(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(s.Year, seasonStarts[s.Season], 1, 0, 0, 0, 0, loc)
}

// Before reports whether s is an earlier semester than other.
func (s Semester) Before(other Semester) bool {
	if s.Year != other.Year {
		return s.Year < other.Year
	}
	return s.Season < other.Season
}

// Code returns the short form, e.g. "fa2024".
func (s Semester) Code() string {
	for code, ssn := range seasonCodes {
		if ssn == s.Season {
			return fmt.Sprintf("%s%04d", code, s.Year)
		}
	}
	return ""
}

func (s Semester) String() string {
	return fmt.Sprintf("%s %d", seasonNames[s.Season], s.Year)
}
