package ygodb

import (
	"fmt"
	"regexp"
)

var (
	japaneseDate = regexp.MustCompile(`(\d{4})年(\d{2})月(\d{2})日`)
	yearFirst    = regexp.MustCompile(`(\d{4})/(\d{2})/(\d{2})`)
	yearLast     = regexp.MustCompile(`(\d{2})/(\d{2})/(\d{4})`)
)

func isoDate(year, month, day string) string {
	return fmt.Sprintf("%s-%s-%s", year, month, day)
}

// ParseJapaneseDate reads "2024年04月27日".
func ParseJapaneseDate(text string) (string, bool) {
	match := japaneseDate.FindStringSubmatch(text)
	if match == nil {
		return "", false
	}
	return isoDate(match[1], match[2], match[3]), true
}

// ParseYYYYMMDD reads "2024/04/27".
func ParseYYYYMMDD(text string) (string, bool) {
	match := yearFirst.FindStringSubmatch(text)
	if match == nil {
		return "", false
	}
	return isoDate(match[1], match[2], match[3]), true
}

// ParseMMDDYYYY reads "04/27/2024".
func ParseMMDDYYYY(text string) (string, bool) {
	match := yearLast.FindStringSubmatch(text)
	if match == nil {
		return "", false
	}
	return isoDate(match[3], match[1], match[2]), true
}

// ParseDDMMYYYY reads "27/04/2024".
func ParseDDMMYYYY(text string) (string, bool) {
	match := yearLast.FindStringSubmatch(text)
	if match == nil {
		return "", false
	}
	return isoDate(match[3], match[2], match[1]), true
}

// ParseReleaseDate picks the date format a locale prints release dates in
// and normalizes it to YYYY-MM-DD.
func ParseReleaseDate(locale, text string) (string, bool) {
	switch locale {
	case "ja":
		return ParseJapaneseDate(text)
	case "ko":
		return ParseYYYYMMDD(text)
	case "en":
		return ParseMMDDYYYY(text)
	default:
		return ParseDDMMYYYY(text)
	}
}
