package ygodb_test

import (
	"superdb/internal/ygodb"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDateParsers(t *testing.T) {
	testCases := []struct {
		name     string
		parse    func(string) (string, bool)
		text     string
		expected string
		ok       bool
	}{
		{name: "japanese", parse: ygodb.ParseJapaneseDate, text: "発売日：2024年04月27日", expected: "2024-04-27", ok: true},
		{name: "japanese mismatch", parse: ygodb.ParseJapaneseDate, text: "2024/04/27", ok: false},
		{name: "year first", parse: ygodb.ParseYYYYMMDD, text: "출시일 2023/11/09", expected: "2023-11-09", ok: true},
		{name: "year first mismatch", parse: ygodb.ParseYYYYMMDD, text: "09/11/2023", ok: false},
		{name: "month first", parse: ygodb.ParseMMDDYYYY, text: "Release Date: 03/08/2002", expected: "2002-03-08", ok: true},
		{name: "month first mismatch", parse: ygodb.ParseMMDDYYYY, text: "March 8, 2002", ok: false},
		{name: "day first", parse: ygodb.ParseDDMMYYYY, text: "Date de sortie : 08/03/2002", expected: "2002-03-08", ok: true},
		{name: "day first mismatch", parse: ygodb.ParseDDMMYYYY, text: "", ok: false},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			date, ok := test.parse(test.text)
			require.Equal(t, test.ok, ok)
			require.Equal(t, test.expected, date)
		})
	}
}

func TestParseReleaseDate(t *testing.T) {
	testCases := []struct {
		locale   string
		text     string
		expected string
	}{
		{locale: "ja", text: "2024年04月27日", expected: "2024-04-27"},
		{locale: "ko", text: "2024/04/27", expected: "2024-04-27"},
		{locale: "en", text: "04/27/2024", expected: "2024-04-27"},
		{locale: "fr", text: "27/04/2024", expected: "2024-04-27"},
		{locale: "de", text: "27/04/2024", expected: "2024-04-27"},
		{locale: "en", text: "27/04/2024", expected: "2024-27-04"},
	}
	for _, test := range testCases {
		date, ok := ygodb.ParseReleaseDate(test.locale, test.text)
		require.True(t, ok)
		require.Equal(t, test.expected, date, test.locale)
	}

	_, ok := ygodb.ParseReleaseDate("ja", "04/27/2024")
	require.False(t, ok)
}
