package htmlutil

import (
	"bytes"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// GetText concatenates every text node under `node`.
func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

// Text returns the trimmed text of the first matched node, or "" when the
// selection is empty.
func Text(sel *goquery.Selection) string {
	if sel.Length() == 0 {
		return ""
	}
	return strings.TrimSpace(GetText(sel.Nodes[0]))
}

// Texts returns the trimmed text of every matched node.
func Texts(sel *goquery.Selection) []string {
	out := make([]string, 0, sel.Length())
	for _, n := range sel.Nodes {
		out = append(out, strings.TrimSpace(GetText(n)))
	}
	return out
}

// OwnText returns the trimmed text directly inside the first matched node,
// leaving out the text of its child elements.
func OwnText(sel *goquery.Selection) string {
	if sel.Length() == 0 {
		return ""
	}
	var buffer bytes.Buffer
	for child := sel.Nodes[0].FirstChild; child != nil; child = child.NextSibling {
		if child.Type == html.TextNode {
			buffer.WriteString(child.Data)
		}
	}
	return strings.Join(strings.Fields(buffer.String()), " ")
}

var nonNumeric = regexp.MustCompile(`[^0-9.]`)
var leadingDigits = regexp.MustCompile(`^[0-9]+`)

// Number parses the leading integer of the text once everything other than
// digits and dots has been removed, so "Level 8" is 8 and "2.5" is 2.
// ok is false when there are no digits to read, as with "?".
func Number(text string) (value int64, ok bool) {
	digits := leadingDigits.FindString(nonNumeric.ReplaceAllString(text, ""))
	if digits == "" {
		return 0, false
	}
	value, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

// QueryParam reads a query parameter out of a possibly relative link.
func QueryParam(link, key string) string {
	parsed, err := url.Parse(strings.TrimSpace(link))
	if err != nil {
		return ""
	}
	return parsed.Query().Get(key)
}

var innerWhitespace = regexp.MustCompile(`\s\s+`)

func removeNonPrintable(s string) string {
	newStr := strings.Builder{}
	for _, c := range s {
		if unicode.IsPrint(c) {
			newStr.WriteRune(c)
		}
	}
	return newStr.String()
}

// CleanName strips non printable runes and collapses runs of whitespace.
func CleanName(name string) string {
	name = removeNonPrintable(name)
	name = strings.Trim(name, " \t\n")
	return innerWhitespace.ReplaceAllString(name, " ")
}
