package probe

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Markers are the substrings looked for in the login response body.
type Markers struct {
	Success string
	Invalid string
}

// classify checks the success marker first: some error pages carry both.
func classify(body string, m Markers) (Outcome, Verdict) {
	if m.Success != "" && strings.Contains(body, m.Success) {
		return ServiceUpLoginSucceeded, VerdictSucceeded
	}
	if m.Invalid != "" && strings.Contains(body, m.Invalid) {
		return ServiceUpLoginFailed, VerdictRejected
	}
	return ServiceUpLoginFailed, VerdictIndeterminate
}

// pageTitle is best effort; an unparsable body has no title.
func pageTitle(body string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}
