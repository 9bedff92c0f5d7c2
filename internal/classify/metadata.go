package classify

import (
	"regexp"
	"strings"
)

// PageMetadata is the opaque, regex-scraped metadata fed to the prompt
// template in place of a full HTML parse — the fetch/parse step is treated
// as opaque by design, so a full CSS-selector parser is deliberately not
// used here.
type PageMetadata struct {
	Title             string
	Description       string
	OGTitle           string
	OGDescription     string
	OGSiteName        string
	Lang              string
	FetchFailed       bool
}

var (
	titleRe       = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	descriptionRe = regexp.MustCompile(`(?is)<meta\s+[^>]*name=["']description["'][^>]*content=["'](.*?)["']`)
	ogTitleRe     = regexp.MustCompile(`(?is)<meta\s+[^>]*property=["']og:title["'][^>]*content=["'](.*?)["']`)
	ogDescRe      = regexp.MustCompile(`(?is)<meta\s+[^>]*property=["']og:description["'][^>]*content=["'](.*?)["']`)
	ogSiteNameRe  = regexp.MustCompile(`(?is)<meta\s+[^>]*property=["']og:site_name["'][^>]*content=["'](.*?)["']`)
	langRe        = regexp.MustCompile(`(?is)<html\s+[^>]*lang=["'](.*?)["']`)
)

// ExtractMetadata scans raw HTML for a fixed set of tags, returning whatever
// it finds — it never errors; a page missing every tag simply yields a zero
// PageMetadata.
func ExtractMetadata(html []byte) PageMetadata {
	s := string(html)
	return PageMetadata{
		Title:         firstMatch(titleRe, s),
		Description:   firstMatch(descriptionRe, s),
		OGTitle:       firstMatch(ogTitleRe, s),
		OGDescription: firstMatch(ogDescRe, s),
		OGSiteName:    firstMatch(ogSiteNameRe, s),
		Lang:          firstMatch(langRe, s),
	}
}

// FetchFailedMetadata synthesizes an empty metadata set for when the fetch
// itself failed, so the LLM can still render a verdict off the domain name
// alone instead of aborting before step 3.
func FetchFailedMetadata() PageMetadata {
	return PageMetadata{FetchFailed: true}
}

func firstMatch(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}
