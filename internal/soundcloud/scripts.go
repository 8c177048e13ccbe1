package soundcloud

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// clientIDPatterns match the ways the web player's bundles embed the public
// client_id. Each captures exactly 32 alphanumeric characters.
var clientIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`client_id\s*:\s*"([a-zA-Z0-9]{32})"`),
	regexp.MustCompile(`client_id\s*=\s*"([a-zA-Z0-9]{32})"`),
	regexp.MustCompile(`"client_id"\s*:\s*"([a-zA-Z0-9]{32})"`),
	regexp.MustCompile(`client_id=([a-zA-Z0-9]{32})\b`),
}

// FindClientID returns the first client_id embedded in text.
func FindClientID(text string) (string, bool) {
	for _, re := range clientIDPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// ScriptURLs returns the absolute URLs of every external script referenced
// by an HTML page, in document order and without duplicates.
//
// Protocol-relative ("//a-v2.sndcdn.com/...") and relative sources are
// resolved against base.
func ScriptURLs(pageHTML string, base *url.URL) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var urls []string

	doc.Find("script[src]").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		src = strings.TrimSpace(src)
		if src == "" {
			return
		}

		ref, err := url.Parse(src)
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref)
		if abs.Scheme != "http" && abs.Scheme != "https" {
			return
		}

		key := abs.String()
		if !seen[key] {
			seen[key] = true
			urls = append(urls, key)
		}
	})

	return urls, nil
}
