package prescan

import (
	"log/slog"
	"strings"

	"golang.org/x/net/html"
)

// interactiveTags, together with the a[href] and [role=button] checks in
// countStaticInteractiveElements, mirrors the live DOM extraction's target
// selector: "button, [role=button], a[href], input, select, textarea".
var interactiveTags = map[string]bool{
	"button":   true,
	"input":    true,
	"select":   true,
	"textarea": true,
}

// countStaticInteractiveElements is an auxiliary structural check: a plain
// HTML-string walk (no live DOM, no JS evaluation) that counts the same tag
// set the live DOM extraction targets. It exists purely as a bookkeeping
// cross-check against Driver.ExtractElements' live count — never the
// primary extraction path.
func countStaticInteractiveElements(rawHTML string) int {
	if strings.TrimSpace(rawHTML) == "" {
		return 0
	}
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return 0
	}
	count := 0
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			matched := interactiveTags[n.Data]
			for _, a := range n.Attr {
				if (n.Data == "a" && a.Key == "href") || (a.Key == "role" && a.Val == "button") {
					matched = true
				}
			}
			if matched {
				count++
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return count
}

// logElementCountMismatch emits a debug line when the live extraction and
// the static cross-check disagree by more than a handful of elements — a
// signal the live extraction's de-duplication may be dropping real
// interactive elements, not a hard failure.
func logElementCountMismatch(url string, liveCount, staticCount int) {
	diff := liveCount - staticCount
	if diff < 0 {
		diff = -diff
	}
	if diff > 2 {
		slog.Debug("prescan: live/static interactive-element count mismatch",
			"url", url, "live", liveCount, "static", staticCount)
	}
}
