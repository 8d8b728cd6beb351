// Package dom binds task indicators in an HTML page to the sync core.
//
// A page marks each task widget with the task-status class:
//
//	<div class="task-status" data-pk="7" data-status="running">
//	  <span class="task-status-text">running</span>
//	  <span class="progress">40%</span>
//	</div>
//
// The progress element is optional. The active class is managed by the
// registry.
package dom

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/taskstate/tasksync/internal/core/ports"
)

const (
	IndicatorSelector  = ".task-status"
	StatusTextSelector = ".task-status-text"
	ProgressSelector   = ".progress"
	ActiveClass        = "active"
	PKAttr             = "data-pk"
	StatusAttr         = "data-status"
)

// Document is a parsed page together with the URL it was loaded from.
type Document struct {
	doc *goquery.Document
	url *url.URL
}

func Parse(r io.Reader, pageURL *url.URL) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return &Document{doc: doc, url: pageURL}, nil
}

func ParseString(html string, pageURL *url.URL) (*Document, error) {
	return Parse(strings.NewReader(html), pageURL)
}

// URL is the page location, nil when the document was not fetched.
func (d *Document) URL() *url.URL {
	return d.url
}

// Indicators returns every task widget in document order.
func (d *Document) Indicators() []ports.TaskIndicator {
	sel := d.doc.Find(IndicatorSelector)
	out := make([]ports.TaskIndicator, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		out = append(out, &Indicator{sel: s})
	})
	return out
}

// Find exposes raw queries, mostly for tests and diagnostics.
func (d *Document) Find(selector string) *goquery.Selection {
	return d.doc.Find(selector)
}

// HTML renders the current state of the page.
func (d *Document) HTML() (string, error) {
	return d.doc.Html()
}
