// internal/scraper/extractor.go
package scraper

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	apperrors "github.com/valpere/TourScrapexter/internal/errors"
	"github.com/valpere/TourScrapexter/internal/utils"
)

// Extractor turns a tour detail page into a TourRecord. It holds no
// per-page state and is safe for concurrent use.
type Extractor struct {
	markup   Markup
	duration *regexp.Regexp
}

// NewExtractor compiles the markup rules
func NewExtractor(markup Markup) (*Extractor, error) {
	duration, err := regexp.Compile(markup.DurationPattern)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindConfig, "compile duration pattern", err)
	}

	return &Extractor{
		markup:   markup,
		duration: duration,
	}, nil
}

// Extract parses page and fills a record for tourURL. Fields missing from
// the page keep their defaults; only a parser failure is an error.
func (e *Extractor) Extract(page, tourURL string) (*TourRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindParse, "parse tour page", err)
	}

	return e.ExtractDocument(doc, tourURL), nil
}

// ExtractDocument fills a record from an already parsed document
func (e *Extractor) ExtractDocument(doc *goquery.Document, tourURL string) *TourRecord {
	record := NewTourRecord(tourURL)

	if shortDesc := doc.Find(e.markup.ShortDescription).First(); shortDesc.Length() > 0 {
		e.extractSummary(doc, shortDesc, record)
	}

	e.extractDuration(doc, record)

	if highlight := doc.Find(e.markup.Highlight).First(); highlight.Length() > 0 {
		record.Highlight = cleanText(highlight.Text())
	}

	doc.Find(e.markup.DayBox).Each(func(_ int, box *goquery.Selection) {
		topic := box.Find(e.markup.DayTopic).First()
		if topic.Length() == 0 {
			record.AddDay(NoDayDescription)
			return
		}
		record.AddDay(cleanText(topic.Text()))
	})

	if prices := doc.Find(e.markup.PriceBox).First(); prices.Length() > 0 {
		e.extractPrices(prices, record)
	}

	return record
}

func (e *Extractor) extractSummary(doc *goquery.Document, shortDesc *goquery.Selection, record *TourRecord) {
	if title := doc.Find(e.markup.Title).First(); title.Length() > 0 {
		record.Name = cleanText(title.Text())
	}

	if code := shortDesc.Find(e.markup.ProgramCode).First(); code.Length() > 0 {
		if value, ok := code.Attr("value"); ok {
			record.ProgramCode = cleanText(value)
		}
	}

	if label := spanWithSoleString(shortDesc, func(s string) bool {
		return strings.Contains(s, e.markup.CityLabel)
	}); label != nil && label.NextSibling != nil {
		// The city name follows the label's sibling in document order
		if node := nextInDocument(label.NextSibling); node != nil {
			record.City = cleanText(nodeText(node))
		}
	}

	if label := spanWithSoleString(doc.Selection, func(s string) bool {
		return strings.Contains(s, e.markup.AirlineLabel)
	}); label != nil && label.NextSibling != nil {
		record.Airline = cleanText(nodeText(label.NextSibling))
	}
}

func (e *Extractor) extractDuration(doc *goquery.Document, record *TourRecord) {
	span := spanWithSoleString(doc.Selection, e.duration.MatchString)
	if span == nil {
		return
	}

	parts := strings.Fields(nodeText(span))
	if len(parts) >= 4 {
		record.Duration.Days = cleanText(parts[0])
		record.Duration.Nights = cleanText(parts[2])
	}
}

func (e *Extractor) extractPrices(prices *goquery.Selection, record *TourRecord) {
	startingFound, specialFound := false, false

	prices.Find("span").EachWithBreak(func(_ int, span *goquery.Selection) bool {
		style, ok := span.Attr("style")
		if !ok {
			return true
		}

		if !startingFound && strings.Contains(style, e.markup.StartingPriceStyle) {
			record.StartingPrice = cleanText(span.Text())
			startingFound = true
		}
		if !specialFound && style == e.markup.SpecialPriceStyle {
			record.SpecialPrice = cleanText(span.Text())
			specialFound = true
		}
		return !(startingFound && specialFound)
	})
}

// spanWithSoleString returns the first span under sel, in document order,
// whose sole string satisfies match.
func spanWithSoleString(sel *goquery.Selection, match func(string) bool) *html.Node {
	var found *html.Node
	sel.Find("span").EachWithBreak(func(_ int, span *goquery.Selection) bool {
		node := span.Get(0)
		if s, ok := soleString(node); ok && match(s) {
			found = node
			return false
		}
		return true
	})
	return found
}

// soleString returns the text of n when n has exactly one child and that
// child is a text node or, recursively, an element with a sole string.
func soleString(n *html.Node) (string, bool) {
	for n != nil {
		switch n.Type {
		case html.TextNode:
			return n.Data, true
		case html.ElementNode:
			if n.FirstChild == nil || n.FirstChild != n.LastChild {
				return "", false
			}
			n = n.FirstChild
		default:
			return "", false
		}
	}
	return "", false
}

// nextInDocument returns the node that follows n in document order: its
// first child, or else the next sibling of n or of its nearest ancestor.
func nextInDocument(n *html.Node) *html.Node {
	if n.FirstChild != nil {
		return n.FirstChild
	}
	for ; n != nil; n = n.Parent {
		if n.NextSibling != nil {
			return n.NextSibling
		}
	}
	return nil
}

// nodeText returns the concatenated text content of n
func nodeText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}

	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func cleanText(s string) string {
	return utils.CleanText(s)
}

