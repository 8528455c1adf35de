package dealer

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"carbi-scraper/models"
	"carbi-scraper/utils"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"golang.org/x/net/html"
)

// ErrNoDocument is returned when the fetched page is empty
var ErrNoDocument = errors.New("empty document")

// CandidateSelector matches elements that look like vehicle cards on any
// dealer site
const CandidateSelector = `article, div[class*="vehicle"], div[class*="car"], li[class*="stock"], ` +
	`li[class*="vehicle"], [itemtype*="schema.org/Car"], [itemtype*="schema.org/Vehicle"]`

// a candidate wrapping this many listing-like candidates is a results list, not a card
const containerThreshold = 2

var blockElements = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true, "br": true,
	"dd": true, "div": true, "dl": true, "dt": true, "figcaption": true, "figure": true,
	"footer": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"header": true, "hr": true, "li": true, "main": true, "nav": true, "ol": true, "p": true,
	"section": true, "table": true, "td": true, "th": true, "tr": true, "ul": true,
}

var skippedElements = map[string]bool{
	"script": true, "style": true, "noscript": true, "template": true, "svg": true,
}

// Extractor turns a rendered dealer page into raw listings
type Extractor struct {
	logger *utils.Logger
	now    func() time.Time
	newID  func() string
}

// NewExtractor creates a new Extractor
func NewExtractor(logger *utils.Logger) *Extractor {
	return &Extractor{
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Extract parses html and returns one RawListing per plausible vehicle card.
// pageURL is used to resolve relative image links.
func (e *Extractor) Extract(dealerID, pageURL, rawHTML string) ([]*models.RawListing, error) {
	if strings.TrimSpace(rawHTML) == "" {
		return nil, ErrNoDocument
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	base, _ := url.Parse(pageURL)

	candidates := doc.Find(CandidateSelector)
	e.logger.Debug("Found %d potential car elements", candidates.Length())

	seen := utils.NewKeyTracker()
	var listings []*models.RawListing
	noise := 0

	cards := make(map[*html.Node]bool)
	candidates.Each(func(_ int, c *goquery.Selection) {
		if !isContainer(c) {
			cards[c.Get(0)] = true
		}
	})

	candidates.Each(func(_ int, card *goquery.Selection) {
		if !cards[card.Get(0)] || insideCard(card, cards) {
			return
		}
		l := e.parseCard(visibleLines(card), imageURL(card, base))
		if l == nil {
			noise++
			return
		}
		if !seen.Add(dedupeKey(l)) {
			return
		}
		l.DealerID = dealerID
		listings = append(listings, l)
	})

	e.logger.Debug("Extracted %d listings (%d discarded as noise)", len(listings), noise)
	return listings, nil
}

// parseCard applies the field heuristics to the card's text lines. It returns
// nil when the card has no usable title or no positive price.
func (e *Extractor) parseCard(lines []string, image string) *models.RawListing {
	if len(lines) == 0 {
		return nil
	}
	text := strings.Join(lines, " ")

	price, _ := ParsePrice(text)
	title := PickTitle(lines)
	if price <= 0 || !UsableTitle(title) {
		return nil
	}

	now := e.now()
	l := &models.RawListing{
		Title:          title,
		Price:          price,
		ImageURL:       image,
		HasReliableKey: true,
		ScrapedAt:      now,
	}
	l.Year, _ = ParseYear(text)
	l.Mileage, _ = ParseMileage(text)
	l.Transmission, _ = ParseTransmission(text)
	l.Fuel, _ = ParseFuel(text)
	l.Doors, _ = ParseDoors(text)

	if vrm, ok := ParseVRM(text); ok {
		l.VRM = vrm
	} else {
		l.VRM = fmt.Sprintf("UNKNOWN-%d-%s", now.UnixMilli(), e.newID())
		l.HasReliableKey = false
	}
	return l
}

func dedupeKey(l *models.RawListing) string {
	if l.HasReliableKey {
		return l.VRM
	}
	return strings.ToLower(l.Title) + "|" + strconv.FormatInt(l.Price, 10)
}

// isContainer reports whether card wraps several nested candidates that each
// read as a listing on their own. Price or finance blocks inside a single car
// card have no usable title and do not count.
func isContainer(card *goquery.Selection) bool {
	listings := card.Find(CandidateSelector).FilterFunction(func(_ int, s *goquery.Selection) bool {
		return looksLikeListing(visibleLines(s))
	})
	return listings.Length() >= containerThreshold
}

func looksLikeListing(lines []string) bool {
	if len(lines) == 0 {
		return false
	}
	price, _ := ParsePrice(strings.Join(lines, " "))
	return price > 0 && UsableTitle(PickTitle(lines))
}

// insideCard reports whether an ancestor of s was already taken as a card;
// the outermost card carries the whole listing
func insideCard(s *goquery.Selection, cards map[*html.Node]bool) bool {
	for n := s.Get(0).Parent; n != nil; n = n.Parent {
		if cards[n] {
			return true
		}
	}
	return false
}

func imageURL(card *goquery.Selection, base *url.URL) string {
	img := card.Find("img").First()
	if img.Length() == 0 {
		return ""
	}
	src := strings.TrimSpace(img.AttrOr("src", ""))
	if src == "" || strings.HasPrefix(src, "data:") {
		src = strings.TrimSpace(img.AttrOr("data-src", ""))
	}
	if src == "" {
		return ""
	}
	if base == nil {
		return src
	}
	ref, err := url.Parse(src)
	if err != nil {
		return src
	}
	return base.ResolveReference(ref).String()
}

// visibleLines approximates innerText: block elements start new lines,
// hidden subtrees and non-content elements are skipped
func visibleLines(sel *goquery.Selection) []string {
	var b strings.Builder
	for _, n := range sel.Nodes {
		writeText(&b, n)
	}
	var lines []string
	for _, l := range strings.Split(b.String(), "\n") {
		if l = strings.Join(strings.Fields(l), " "); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

func writeText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.ElementNode:
		if skippedElements[n.Data] || isHidden(n) {
			return
		}
	}
	block := n.Type == html.ElementNode && blockElements[n.Data]
	if block {
		b.WriteByte('\n')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(b, c)
	}
	if block {
		b.WriteByte('\n')
	}
}

func isHidden(n *html.Node) bool {
	for _, a := range n.Attr {
		switch a.Key {
		case "hidden":
			return true
		case "aria-hidden":
			if a.Val == "true" {
				return true
			}
		case "style":
			style := strings.ReplaceAll(strings.ToLower(a.Val), " ", "")
			if strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden") {
				return true
			}
		}
	}
	return false
}
