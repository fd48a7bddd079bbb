// Package extract pulls a candidate price reading out of product page
// HTML using per-site selector rule chains.
package extract

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/pricewatch/internal/normalize"
	"github.com/JakeFAU/pricewatch/internal/tracker"
)

// Result is the candidate reading produced from one page. Price has
// already passed normalization.
type Result struct {
	Site     tracker.Site
	Title    string
	Price    float64
	Currency string
}

// rule is one entry of a first-match-wins fallback chain. When Attr is
// set the value is read from that attribute instead of the node text.
type rule struct {
	selector string
	attr     string
}

// pageReader holds the ordered rule chains for one site family.
type pageReader struct {
	titleRules []rule
	priceRules []rule
	// scanBody enables the loose currency-symbol pattern search over
	// the full page text when every price rule misses.
	scanBody bool
}

var readers = map[tracker.Site]pageReader{
	tracker.SiteAmazon: {
		titleRules: []rule{
			{selector: "#productTitle"},
			{selector: "#title"},
			{selector: "h1.a-size-large"},
		},
		priceRules: []rule{
			{selector: "#corePrice_feature_div .a-offscreen"},
			{selector: ".a-price .a-offscreen"},
			{selector: "#priceblock_ourprice"},
			{selector: "#priceblock_dealprice"},
			{selector: "#price_inside_buybox"},
		},
	},
	tracker.SiteBooking: {
		titleRules: []rule{
			{selector: "h2"},
			{selector: "h1[data-testid='title']"},
			{selector: "#hp_hotel_name"},
		},
		priceRules: []rule{
			{selector: "[data-testid='price-and-discounted-price']"},
			{selector: "[data-testid='price-for-x-nights']"},
			{selector: ".prco-valign-middle-helper"},
			{selector: "span[class*='price']"},
		},
	},
	tracker.SiteGeneric: {
		titleRules: []rule{
			{selector: "h1"},
			{selector: "meta[property='og:title']", attr: "content"},
			{selector: "meta[name='twitter:title']", attr: "content"},
		},
		priceRules: []rule{
			{selector: "[itemprop='price']"},
			{selector: "meta[property='product:price:amount']", attr: "content"},
			{selector: ".price"},
			{selector: "[class*='price']"},
			{selector: "[data-price]"},
		},
		scanBody: true,
	},
}

var bodyPricePattern = regexp.MustCompile(`(€|\$|£)\s?\d+[\d.,]*`)

// Extract reads the page and returns a candidate reading, or nil when
// no rule yields a valid price. A non-generic hint overrides host
// detection. The stage has no side effects and callers must not retry
// within the same invocation.
func Extract(pageHTML, pageURL string, hint tracker.Site) *Result {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return nil
	}

	site := hint
	if site == "" || site == tracker.SiteGeneric {
		site = siteFromURL(pageURL)
	}
	reader, ok := readers[site]
	if !ok {
		site = tracker.SiteGeneric
		reader = readers[site]
	}

	priceText := pickText(doc, reader.priceRules)
	if priceText == "" && reader.scanBody {
		priceText = bodyPricePattern.FindString(doc.Text())
	}
	if priceText == "" {
		return nil
	}
	price, ok := normalize.Price(priceText)
	if !ok {
		return nil
	}

	title := pickText(doc, reader.titleRules)
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}

	return &Result{
		Site:     site,
		Title:    title,
		Price:    price,
		Currency: normalize.Currency(priceText),
	}
}

func siteFromURL(pageURL string) tracker.Site {
	u, err := url.Parse(pageURL)
	if err != nil {
		return tracker.SiteGeneric
	}
	return tracker.SiteFromHost(u.Hostname())
}

func pickText(doc *goquery.Document, rules []rule) string {
	for _, r := range rules {
		sel := doc.Find(r.selector).First()
		if sel.Length() == 0 {
			continue
		}
		var text string
		if r.attr != "" {
			text, _ = sel.Attr(r.attr)
		} else {
			text = sel.Text()
		}
		if text = strings.TrimSpace(text); text != "" {
			return text
		}
	}
	return ""
}
