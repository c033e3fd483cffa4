// Package extract turns crawled pages into a structured profile draft
// using deterministic, ordered heuristics. First match wins per field,
// no randomness, no external calls; a field with no match stays empty
// and is marked unknown rather than guessed.
package extract

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/socialcap/profile-api/internal/domain"
)

// minDescriptionWords filters navigation and boilerplate fragments out
// of the paragraph fallback.
const minDescriptionWords = 8

// maxSectionRunes bounds how much of a labeled section is kept as the
// products/services value.
const maxSectionRunes = 160

var (
	emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phoneRe = regexp.MustCompile(`\+?\(?\d[\d()\s.\-]{6,}\d`)
	spaceRe = regexp.MustCompile(`\s+`)
)

// page is one successfully parsed document with its flattened visible text.
type page struct {
	url  string
	doc  *goquery.Document
	text string
}

// Extract builds a ProfileDraft from pages in priority order (home
// page first). Pages that fail to parse contribute nothing; they never
// abort the extraction.
func Extract(pages []domain.PageResult) domain.ProfileDraft {
	draft := domain.ProfileDraft{
		Confidence: map[string]domain.Confidence{
			domain.FieldBusinessName:     domain.ConfidenceUnknown,
			domain.FieldDescription:      domain.ConfidenceUnknown,
			domain.FieldIndustry:         domain.ConfidenceUnknown,
			domain.FieldTargetAudience:   domain.ConfidenceUnknown,
			domain.FieldTone:             domain.ConfidenceUnknown,
			domain.FieldContactEmail:     domain.ConfidenceUnknown,
			domain.FieldContactPhone:     domain.ConfidenceUnknown,
			domain.FieldProductsServices: domain.ConfidenceUnknown,
		},
	}

	var parsed []page
	for _, p := range pages {
		if p.Status != domain.StatusOK {
			continue
		}
		draft.PagesUsed = append(draft.PagesUsed, p.URL)
		if draft.SourceURL == "" {
			draft.SourceURL = p.URL
		}
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(p.Body))
		if err != nil {
			continue
		}
		doc.Find("script, style, noscript").Remove()
		parsed = append(parsed, page{
			url:  p.URL,
			doc:  doc,
			text: normalizeSpace(doc.Find("body").Text()),
		})
	}
	if len(parsed) == 0 {
		return draft
	}

	root := parsed[0]
	set := func(field, value string, conf domain.Confidence) {
		if value == "" {
			return
		}
		switch field {
		case domain.FieldBusinessName:
			draft.Fields.BusinessName = value
		case domain.FieldDescription:
			draft.Fields.Description = value
		case domain.FieldIndustry:
			draft.Fields.Industry = value
		case domain.FieldTargetAudience:
			draft.Fields.TargetAudience = value
		case domain.FieldTone:
			draft.Fields.Tone = value
		case domain.FieldContactEmail:
			draft.Fields.ContactEmail = value
		case domain.FieldContactPhone:
			draft.Fields.ContactPhone = value
		case domain.FieldProductsServices:
			draft.Fields.ProductsServices = value
		}
		draft.Confidence[field] = conf
	}

	name, conf := extractName(root)
	set(domain.FieldBusinessName, name, conf)

	desc, conf := extractDescription(parsed)
	set(domain.FieldDescription, desc, conf)

	email, conf := extractContact(parsed, "mailto:", emailRe, validEmail)
	set(domain.FieldContactEmail, email, conf)

	phone, conf := extractContact(parsed, "tel:", phoneRe, validPhone)
	set(domain.FieldContactPhone, phone, conf)

	labeled, full := corpusOf(parsed)

	for field, rules := range map[string][]keywordRule{
		domain.FieldIndustry:       industryRules,
		domain.FieldTargetAudience: audienceRules,
		domain.FieldTone:           toneRules,
	} {
		if v := matchRule(rules, labeled); v != "" {
			set(field, v, domain.ConfidenceHigh)
		} else if v := matchRule(rules, full); v != "" {
			set(field, v, domain.ConfidenceLow)
		}
	}

	offer, conf := extractOffer(parsed)
	set(domain.FieldProductsServices, offer, conf)

	return draft
}

// ─── Business name ────────────────────────────────────────────────────────────

// titleSeparators split a site title from its tagline; the earliest
// occurrence wins.
var titleSeparators = []string{" — ", " – ", " | ", " - "}

func extractName(root page) (string, domain.Confidence) {
	if title := normalizeSpace(root.doc.Find("title").First().Text()); title != "" {
		return stripTitleSuffix(title), domain.ConfidenceHigh
	}
	for _, tag := range []string{"h1", "h2"} {
		if h := firstNonEmpty(root.doc, tag); h != "" {
			return h, domain.ConfidenceLow
		}
	}
	if u, err := url.Parse(root.url); err == nil {
		if label := domainLabel(u.Hostname()); label != "" {
			return label, domain.ConfidenceLow
		}
	}
	return "", domain.ConfidenceUnknown
}

// stripTitleSuffix removes the site-wide tagline after the first
// separator ("Example Bakery — Fresh Bread Daily" → "Example Bakery").
func stripTitleSuffix(title string) string {
	cut := -1
	for _, sep := range titleSeparators {
		if idx := strings.Index(title, sep); idx > 0 && (cut < 0 || idx < cut) {
			cut = idx
		}
	}
	if cut > 0 {
		return strings.TrimSpace(title[:cut])
	}
	return title
}

func firstNonEmpty(doc *goquery.Document, selector string) string {
	var out string
	doc.Find(selector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if t := normalizeSpace(sel.Text()); t != "" {
			out = t
			return false
		}
		return true
	})
	return out
}

// domainLabel returns the label left of the public suffix for the
// common two-label case ("example-bakery" for example-bakery.test).
func domainLabel(host string) string {
	host = strings.TrimPrefix(strings.ToLower(host), "www.")
	parts := strings.Split(host, ".")
	if len(parts) >= 2 {
		return parts[len(parts)-2]
	}
	return host
}

// ─── Description ──────────────────────────────────────────────────────────────

func extractDescription(pages []page) (string, domain.Confidence) {
	for _, sel := range []string{`meta[name="description"]`, `meta[property="og:description"]`} {
		if content, ok := pages[0].doc.Find(sel).First().Attr("content"); ok {
			if c := normalizeSpace(content); c != "" {
				return c, domain.ConfidenceHigh
			}
		}
	}
	for _, p := range pages {
		var found string
		p.doc.Find("p").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			t := normalizeSpace(sel.Text())
			if len(strings.Fields(t)) >= minDescriptionWords {
				found = t
				return false
			}
			return true
		})
		if found != "" {
			return found, domain.ConfidenceLow
		}
	}
	return "", domain.ConfidenceUnknown
}

// ─── Contact ──────────────────────────────────────────────────────────────────

// extractContact finds the first contact value by page order: scheme
// links (mailto:/tel:) count as high confidence, free-text pattern
// matches as low.
func extractContact(pages []page, scheme string, re *regexp.Regexp, valid func(string) bool) (string, domain.Confidence) {
	for _, p := range pages {
		var found string
		p.doc.Find(`a[href^="` + scheme + `"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			href, _ := sel.Attr("href")
			v := strings.TrimPrefix(href, scheme)
			if i := strings.IndexByte(v, '?'); i >= 0 {
				v = v[:i]
			}
			v = strings.TrimSpace(v)
			if valid(v) {
				found = v
				return false
			}
			return true
		})
		if found != "" {
			return found, domain.ConfidenceHigh
		}
	}
	for _, p := range pages {
		for _, m := range re.FindAllString(p.text, 5) {
			m = strings.TrimSpace(m)
			if valid(m) {
				return m, domain.ConfidenceLow
			}
		}
	}
	return "", domain.ConfidenceUnknown
}

func validEmail(s string) bool {
	return emailRe.MatchString(s) && !strings.ContainsAny(s, " /")
}

// validPhone requires 7–15 digits so years and prices don't match.
func validPhone(s string) bool {
	digits := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return digits >= 7 && digits <= 15
}

// ─── Keyword corpora ──────────────────────────────────────────────────────────

// corpusOf splits the crawled text into the clearly-labeled corpus
// (sections under about/services-style headings, which yield high
// confidence) and the full visible text (low confidence).
func corpusOf(pages []page) (labeled, full string) {
	var lb, fb strings.Builder
	for _, p := range pages {
		fb.WriteString(p.text)
		fb.WriteByte(' ')
		p.doc.Find("h1, h2, h3").Each(func(_ int, h *goquery.Selection) {
			if !matchesAny(strings.ToLower(h.Text()), sectionLabels) {
				return
			}
			lb.WriteString(normalizeSpace(h.Text()))
			lb.WriteByte(' ')
			lb.WriteString(normalizeSpace(h.NextUntil("h1, h2, h3").Text()))
			lb.WriteByte(' ')
		})
	}
	return strings.ToLower(lb.String()), strings.ToLower(fb.String())
}

// ─── Products / services ──────────────────────────────────────────────────────

func extractOffer(pages []page) (string, domain.Confidence) {
	// Section body under a labeled heading.
	for _, p := range pages {
		var found string
		p.doc.Find("h1, h2, h3").EachWithBreak(func(_ int, h *goquery.Selection) bool {
			if !matchesAny(strings.ToLower(h.Text()), offerLabels) {
				return true
			}
			if body := normalizeSpace(h.NextUntil("h1, h2, h3").Text()); body != "" {
				found = truncateWords(body, maxSectionRunes)
				return false
			}
			return true
		})
		if found != "" {
			return found, domain.ConfidenceHigh
		}
	}
	// Fall back to the heading text itself.
	for _, p := range pages {
		var found string
		p.doc.Find("h2, h3").EachWithBreak(func(_ int, h *goquery.Selection) bool {
			t := normalizeSpace(h.Text())
			if matchesAny(strings.ToLower(t), offerLabels) {
				found = t
				return false
			}
			return true
		})
		if found != "" {
			return found, domain.ConfidenceLow
		}
	}
	return "", domain.ConfidenceUnknown
}

// ─── Helpers ──────────────────────────────────────────────────────────────────

func normalizeSpace(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

func matchesAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// containsWord reports whether kw occurs in text at a position not
// preceded by a letter, so short keywords don't match inside words.
func containsWord(text, kw string) bool {
	idx := strings.Index(text, kw)
	for idx >= 0 {
		if idx == 0 || !isLetter(text[idx-1]) {
			return true
		}
		next := strings.Index(text[idx+1:], kw)
		if next < 0 {
			return false
		}
		idx = idx + 1 + next
	}
	return false
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// truncateWords trims s to at most n runes, cutting at a word boundary.
func truncateWords(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	cut := string(runes[:n])
	if idx := strings.LastIndexByte(cut, ' '); idx > 0 {
		cut = cut[:idx]
	}
	return strings.TrimSpace(cut)
}
