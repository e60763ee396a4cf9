package render

import (
	"strings"

	"duunihaku/services/search/internal/models"
)

const ShowListingLabel = "Näytä ilmoitus"

// Card renders one listing as an <article class="card">. The link is
// percent-encoded and then entity-escaped for the attribute, so a parser
// reads back exactly EscapeURL(link).
func Card(l models.Listing) string {
	var b strings.Builder
	b.WriteString(`<article class="card">`)
	b.WriteString(`<h3 class="card-title">`)
	b.WriteString(EscapeHTML(l.Title))
	b.WriteString(`</h3>`)
	b.WriteString(`<div class="card-meta">`)
	b.WriteString(`<span class="company">`)
	b.WriteString(EscapeHTML(l.Company))
	b.WriteString(`</span><span class="city">• `)
	b.WriteString(EscapeHTML(l.City))
	b.WriteString(`</span><span class="source"> • `)
	b.WriteString(EscapeHTML(l.Source))
	b.WriteString(`</span></div>`)
	b.WriteString(`<div class="card-actions">`)
	b.WriteString(`<a class="btn-link" href="`)
	b.WriteString(EscapeHTML(EscapeURL(l.Link)))
	b.WriteString(`" target="_blank" rel="noopener noreferrer nofollow">`)
	b.WriteString(ShowListingLabel)
	b.WriteString(`</a></div>`)
	b.WriteString(`</article>`)
	return b.String()
}

// Cards renders listings in order.
func Cards(listings []models.Listing) string {
	var b strings.Builder
	for _, l := range listings {
		b.WriteString(Card(l))
	}
	return b.String()
}
