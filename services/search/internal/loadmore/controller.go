// Package loadmore drives the "Näytä lisää" control of a search results
// page. The page is a parsed document carrying the DOM contract of the
// server-rendered index: a control wrapper, the control with a data-page
// attribute, the haku and alue inputs and the cards container.
package loadmore

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"duunihaku/services/search/internal/models"
	"duunihaku/services/search/internal/render"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// Element ids of the DOM contract.
const (
	WrapID    = "load-more-wrap"
	ControlID = "load-more"
	HakuID    = "haku"
	AlueID    = "alue"
	CardsID   = "cards"

	PageAttr    = "data-page"
	DefaultPage = 2
)

const (
	LabelReady     = "Näytä lisää"
	LabelLoading   = "Ladataan..."
	LabelError     = "Virhe. Yritä uudelleen"
	LabelExhausted = "Ei lisää tuloksia."

	ExhaustedClass = "load-more-end"
)

var (
	// ErrControlAbsent means the page has no load-more control, which is
	// the normal case for a single page of results.
	ErrControlAbsent = stderrors.New("load-more control not present")
	// ErrMissingElement means the control exists but an element it needs
	// does not; the page is misconfigured.
	ErrMissingElement = stderrors.New("required element missing")
	ErrExhausted      = stderrors.New("no more results")
	ErrInFlight       = stderrors.New("page load already in progress")
)

// Filters are the search filter values sent with every page request.
type Filters struct {
	Haku string
	Alue string
}

type Controller struct {
	mu      sync.Mutex
	state   State
	wrap    *goquery.Selection
	control *goquery.Selection
	haku    *goquery.Selection
	alue    *goquery.Selection
	cards   *goquery.Selection
	fetcher Fetcher
	logger  *zap.Logger
}

func byID(doc *goquery.Document, id string) *goquery.Selection {
	return doc.Find("#" + id).First()
}

// Bind attaches a controller to doc. It returns ErrControlAbsent when the
// wrapper or the control is missing and an ErrMissingElement error when
// an input or the cards container is missing.
func Bind(doc *goquery.Document, fetcher Fetcher, logger *zap.Logger) (*Controller, error) {
	wrap := byID(doc, WrapID)
	control := byID(doc, ControlID)
	if wrap.Length() == 0 || control.Length() == 0 {
		return nil, ErrControlAbsent
	}

	c := &Controller{
		wrap:    wrap,
		control: control,
		haku:    byID(doc, HakuID),
		alue:    byID(doc, AlueID),
		cards:   byID(doc, CardsID),
		fetcher: fetcher,
		logger:  logger,
	}
	required := []struct {
		id  string
		sel *goquery.Selection
	}{{HakuID, c.haku}, {AlueID, c.alue}, {CardsID, c.cards}}
	for _, r := range required {
		if r.sel.Length() == 0 {
			return nil, fmt.Errorf("%w: #%s", ErrMissingElement, r.id)
		}
	}

	c.state = State{Cursor: initialCursor(control), Status: StatusReady}
	return c, nil
}

func initialCursor(control *goquery.Selection) int {
	raw, ok := control.Attr(PageAttr)
	if !ok {
		return DefaultPage
	}
	page, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || page < 1 {
		return DefaultPage
	}
	return page
}

// State returns a snapshot of the controller state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Filters reads the current input values. An input without a value
// reads as "".
func (c *Controller) Filters() Filters {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readFilters()
}

func (c *Controller) readFilters() Filters {
	return Filters{
		Haku: c.haku.AttrOr("value", ""),
		Alue: c.alue.AttrOr("value", ""),
	}
}

// Click loads the page at the cursor and applies the result to the
// document. While a load is outstanding further clicks return
// ErrInFlight; after the last page they return ErrExhausted without a
// request. A failed load leaves the cursor where it was, so the next
// click retries the same page.
func (c *Controller) Click(ctx context.Context) error {
	c.mu.Lock()
	switch c.state.Status {
	case StatusExhausted:
		c.mu.Unlock()
		return ErrExhausted
	case StatusLoading:
		c.mu.Unlock()
		return ErrInFlight
	}
	filters := c.readFilters()
	page := c.state.Cursor
	c.state.Status = StatusLoading
	showLoading(c.control)
	c.mu.Unlock()

	result, err := c.fetcher.FetchPage(ctx, filters, page)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.logger.Error("loading more results failed",
			zap.Int("page", page),
			zap.String("haku", filters.Haku),
			zap.String("alue", filters.Alue),
			zap.Error(err))
		c.state.Status = StatusError
		showError(c.control)
		return fmt.Errorf("load page %d: %w", page, err)
	}

	appendCards(c.cards, result.Jobs)
	advance(&c.state, result.HasNext)
	if c.state.Status == StatusExhausted {
		exhaust(c.wrap, c.control)
	} else {
		showReady(c.control, &c.state)
	}

	c.logger.Debug("loaded more results",
		zap.Int("page", page),
		zap.Int("jobs", len(result.Jobs)),
		zap.Bool("has_next", result.HasNext))
	return nil
}

// Run clicks until the results are exhausted or maxPages pages have been
// loaded (maxPages <= 0 means no limit). It returns the number of pages
// loaded and stops at the first failed load.
func (c *Controller) Run(ctx context.Context, maxPages int) (int, error) {
	loaded := 0
	for maxPages <= 0 || loaded < maxPages {
		if err := ctx.Err(); err != nil {
			return loaded, err
		}
		err := c.Click(ctx)
		if stderrors.Is(err, ErrExhausted) {
			return loaded, nil
		}
		if err != nil {
			return loaded, err
		}
		loaded++
	}
	return loaded, nil
}

// advance moves st past a successfully loaded page.
func advance(st *State, hasNext bool) {
	if !hasNext {
		st.Status = StatusExhausted
		return
	}
	st.Cursor++
	st.Status = StatusReady
}

func appendCards(cards *goquery.Selection, jobs []models.Listing) {
	if len(jobs) == 0 {
		return
	}
	cards.AppendHtml(render.Cards(jobs))
}

func showLoading(control *goquery.Selection) {
	control.SetAttr("disabled", "")
	control.SetText(LabelLoading)
}

func showError(control *goquery.Selection) {
	control.RemoveAttr("disabled")
	control.SetText(LabelError)
}

func showReady(control *goquery.Selection, st *State) {
	control.SetAttr(PageAttr, strconv.Itoa(st.Cursor))
	if href, ok := control.Attr("href"); ok {
		control.SetAttr("href", withPage(href, st.Cursor))
	}
	control.RemoveAttr("disabled")
	control.SetText(LabelReady)
}

// withPage points a link control at page. An href that does not parse is
// left alone.
func withPage(href string, page int) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String()
}

func exhaust(wrap, control *goquery.Selection) {
	control.Remove()
	wrap.AppendHtml(`<div class="` + ExhaustedClass + `">` + render.EscapeHTML(LabelExhausted) + `</div>`)
}
