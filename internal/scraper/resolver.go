// internal/scraper/resolver.go
package scraper

import (
	"context"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/valpere/TourScrapexter/internal/browser"
	apperrors "github.com/valpere/TourScrapexter/internal/errors"
	"github.com/valpere/TourScrapexter/internal/utils"
)

// MaxTourIDLength bounds the runes accepted in a tour_id
const MaxTourIDLength = 64

// Messages returned to API callers for a rejected tour_id
const (
	MsgMissingTourID = "Missing tour_id parameter"
	MsgInvalidTourID = "Invalid tour_id parameter"
)

// Resolver turns a tour_id into the tour's page href by typing it into the
// site's search form on a pooled browser.
type Resolver struct {
	pool        browser.Pool
	markup      Markup
	base        *url.URL
	waitTimeout time.Duration
	logger      utils.Logger
}

// NewResolver creates a resolver. waitTimeout bounds each wait for an
// element to appear.
func NewResolver(pool browser.Pool, markup Markup, waitTimeout time.Duration, logger utils.Logger) (*Resolver, error) {
	if pool == nil {
		return nil, apperrors.New(apperrors.KindConfig, "create resolver", "browser pool is required")
	}

	base, err := url.Parse(markup.SiteURL)
	if err != nil || base.Host == "" {
		return nil, apperrors.Newf(apperrors.KindConfig, "create resolver", "invalid site URL %q", markup.SiteURL)
	}

	if waitTimeout <= 0 {
		waitTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = utils.NewNopLogger()
	}

	return &Resolver{
		pool:        pool,
		markup:      markup,
		base:        base,
		waitTimeout: waitTimeout,
		logger:      logger,
	}, nil
}

// ValidateTourID trims raw and checks it is usable as a search term
func ValidateTourID(raw string) (string, error) {
	id := strings.TrimSpace(raw)
	if id == "" {
		return "", apperrors.New(apperrors.KindValidation, "validate tour_id", MsgMissingTourID)
	}
	if utf8.RuneCountInString(id) > MaxTourIDLength || !utf8.ValidString(id) || utils.HasControlChars(id) {
		return "", apperrors.New(apperrors.KindValidation, "validate tour_id", MsgInvalidTourID)
	}
	return id, nil
}

// Resolve searches the site for tourID and returns the href of the first
// result. The browser is returned to the pool on every path.
func (r *Resolver) Resolve(ctx context.Context, tourID string) (string, error) {
	var href string

	err := r.pool.With(ctx, func(b browser.BrowserClient) error {
		var err error
		href, err = r.search(ctx, b, tourID)
		return err
	})
	if err != nil {
		return "", err
	}
	return href, nil
}

func (r *Resolver) search(ctx context.Context, b browser.BrowserClient, tourID string) (string, error) {
	const op = "resolve tour"
	log := r.logger.WithField("tour_id", tourID)

	if err := b.Navigate(ctx, r.base.String()); err != nil {
		return "", r.browserError(ctx, op, err)
	}

	if err := b.WaitForElement(ctx, r.markup.SearchInput, r.waitTimeout); err != nil {
		return "", apperrors.Wrap(apperrors.KindResolutionTimeout, op, err)
	}

	// The id is only ever typed as keystrokes
	if err := b.SendKeys(ctx, r.markup.SearchInput, tourID); err != nil {
		return "", r.browserError(ctx, op, err)
	}

	if err := b.Click(ctx, r.markup.SearchButton); err != nil {
		return "", r.browserError(ctx, op, err)
	}

	if err := b.WaitForElement(ctx, r.markup.ResultContainer, r.waitTimeout); err != nil {
		return "", apperrors.Wrap(apperrors.KindResolutionTimeout, op, err)
	}

	page, err := b.GetHTML(ctx)
	if err != nil {
		return "", r.browserError(ctx, op, err)
	}

	href, err := r.firstResultHref(page)
	if err != nil {
		return "", err
	}

	log.Debugf("search result href %s", href)
	return href, nil
}

// firstResultHref reads the href of the first anchor in the first result container
func (r *Resolver) firstResultHref(page string) (string, error) {
	const op = "resolve tour"

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return "", apperrors.Wrap(apperrors.KindParse, op, err)
	}

	container := doc.Find(r.markup.ResultContainer).First()
	if container.Length() == 0 {
		return "", apperrors.New(apperrors.KindResolutionNotFound, op, "no search result container")
	}

	anchor := container.Find("a").First()
	if anchor.Length() == 0 {
		return "", apperrors.New(apperrors.KindResolutionNotFound, op, "search result has no link")
	}

	href, ok := anchor.Attr("href")
	href = strings.TrimSpace(href)
	if !ok || href == "" {
		return "", apperrors.New(apperrors.KindResolutionNotFound, op, "search result link has no href")
	}

	return href, nil
}

// TourURL resolves href against the site URL. Links leading off the
// site are rejected.
func (r *Resolver) TourURL(href string) (string, error) {
	const op = "build tour url"

	ref, err := url.Parse(href)
	if err != nil {
		return "", apperrors.Wrap(apperrors.KindResolutionNotFound, op, err)
	}

	abs := r.base.ResolveReference(ref)
	if (abs.Scheme != "http" && abs.Scheme != "https") || !strings.EqualFold(abs.Hostname(), r.base.Hostname()) {
		return "", apperrors.Newf(apperrors.KindResolutionNotFound, op, "search result points off site: %s", href)
	}

	return abs.String(), nil
}

func (r *Resolver) browserError(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil {
		return apperrors.Wrap(apperrors.KindResolutionTimeout, op, err)
	}
	return apperrors.Wrap(apperrors.KindBrowser, op, err)
}
