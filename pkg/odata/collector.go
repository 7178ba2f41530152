package odata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/learnfeed/lms-odata-client/pkg/client"
)

// Prometheus metrics for collection walks.
var (
	lmsPagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lms_pages_total",
		Help: "Total number of collection pages fetched",
	})

	lmsWalksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lms_collection_walks_total",
		Help: "Total collection walks by outcome",
	}, []string{"outcome"}) // "complete", "partial"
)

// DefaultPageSize is the row count requested per page by CollectPaged.
const DefaultPageSize = 1000

// Fetcher performs one resilient request. Implemented by client.Client.
type Fetcher interface {
	Fetch(ctx context.Context, req client.FetchRequest) (*client.Result, error)
}

// Collector walks multi-page OData collections into one ordered slice.
type Collector struct {
	fetcher Fetcher
	logger  zerolog.Logger
}

// NewCollector creates a collector on top of a resilient fetcher.
func NewCollector(fetcher Fetcher) *Collector {
	return &Collector{
		fetcher: fetcher,
		logger:  log.With().Str("component", "odata-collector").Logger(),
	}
}

// Result is the outcome of a collection walk.
//
// A walk that hits a fetch failure stops early and returns everything
// accumulated so far rather than discarding it. Complete distinguishes the
// two terminal states a caller otherwise could not tell apart: true means
// the origin reported no further pages, false means the walk aborted and
// Err holds the terminal failure.
type Result struct {
	// Items are the accumulated rows, in response order across pages.
	Items []json.RawMessage

	// Count is the last server-reported total, 0 when never reported.
	Count int64

	// Complete is true when the walk reached the end of the collection.
	Complete bool

	// Err is the failure that aborted the walk, nil when Complete.
	Err error

	// Pages is the number of pages fetched successfully.
	Pages int
}

// walk carries the accumulator state of one collection walk.
type walk struct {
	items []json.RawMessage
	count int64
	pages int
}

// CollectAll walks the collection starting at uri, following the
// server-supplied next link verbatim until a page carries none.
//
// The loop is sequential on purpose: every step depends on the previous
// response, so no two requests are ever in flight at once. The walk is
// iterative, not recursive, so very large result sets cannot grow the call
// stack.
func (c *Collector) CollectAll(ctx context.Context, uri string) Result {
	var w walk

	next := uri
	for next != "" {
		page, err := c.fetchPage(ctx, next, &w)
		if err != nil {
			return c.partial(&w, next, err)
		}
		next = page.NextLink
	}

	return c.complete(&w, uri)
}

// CollectPaged walks a collection in fixed-size pages, requesting pageSize
// rows per request via $top/$skip. The walk ends on the first page shorter
// than requested. pageSize <= 0 selects DefaultPageSize.
//
// This flavor suits origins without server-driven paging; CollectAll is
// preferred when the origin supplies next links.
func (c *Collector) CollectPaged(ctx context.Context, uri string, pageSize int) Result {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	var w walk

	skip := 0
	for {
		pageURI := withQueryParam(uri, "$top", strconv.Itoa(pageSize))
		if skip > 0 {
			pageURI = withQueryParam(pageURI, "$skip", strconv.Itoa(skip))
		}

		page, err := c.fetchPage(ctx, pageURI, &w)
		if err != nil {
			return c.partial(&w, pageURI, err)
		}

		// A short page is the end of the collection.
		if len(page.Value) < pageSize {
			return c.complete(&w, uri)
		}
		skip += pageSize
	}
}

// fetchPage fetches and decodes one page, folding its rows into the walk.
func (c *Collector) fetchPage(ctx context.Context, uri string, w *walk) (*Page, error) {
	res, err := c.fetcher.Fetch(ctx, client.FetchRequest{URL: uri})
	if err != nil {
		return nil, err
	}

	var page Page
	if err := json.Unmarshal(res.Body, &page); err != nil {
		return nil, fmt.Errorf("decode page envelope: %w", err)
	}

	w.items = append(w.items, page.Value...)
	if page.Count != nil {
		w.count = *page.Count
	}
	w.pages++
	lmsPagesTotal.Inc()

	c.logger.Debug().
		Str("url", uri).
		Int("pages", w.pages).
		Int("items", len(w.items)).
		Bool("has_next", page.NextLink != "").
		Msg("Page accumulated")

	return &page, nil
}

// partial finalizes an aborted walk, keeping the rows collected so far.
func (c *Collector) partial(w *walk, uri string, err error) Result {
	lmsWalksTotal.WithLabelValues("partial").Inc()
	c.logger.Warn().
		Err(err).
		Str("url", uri).
		Int("pages", w.pages).
		Int("items", len(w.items)).
		Msg("Collection walk aborted, returning partial result")
	return Result{Items: w.items, Count: w.count, Err: err, Pages: w.pages}
}

// complete finalizes a walk that reached the end of the collection.
func (c *Collector) complete(w *walk, uri string) Result {
	lmsWalksTotal.WithLabelValues("complete").Inc()
	c.logger.Info().
		Str("url", uri).
		Int("pages", w.pages).
		Int("items", len(w.items)).
		Msg("Collection walk complete")
	return Result{Items: w.items, Count: w.count, Complete: true, Pages: w.pages}
}

// withQueryParam appends a query parameter, preserving existing ones.
// A URI that fails to parse passes through untouched and will be rejected
// by the fetch instead.
func withQueryParam(uri, key, value string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return uri
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String()
}
