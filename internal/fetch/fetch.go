package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/TobiSchelling/tripcorpus/internal/markup"
)

var (
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")
	// ErrNoPage is returned by extractors handed the nil page that debug
	// mode produces for a failed fetch.
	ErrNoPage = errors.New("page was not retrieved")
)

// StatusError reports a non-200 response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: %d %s", e.URL, e.Code, http.StatusText(e.Code))
}

func (e *StatusError) Unwrap() error {
	return ErrUnexpectedStatus
}

// Page is a fetched document: the raw bytes plus the parsed tree.
type Page struct {
	URL *url.URL
	Raw []byte
	Doc markup.Node
}

// NewPage parses raw HTML fetched from rawURL.
func NewPage(rawURL string, raw []byte) (*Page, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing url %q: %w", rawURL, err)
	}
	doc, err := markup.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	return &Page{URL: u, Raw: raw, Doc: doc}, nil
}

// Fetcher retrieves and parses a page. A nil page with a nil error means
// the page was skipped in debug mode.
type Fetcher interface {
	Get(ctx context.Context, rawURL string) (*Page, error)
}

// Options configures a Client.
type Options struct {
	Name    string
	Email   string
	Debug   bool
	Timeout time.Duration
	// Delay is the minimum spacing between two requests.
	Delay  time.Duration
	Budget *Budget
}

// Client issues GET requests carrying fixed identifying headers.
type Client struct {
	client  *http.Client
	headers http.Header
	debug   bool
	limiter *rate.Limiter
	budget  *Budget
}

// NewClient creates a new client.
func NewClient(opts Options) *Client {
	c := &Client{
		client:  &http.Client{Timeout: opts.Timeout},
		headers: make(http.Header),
		debug:   opts.Debug,
		budget:  opts.Budget,
	}
	c.headers.Set("User-Agent", opts.Name)
	c.headers.Set("From", opts.Email)
	if opts.Delay > 0 {
		c.limiter = rate.NewLimiter(rate.Every(opts.Delay), 1)
	}
	return c
}

// Get fetches rawURL. Any status other than 200 is an error, except in
// debug mode where it is logged and a nil page is returned.
func (c *Client) Get(ctx context.Context, rawURL string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range c.headers {
		req.Header[k] = v
	}

	if err := c.budget.Spend(strings.ToLower(req.URL.Host)); err != nil {
		return nil, err
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if c.debug {
		log.Printf("URL: %s\n\tStatus code: %d", rawURL, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		if c.debug {
			return nil, nil
		}
		return nil, &StatusError{URL: rawURL, Code: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", rawURL, err)
	}
	return NewPage(rawURL, body)
}

// Requests returns the number of requests sent per host so far.
func (c *Client) Requests() map[string]int {
	return c.budget.Snapshot()
}
