// Package fetchtest provides a canned fetch.Fetcher for tests.
package fetchtest

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/TobiSchelling/tripcorpus/internal/fetch"
)

// Static serves canned pages keyed by URL. Unknown URLs behave like a 404.
type Static struct {
	Pages map[string]string
	// Debug mirrors Client's debug mode: unknown URLs yield a nil page.
	Debug bool
	// Budget, when set, is spent per host like Client does.
	Budget *fetch.Budget
	// Requests records every URL asked for, in order.
	Requests []string
}

// Get returns the canned page for rawURL.
func (s *Static) Get(_ context.Context, rawURL string) (*fetch.Page, error) {
	if s.Budget != nil {
		u, err := url.Parse(rawURL)
		if err != nil {
			return nil, err
		}
		if err := s.Budget.Spend(strings.ToLower(u.Host)); err != nil {
			return nil, err
		}
	}
	s.Requests = append(s.Requests, rawURL)
	body, ok := s.Pages[rawURL]
	if !ok {
		if s.Debug {
			return nil, nil
		}
		return nil, &fetch.StatusError{URL: rawURL, Code: http.StatusNotFound}
	}
	return fetch.NewPage(rawURL, []byte(body))
}
