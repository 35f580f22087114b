// Package tmdb provides a client for The Movie Database v3 search API.
package tmdb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Client defines the TMDB operations used by the enrichment stage.
type Client interface {
	// SearchMovie searches by title and returns metadata for the top result,
	// or nil when nothing matched.
	SearchMovie(ctx context.Context, title string) (*Metadata, error)
}

// Metadata is the subset of TMDB movie fields the pipeline stores.
type Metadata struct {
	ReleaseYear string
	Language    string
	Genre       string
}

// Option configures the TMDB client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(base string) Option {
	return func(c *httpClient) {
		c.baseURL = base
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.hc = hc
	}
}

type httpClient struct {
	token   string
	baseURL string
	hc      *http.Client
}

// NewClient creates a TMDB client with bearer-token auth.
func NewClient(token string, opts ...Option) Client {
	c := &httpClient{
		token:   token,
		baseURL: "https://api.themoviedb.org/3",
		hc:      &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type searchResponse struct {
	Results []struct {
		ReleaseDate      string `json:"release_date"`
		OriginalLanguage string `json:"original_language"`
		GenreIDs         []int  `json:"genre_ids"`
	} `json:"results"`
}

func (c *httpClient) SearchMovie(ctx context.Context, title string) (*Metadata, error) {
	endpoint := fmt.Sprintf("%s/search/movie?query=%s", c.baseURL, url.QueryEscape(title))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, eris.Wrap(err, "tmdb: build request")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json;charset=utf-8")

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "tmdb: search %q", title)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "tmdb: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("tmdb: search %q: status %d: %s", title, resp.StatusCode, string(body))
	}

	var sr searchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, eris.Wrap(err, "tmdb: decode response")
	}
	if len(sr.Results) == 0 {
		return nil, nil
	}

	top := sr.Results[0]
	var year string
	if len(top.ReleaseDate) >= 4 {
		year = top.ReleaseDate[:4]
	}
	var genres []string
	for _, id := range top.GenreIDs {
		if name, ok := genreNames[id]; ok {
			genres = append(genres, name)
		}
	}

	return &Metadata{
		ReleaseYear: year,
		Language:    top.OriginalLanguage,
		Genre:       strings.Join(genres, ", "),
	}, nil
}

// genreNames maps TMDB movie genre IDs to names. The v3 genre list is static,
// so a lookup table avoids a second API call per search.
var genreNames = map[int]string{
	28:    "Action",
	12:    "Adventure",
	16:    "Animation",
	35:    "Comedy",
	80:    "Crime",
	99:    "Documentary",
	18:    "Drama",
	10751: "Family",
	14:    "Fantasy",
	36:    "History",
	27:    "Horror",
	10402: "Music",
	9648:  "Mystery",
	10749: "Romance",
	878:   "Science Fiction",
	10770: "TV Movie",
	53:    "Thriller",
	10752: "War",
	37:    "Western",
}
