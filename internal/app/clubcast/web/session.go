// Package web is the authenticated HTTP session shared by every
// portal collaborator for the lifetime of one command.
package web

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"clubcast/internal/app/clubcast/content"
)

// Session is an http.Client with portal cookies and headers attached.
// It is handed explicitly to every collaborator, there is no ambient
// shared client.
type Session struct {
	client    *http.Client
	baseURL   string
	userAgent string
}

// NewSession builds a cookie-carrying session for the portal. Media
// downloads stream through this client, so there is no overall request
// deadline; dialing, the TLS handshake and waiting for response
// headers are bounded on the transport instead.
func NewSession(baseURL, userAgent string) (*Session, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	return &Session{
		client: &http.Client{
			Jar: jar,
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				DialContext:           (&net.Dialer{Timeout: 30 * time.Second}).DialContext,
				TLSHandshakeTimeout:   30 * time.Second,
				ResponseHeaderTimeout: 2 * time.Minute,
			},
		},
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
	}, nil
}

// BaseURL is the portal root the session was built for.
func (s *Session) BaseURL() string { return s.baseURL }

// AbsURL resolves a scraped href against the portal root.
func (s *Session) AbsURL(href string) string {
	href = strings.TrimSpace(href)
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	if !strings.HasPrefix(href, "/") {
		href = "/" + href
	}
	return s.baseURL + href
}

func (s *Session) do(method, rawURL, referer string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequest(method, rawURL, body)
	if err != nil {
		return nil, &content.NetworkError{URL: rawURL, Err: err}
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Origin", s.baseURL)
	if referer == "" {
		referer = s.baseURL
	}
	req.Header.Set("Referer", referer)
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &content.NetworkError{URL: rawURL, Err: err}
	}
	if resp.StatusCode >= http.StatusBadRequest {
		_ = resp.Body.Close()
		return nil, &content.NetworkError{URL: rawURL, Status: resp.Status}
	}
	return resp, nil
}

// Get fetches rawURL. The caller owns the response body.
func (s *Session) Get(rawURL string) (*http.Response, error) {
	return s.do(http.MethodGet, rawURL, "", nil)
}

// GetWithReferer fetches rawURL announcing the given embedding page.
func (s *Session) GetWithReferer(rawURL, referer string) (*http.Response, error) {
	return s.do(http.MethodGet, rawURL, referer, nil)
}

// Document fetches rawURL and parses it into a traversable tree.
func (s *Session) Document(rawURL string) (*goquery.Document, error) {
	resp, err := s.Get(rawURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() // nolint

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document %s: %w", rawURL, err)
	}
	return doc, nil
}

// PostQueryDocument issues a POST with params in the query string and
// parses the returned markup fragment.
func (s *Session) PostQueryDocument(rawURL string, params url.Values) (*goquery.Document, error) {
	u := rawURL
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	resp, err := s.do(http.MethodPost, u, "", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() // nolint

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document %s: %w", rawURL, err)
	}
	return doc, nil
}

// PostForm submits a urlencoded form and returns the response body.
func (s *Session) PostForm(rawURL string, data url.Values) ([]byte, error) {
	resp, err := s.do(http.MethodPost, rawURL, "", strings.NewReader(data.Encode()))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() // nolint

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &content.NetworkError{URL: rawURL, Err: err}
	}
	return body, nil
}

// JSON fetches rawURL and decodes the JSON response into v.
func (s *Session) JSON(rawURL, referer string, v any) error {
	resp, err := s.do(http.MethodGet, rawURL, referer, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close() // nolint

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode json %s: %w", rawURL, err)
	}
	return nil
}

// Head probes rawURL and returns the response headers.
func (s *Session) Head(rawURL string) (http.Header, error) {
	resp, err := s.do(http.MethodHead, rawURL, "", nil)
	if err != nil {
		return nil, err
	}
	_ = resp.Body.Close()
	return resp.Header, nil
}
