package agencebio

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	utls "github.com/refraction-networking/utls"

	"github.com/rendis/bioconnect/internal/model"
)

const (
	DefaultBaseURL   = "https://opendata.agencebio.org/api/gouv/operateurs/"
	DefaultTimeout   = 15 * time.Second
	DefaultUserAgent = "bioconnect/0.1 (organic operator directory)"

	maxErrorBody = 512
)

// RequestError is a failed search: transport error, non-2xx status or an
// undecodable payload. StatusCode is 0 when no response was received.
type RequestError struct {
	StatusCode int
	Err        error
}

func (e *RequestError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("search failed (HTTP %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("search failed: %v", e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// Request is one page of a search.
type Request struct {
	Query   string
	Filters model.FilterSet
	Origin  *model.Coordinates
	Limit   int // nb
	Offset  int // debut
}

// Page is the decoded response body.
type Page struct {
	Items []model.Operator `json:"items"`
	Total int              `json:"nbTotal"`
}

type Options struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
	ProxyURL  string
	// ChromeTLS dials with a Chrome ClientHello fingerprint.
	ChromeTLS bool
	Logger    *log.Logger
}

type Client struct {
	http      *http.Client
	baseURL   string
	userAgent string
	logger    *log.Logger
}

func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     90 * time.Second,
	}

	if opts.ChromeTLS {
		transport.DialTLSContext = chromeDialer(dialer)
	}

	if opts.ProxyURL != "" {
		proxyParsed, err := url.Parse(opts.ProxyURL)
		if err == nil {
			transport.Proxy = http.ProxyURL(proxyParsed)
			// The proxy terminates the connection, so the fingerprinted dialer is bypassed.
			transport.DialTLSContext = nil
			transport.TLSClientConfig = &tls.Config{}
		} else {
			logger.Printf("CLIENT ignoring invalid proxy url=%q err=%v", opts.ProxyURL, err)
		}
	}

	return &Client{
		http: &http.Client{
			Transport: transport,
			Timeout:   opts.Timeout,
		},
		baseURL:   opts.BaseURL,
		userAgent: opts.UserAgent,
		logger:    logger,
	}
}

func chromeDialer(dialer *net.Dialer) func(ctx context.Context, network, addr string) (net.Conn, error) {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := dialer.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}

		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			host = addr
		}

		// Chrome spec with ALPN forced to HTTP/1.1, which is all net/http speaks over a custom dialer.
		spec, err := utls.UTLSIdToSpec(utls.HelloChrome_Auto)
		if err != nil {
			conn.Close()
			return nil, err
		}
		for i, ext := range spec.Extensions {
			if alpn, ok := ext.(*utls.ALPNExtension); ok {
				alpn.AlpnProtocols = []string{"http/1.1"}
				spec.Extensions[i] = alpn
				break
			}
		}

		tlsConn := utls.UClient(conn, &utls.Config{ServerName: host}, utls.HelloCustom)
		if err := tlsConn.ApplyPreset(&spec); err != nil {
			conn.Close()
			return nil, err
		}
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			conn.Close()
			return nil, err
		}
		return tlsConn, nil
	}
}

// BuildQuery encodes a request. Optional fields are omitted rather than sent empty.
func BuildQuery(r Request) url.Values {
	params := url.Values{}
	if r.Origin != nil {
		params.Set("lat", strconv.FormatFloat(r.Origin.Lat, 'f', -1, 64))
		params.Set("lng", strconv.FormatFloat(r.Origin.Lng, 'f', -1, 64))
	}
	params.Set("nb", strconv.Itoa(r.Limit))
	params.Set("debut", strconv.Itoa(r.Offset))
	if q := strings.TrimSpace(r.Query); q != "" {
		params.Set("q", q)
	}
	r.Filters.Encode(params)
	return params
}

// URL returns the full request URL for r.
func (c *Client) URL(r Request) string {
	sep := "?"
	if strings.Contains(c.baseURL, "?") {
		sep = "&"
	}
	return c.baseURL + sep + BuildQuery(r).Encode()
}

// Search fetches one page. There is no retry: failures go back to the caller.
func (c *Client) Search(ctx context.Context, r Request) (*Page, error) {
	reqURL := c.URL(r)
	reqID := uuid.NewString()
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &RequestError{Err: fmt.Errorf("building request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-Id", reqID)

	c.logger.Printf("HTTP GET id=%s url=%s", reqID, reqURL)

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Printf("HTTP ERROR id=%s err=%v", reqID, err)
		return nil, &RequestError{Err: fmt.Errorf("executing request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		io.Copy(io.Discard, resp.Body)
		c.logger.Printf("HTTP STATUS id=%s status=%d body=%q", reqID, resp.StatusCode, snippet)
		return nil, &RequestError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %s", http.StatusText(resp.StatusCode)),
		}
	}

	var page Page
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		c.logger.Printf("HTTP DECODE id=%s err=%v", reqID, err)
		return nil, &RequestError{StatusCode: resp.StatusCode, Err: fmt.Errorf("decoding response: %w", err)}
	}
	if page.Items == nil {
		page.Items = []model.Operator{}
	}
	if page.Total < 0 {
		page.Total = 0
	}

	c.logger.Printf("HTTP OK id=%s items=%d total=%d elapsed=%s",
		reqID, len(page.Items), page.Total, time.Since(start).Truncate(time.Millisecond))
	return &page, nil
}
