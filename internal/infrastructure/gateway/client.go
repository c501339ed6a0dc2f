// Package gateway is the Remote Gateway: a resty client for the AbleConnect
// backend that attaches the CSRF token on mutating calls and classifies every
// failure as either a connectivity failure or an application error.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/ableconnect/connect-agent/internal/core/domain"
	"github.com/ableconnect/connect-agent/internal/core/ports"
	"github.com/ableconnect/connect-agent/internal/pkg/metrics"
)

const (
	defaultTimeout    = 8 * time.Second
	defaultCSRFCookie = "csrftoken"
	csrfHeader        = "X-CSRFToken"
)

// Config captures the backend location and call policy.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	CSRFCookie string
}

// Client implements ports.Gateway.
type Client struct {
	http       *resty.Client
	base       *url.URL
	jar        http.CookieJar
	csrfCookie string
	log        zerolog.Logger
}

var _ ports.Gateway = (*Client)(nil)

// New builds a Client with its own cookie jar so the backend session and CSRF
// cookies persist between calls.
func New(cfg Config, log zerolog.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("gateway: invalid base url %q", cfg.BaseURL)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	cookie := cfg.CSRFCookie
	if cookie == "" {
		cookie = defaultCSRFCookie
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("gateway: cookie jar: %w", err)
	}

	hc := resty.New().
		SetBaseURL(base.String()).
		SetTimeout(timeout).
		SetCookieJar(jar).
		SetHeader("Accept", "application/json")

	return &Client{http: hc, base: base, jar: jar, csrfCookie: cookie, log: log}, nil
}

// filePart is one uploaded file in a multipart request.
type filePart struct {
	field string
	file  *domain.Attachment
}

// request describes one backend call. Setting form or files makes it multipart.
type request struct {
	op     string
	method string
	path   string
	query  map[string]string
	json   any
	form   map[string]string
	files  []filePart
}

func (r request) multipart() bool { return r.form != nil || len(r.files) > 0 }

func safeMethod(m string) bool {
	switch m {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	}
	return false
}

func (c *Client) csrfToken() string {
	for _, ck := range c.jar.Cookies(c.base) {
		if ck.Name == c.csrfCookie {
			return ck.Value
		}
	}
	return ""
}

// do executes r and decodes a successful JSON body into out (when non-nil).
func (c *Client) do(ctx context.Context, r request, out any) error {
	req := c.http.R().SetContext(ctx)
	if !safeMethod(r.method) {
		if tok := c.csrfToken(); tok != "" {
			req.SetHeader(csrfHeader, tok)
		}
	}
	if len(r.query) > 0 {
		req.SetQueryParams(r.query)
	}
	switch {
	case r.multipart():
		form := r.form
		if form == nil {
			form = map[string]string{}
		}
		req.SetMultipartFormData(form)
		for _, f := range r.files {
			ct := f.file.ContentType
			if ct == "" {
				ct = "application/octet-stream"
			}
			req.SetMultipartField(f.field, f.file.FileName, ct, bytes.NewReader(f.file.Data))
		}
	case r.json != nil:
		req.SetHeader("Content-Type", "application/json").SetBody(r.json)
	}

	start := time.Now()
	resp, err := req.Execute(r.method, r.path)
	metrics.GatewayRequestDuration.WithLabelValues(r.op).Observe(time.Since(start).Seconds())

	if err != nil {
		if errors.Is(err, context.Canceled) {
			return fmt.Errorf("%s: %w", r.op, err)
		}
		c.count(r.op, "connectivity")
		c.log.Debug().Err(err).Str("op", r.op).Msg("backend unreachable")
		return &domain.ConnectivityError{Op: r.op, Err: err}
	}
	return c.decode(r.op, resp, out)
}

func (c *Client) decode(op string, resp *resty.Response, out any) error {
	body := bytes.TrimSpace(resp.Body())
	status := resp.StatusCode()

	if !resp.IsSuccess() {
		if len(body) == 0 || !json.Valid(body) {
			// A gateway or proxy answered; the backend itself was not reached.
			c.count(op, "connectivity")
			return &domain.ConnectivityError{Op: op, Err: fmt.Errorf("status %d with non-JSON body", status)}
		}
		c.count(op, "application_error")
		appErr := parseApplicationError(status, body)
		c.log.Debug().Int("status", status).Str("op", op).Str("message", appErr.Message).Msg("backend rejected request")
		return appErr
	}

	if out == nil {
		c.count(op, "ok")
		return nil
	}
	if len(body) == 0 || json.Unmarshal(body, out) != nil {
		c.count(op, "application_error")
		return &domain.ApplicationError{Status: status, Message: "invalid response from server"}
	}
	c.count(op, "ok")
	return nil
}

func (c *Client) count(op, outcome string) {
	metrics.GatewayRequestsTotal.WithLabelValues(op, outcome).Inc()
}

// parseApplicationError picks the most specific message from an error body:
// error, then detail, then non_field_errors, then the first field error.
func parseApplicationError(status int, body []byte) *domain.ApplicationError {
	appErr := &domain.ApplicationError{
		Status:  status,
		Message: fmt.Sprintf("Request failed: %d", status),
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		if msgs := stringsOf(body); len(msgs) > 0 {
			appErr.Message = msgs[0]
		}
		return appErr
	}

	fields := make(map[string][]string, len(obj))
	keys := make([]string, 0, len(obj))
	for k, raw := range obj {
		if msgs := stringsOf(raw); len(msgs) > 0 {
			fields[k] = msgs
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	appErr.Fields = fields

	switch {
	case len(fields["error"]) > 0:
		appErr.Message = fields["error"][0]
	case len(fields["detail"]) > 0:
		appErr.Message = fields["detail"][0]
	case len(fields["non_field_errors"]) > 0:
		appErr.Message = fields["non_field_errors"][0]
	case len(keys) > 0:
		appErr.Message = keys[0] + ": " + fields[keys[0]][0]
	}
	return appErr
}

// stringsOf reads a JSON string or a list of strings.
func stringsOf(raw []byte) []string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		if s == "" {
			return nil
		}
		return []string{s}
	}
	var list []string
	if json.Unmarshal(raw, &list) == nil {
		return list
	}
	return nil
}

// Ping reports whether the backend answers at all. Any HTTP answer counts.
func (c *Client) Ping(ctx context.Context) error {
	err := c.do(ctx, request{op: "ping", method: http.MethodGet, path: "/users/me/"}, nil)
	if domain.IsConnectivity(err) || errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func idPath(prefix, id, suffix string) string {
	return prefix + url.PathEscape(id) + "/" + suffix
}
