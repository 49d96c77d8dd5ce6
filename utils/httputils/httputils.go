// Copyright 2025 The Nearby Authors
// SPDX-License-Identifier: Apache-2.0

// Package httputils provides round trippers shared by the places clients.
package httputils

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// SecretQueryParams are the query parameters LoggingRoundTripper never prints.
var SecretQueryParams = []string{"key", "api_key", "access_token"}

var authorizationHeader = regexp.MustCompile(`(?i)^(authorization|x-goog-api-key):.*$`)

// LoggingRoundTripper dumps HTTP transactions to Writer. Credentials in the
// query string and authorization headers are masked.
type LoggingRoundTripper struct {
	Transport http.RoundTripper
	Writer    io.Writer
	DumpBody  bool
}

// redactURL masks every secret parameter of u.
func redactURL(u *url.URL) string {
	q := u.Query()

	changed := false

	for _, k := range SecretQueryParams {
		if q.Has(k) {
			q.Set(k, "REDACTED")

			changed = true
		}
	}

	if !changed {
		return u.RequestURI()
	}

	cp := *u
	cp.RawQuery = q.Encode()

	return cp.RequestURI()
}

// abbreviate prefixes lines and bounds how much of a transaction is printed.
func abbreviate(lines []string, prefix rune) []string {
	const maxLines, maxChars = 2048, 512

	if len(lines) > maxLines {
		lines = append(lines[:maxLines], "…")
	}

	for i, line := range lines {
		line = strings.TrimRight(line, "\r")
		if m := authorizationHeader.FindStringSubmatch(line); m != nil {
			line = m[1] + ": REDACTED"
		}

		if len(line) > maxChars {
			line = line[0:maxChars] + "…"
		}

		lines[i] = fmt.Sprintf("%c %s", prefix, line)
	}

	return lines
}

func (t *LoggingRoundTripper) dumpRequest(req *http.Request) error {
	dump, err := httputil.DumpRequestOut(req, true)
	if err != nil {
		return fmt.Errorf("tracing HTTP request: %w", err)
	}

	lines := strings.Split(string(dump), "\n")
	if len(lines) > 0 {
		lines[0] = strings.Replace(lines[0], req.URL.RequestURI(), redactURL(req.URL), 1)
	}

	lines = append(abbreviate(lines, '>'), "")
	_, err = fmt.Fprint(t.Writer, strings.Join(lines, "\n"))

	return err
}

func (t *LoggingRoundTripper) dumpResponse(resp *http.Response, duration time.Duration) error {
	dump, err := httputil.DumpResponse(resp, t.DumpBody)
	if err != nil {
		return fmt.Errorf("tracing HTTP response: %w", err)
	}

	_, err = fmt.Fprintf(t.Writer, "< RESPONSE: [%v]\n", duration)
	if err != nil {
		return fmt.Errorf("tracing HTTP response: %w", err)
	}

	lines := append(abbreviate(strings.Split(string(dump), "\n"), '<'), "")
	_, err = fmt.Fprint(t.Writer, strings.Join(lines, "\n"))

	return err
}

// RoundTrip implements the http.RoundTripper interface.
func (t *LoggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Writer == nil {
		return t.Transport.RoundTrip(req)
	}

	if err := t.dumpRequest(req); err != nil {
		return nil, err
	}

	start := time.Now()

	resp, err := t.Transport.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if err := t.dumpResponse(resp, time.Since(start)); err != nil {
		return nil, err
	}

	return resp, nil
}

// AppendRequestHeadersRoundTripper adds headers to every request.
type AppendRequestHeadersRoundTripper struct {
	Transport http.RoundTripper
	Headers   map[string]string
}

// RoundTrip implements the http.RoundTripper interface.
func (t *AppendRequestHeadersRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for k, v := range t.Headers {
		req.Header.Set(k, v)
	}

	return t.Transport.RoundTrip(req)
}

// NewTransport chains the header and logging round trippers over base. A nil
// base means http.DefaultTransport and a nil trace disables logging.
func NewTransport(base http.RoundTripper, headers map[string]string, trace io.Writer) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}

	var rt http.RoundTripper = &LoggingRoundTripper{Transport: base, Writer: trace}
	if len(headers) > 0 {
		rt = &AppendRequestHeadersRoundTripper{Transport: rt, Headers: headers}
	}

	return rt
}
