package zoom

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/zoomscribe/zoomscribe/internal/logging"
)

// DownloadStream is an open byte stream for one recording asset. The caller
// owns Body and must close it.
type DownloadStream struct {
	Body io.ReadCloser

	// ContentLength is the remaining byte count as reported by the provider,
	// or -1 when unknown.
	ContentLength int64

	// Resumed is true when the provider honoured a requested byte range and
	// Body continues from the requested offset.
	Resumed bool
}

// Download opens a streaming GET against a recording download URL, retrying
// transient failures before the first byte with the same bounded budget as
// API requests. accessToken is appended as a query parameter only when the
// URL does not already carry one; offset > 0 asks the provider for the
// remaining byte range.
//
// Only *.zoom.us hosts are accepted, and redirects are refused: download
// URLs embed access tokens, and following a redirect could replay them to an
// arbitrary host.
func (c *Client) Download(ctx context.Context, rawURL, accessToken string, offset int64) (*DownloadStream, error) {
	reqURL, err := resolveDownloadURL(rawURL, accessToken)
	if err != nil {
		return nil, err
	}
	log := logging.WithOperation(c.logger, "file.download")
	safeURL := logging.RedactURL(rawURL)

	attempt := 0
	authRefreshed := false
	for {
		token, terr := c.tokens.Token(ctx)
		if terr != nil {
			return nil, terr
		}

		req, rerr := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if rerr != nil {
			return nil, &ValidationError{Message: fmt.Sprintf("invalid download URL: %v", rerr)}
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept", "*/*")
		if offset > 0 {
			req.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))
		}

		start := time.Now()
		resp, derr := c.httpClient.Do(req)
		if derr != nil {
			c.record(ctx, http.MethodGet, "download", 0, start)
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if attempt < c.maxRetries {
				if serr := c.sleep(ctx, c.retryDelay(attempt, nil)); serr != nil {
					return nil, serr
				}
				attempt++
				continue
			}
			return nil, &TransientError{
				APIError: APIError{Message: "download failed after retries"},
				Err:      derr,
			}
		}
		c.record(ctx, http.MethodGet, "download", resp.StatusCode, start)

		switch {
		case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusPartialContent:
			log.Debug("download stream opened",
				"url", safeURL,
				"status", resp.StatusCode,
				"attempt", attempt,
				"resumed", resp.StatusCode == http.StatusPartialContent,
			)
			return &DownloadStream{
				Body:          resp.Body,
				ContentLength: resp.ContentLength,
				Resumed:       resp.StatusCode == http.StatusPartialContent,
			}, nil

		case resp.StatusCode >= 300 && resp.StatusCode < 400:
			// Redact the Location query before it reaches any log or error.
			location := logging.RedactURL(resp.Header.Get("Location"))
			resp.Body.Close()
			return nil, &PermissionError{APIError{
				Message:    "download responded with redirect; refusing to follow (location " + location + ")",
				StatusCode: resp.StatusCode,
			}}

		case resp.StatusCode == http.StatusUnauthorized && !authRefreshed:
			resp.Body.Close()
			c.tokens.Invalidate()
			authRefreshed = true
			continue

		case retryableStatus(resp.StatusCode) && attempt < c.maxRetries:
			delay := c.retryDelay(attempt, resp)
			resp.Body.Close()
			log.Warn("retryable download response",
				"url", safeURL,
				"status", resp.StatusCode,
				"attempt", attempt,
				"delay", delay,
			)
			if serr := c.sleep(ctx, delay); serr != nil {
				return nil, serr
			}
			attempt++
			continue

		default:
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
			resp.Body.Close()
			return nil, c.apiError(resp, body, "download", attempt)
		}
	}
}

// DownloadFile opens the stream for a RecordingFile, preferring its per-file
// access token over the account token query parameter.
func (c *Client) DownloadFile(ctx context.Context, f RecordingFile, offset int64) (*DownloadStream, error) {
	return c.Download(ctx, f.DownloadURL, f.DownloadAccessToken, offset)
}

// resolveDownloadURL validates the host allowlist and appends the access
// token query parameter when one was supplied.
func resolveDownloadURL(rawURL, accessToken string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", &ValidationError{Message: fmt.Sprintf("invalid download URL: %v", err)}
	}
	host := u.Hostname()
	if host != "zoom.us" && !hasSuffixFold(host, ".zoom.us") {
		return "", &ValidationError{Message: fmt.Sprintf("refusing to download from non-zoom host %q", host)}
	}
	if accessToken != "" {
		q := u.Query()
		if q.Get("access_token") == "" {
			q.Set("access_token", accessToken)
			u.RawQuery = q.Encode()
		}
	}
	return u.String(), nil
}

func hasSuffixFold(s, suffix string) bool {
	if len(s) < len(suffix) {
		return false
	}
	tail := s[len(s)-len(suffix):]
	for i := 0; i < len(suffix); i++ {
		a, b := tail[i], suffix[i]
		if 'A' <= a && a <= 'Z' {
			a += 'a' - 'A'
		}
		if 'A' <= b && b <= 'Z' {
			b += 'a' - 'A'
		}
		if a != b {
			return false
		}
	}
	return true
}

// ExpectedTotal returns the total file size implied by a stream opened at
// offset, or -1 when the provider did not report a length. The writer uses
// it to validate resumed transfers.
func ExpectedTotal(stream *DownloadStream, offset int64) int64 {
	if stream.ContentLength < 0 {
		return -1
	}
	if stream.Resumed {
		return offset + stream.ContentLength
	}
	return stream.ContentLength
}
