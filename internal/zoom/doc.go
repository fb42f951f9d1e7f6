// Package zoom provides a client for the Zoom cloud recordings REST API.
//
// The client covers the retrieval half of the pipeline: authenticating via
// server-to-server OAuth, walking the paginated recording listings, resolving
// recurring-meeting instances, and opening download streams for recording
// assets. It applies Zoom-specific wire rules that are easy to get wrong:
//
//   - meeting UUIDs beginning with "/" or containing "//" must be
//     percent-encoded twice before use in a URL path
//   - HTTP 429 responses carry a Retry-After hint that takes precedence over
//     exponential backoff
//   - a 401 is answered by exactly one token refresh per logical request
//   - download URLs embed access tokens, so redirects are refused and URLs
//     are logged without their query strings
//
// Errors are classified into a small taxonomy (AuthError, PermissionError,
// RateLimitError, TransientError, NotFoundError, ValidationError) so callers
// can decide what is retryable without inspecting status codes.
//
// Example usage:
//
//	tokens, err := zoom.NewTokenProvider(creds, "")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	client, err := zoom.NewClient(zoom.Config{Tokens: tokens})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	recordings, err := client.ListRecordings(ctx, zoom.Filters{})
package zoom
