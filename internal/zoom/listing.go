package zoom

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/zoomscribe/zoomscribe/internal/logging"
)

// DefaultRangeDays is the listing window applied when no explicit time range
// is given.
const DefaultRangeDays = 30

// Filters narrow a listing run. The zero value means "everything from the
// last 30 days".
type Filters struct {
	// From and To bound the search window, inclusive. Zero values default to
	// the last DefaultRangeDays days ending now.
	From time.Time
	To   time.Time

	// HostEmail restricts results to one host. With user scope it selects
	// the listing endpoint; with a meeting identifier it filters client-side.
	HostEmail string

	// MeetingID is a numeric meeting id or an instance UUID. Numeric ids
	// resolve only to the latest instance on the recordings endpoint, so the
	// fetcher first enumerates all past instances.
	MeetingID string
}

// normalize fills defaults and validates the window.
func (f Filters) normalize(now time.Time) (Filters, error) {
	if f.To.IsZero() {
		f.To = now
	}
	if f.From.IsZero() {
		f.From = f.To.AddDate(0, 0, -DefaultRangeDays)
	}
	f.From = f.From.UTC()
	f.To = f.To.UTC()
	if f.To.Before(f.From) {
		return f, &ValidationError{Message: "listing window end precedes start"}
	}
	f.HostEmail = strings.TrimSpace(f.HostEmail)
	f.MeetingID = strings.TrimSpace(f.MeetingID)
	return f, nil
}

// ListRecordings returns all recordings matching filters, deduplicated by
// UUID, in provider page order. Each call issues fresh network requests;
// nothing is cached across runs. Items failing validation are dropped with
// a warning rather than failing the batch.
func (c *Client) ListRecordings(ctx context.Context, filters Filters) ([]Recording, error) {
	filters, err := filters.normalize(time.Now())
	if err != nil {
		return nil, err
	}
	log := logging.WithOperation(c.logger, "recordings.list")

	var recordings []Recording
	if filters.MeetingID != "" {
		recordings, err = c.listMeetingRecordings(ctx, filters)
	} else {
		recordings, err = c.listScopedRecordings(ctx, filters)
	}
	if err != nil {
		return nil, err
	}

	log.Info("listing completed",
		"count", len(recordings),
		"from", filters.From.Format("2006-01-02"),
		"to", filters.To.Format("2006-01-02"),
		"host", logging.AnonymizeIdentifier(filters.HostEmail),
		"has_meeting_id", filters.MeetingID != "",
	)
	return recordings, nil
}

// listScopedRecordings walks the paginated user- or account-scoped listing
// endpoint, following next_page_token until the provider stops returning one.
func (c *Client) listScopedRecordings(ctx context.Context, filters Filters) ([]Recording, error) {
	path := "accounts/me/recordings"
	if c.scope == ScopeUser {
		path = "users/me/recordings"
		if filters.HostEmail != "" {
			path = "users/" + encodeSegment(filters.HostEmail) + "/recordings"
		}
	}

	query := url.Values{
		"from":           {filters.From.Format("2006-01-02")},
		"to":             {filters.To.Format("2006-01-02")},
		"page_size":      {strconv.Itoa(c.pageSize)},
		"include_fields": {"download_access_token"},
	}

	log := logging.WithOperation(c.logger, "recordings.list")
	seen := make(map[string]bool)
	var out []Recording
	pageToken := ""
	for {
		q := url.Values{}
		for k, v := range query {
			q[k] = v
		}
		if pageToken != "" {
			q.Set("next_page_token", pageToken)
		}

		body, err := c.do(ctx, http.MethodGet, path, q)
		if err != nil {
			return nil, err
		}
		page, _, dropped, err := parsePayload(body, kindListing)
		if err != nil {
			return nil, err
		}
		for _, derr := range dropped {
			log.Warn("dropping invalid listing item", logging.Err(derr))
		}
		for _, rec := range page.Recordings {
			if seen[rec.UUID] {
				continue
			}
			seen[rec.UUID] = true
			// Host filtering is server-side for user scope; account scope
			// needs it applied here.
			if filters.HostEmail != "" && !strings.EqualFold(rec.HostEmail, filters.HostEmail) && c.scope == ScopeAccount {
				continue
			}
			out = append(out, rec)
		}
		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}
	return out, nil
}

// listMeetingRecordings resolves a meeting identifier into its recorded
// instances. A bare numeric id resolves only to the latest instance on the
// recordings endpoint, so all past instances are enumerated first.
func (c *Client) listMeetingRecordings(ctx context.Context, filters Filters) ([]Recording, error) {
	log := logging.WithOperation(c.logger, "recordings.list")
	encoded := EncodeMeetingUUID(filters.MeetingID)

	var uuids []string
	body, err := c.do(ctx, http.MethodGet, "past_meetings/"+encoded+"/instances", nil)
	switch {
	case err == nil:
		_, instances, _, perr := parsePayload(body, kindInstances)
		if perr != nil {
			return nil, perr
		}
		seen := make(map[string]bool)
		for _, inst := range instances {
			if seen[inst.UUID] {
				continue
			}
			seen[inst.UUID] = true
			uuids = append(uuids, inst.UUID)
		}
	case IsNotFound(err):
		// Fall through with no instances; the identifier may itself be an
		// instance UUID.
	default:
		return nil, err
	}
	if len(uuids) == 0 {
		uuids = []string{filters.MeetingID}
	}

	var out []Recording
	for _, uuid := range uuids {
		rec, err := c.fetchMeetingRecording(ctx, uuid)
		if err != nil {
			if IsNotFound(err) {
				log.Info("instance has no recording", "uuid", logging.AnonymizeIdentifier(uuid))
				continue
			}
			return nil, err
		}
		if rec.StartTime.Before(filters.From) || rec.StartTime.After(filters.To) {
			continue
		}
		if filters.HostEmail != "" && !strings.EqualFold(rec.HostEmail, filters.HostEmail) {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// fetchMeetingRecording fetches the recordings payload for one meeting
// instance, requesting a long-lived download access token so the files can
// be downloaded without interactive passcode prompts.
func (c *Client) fetchMeetingRecording(ctx context.Context, uuid string) (Recording, error) {
	query := url.Values{
		"include_fields": {"download_access_token"},
		"ttl":            {strconv.Itoa(downloadTokenTTL)},
	}
	body, err := c.do(ctx, http.MethodGet, "meetings/"+EncodeMeetingUUID(uuid)+"/recordings", query)
	if err != nil {
		return Recording{}, err
	}
	page, _, _, err := parsePayload(body, kindMeeting)
	if err != nil {
		return Recording{}, fmt.Errorf("parsing meeting recording: %w", err)
	}
	return page.Recordings[0], nil
}
