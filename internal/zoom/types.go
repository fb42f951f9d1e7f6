package zoom

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// FileType classifies a downloadable recording asset.
type FileType string

// Known asset classes. The provider reports many raw file_type labels; they
// collapse onto these buckets for path naming and reporting.
const (
	FileTypeVideo      FileType = "video"
	FileTypeAudio      FileType = "audio"
	FileTypeTranscript FileType = "transcript"
	FileTypeChat       FileType = "chat"
	FileTypeOther      FileType = "other"
)

// classifyFileType maps a raw Zoom file_type label onto a FileType bucket.
func classifyFileType(raw string) FileType {
	switch strings.ToUpper(raw) {
	case "MP4", "SCREEN_SHARE", "SHARED_SCREEN_WITH_SPEAKER_VIEW", "SHARED_SCREEN_WITH_GALLERY_VIEW", "SPEAKER_VIEW", "GALLERY_VIEW":
		return FileTypeVideo
	case "M4A", "AUDIO_ONLY":
		return FileTypeAudio
	case "TRANSCRIPT", "CC", "CLOSED_CAPTION", "TIMELINE", "SUMMARY":
		return FileTypeTranscript
	case "CHAT", "CHAT_MESSAGE":
		return FileTypeChat
	default:
		return FileTypeOther
	}
}

// RecordingFile is one downloadable asset of a Recording. It is owned
// exclusively by its parent Recording and never shared.
type RecordingFile struct {
	// ID is the provider-assigned identifier for this asset.
	ID string

	// FileType is the raw provider label, e.g. "MP4" or "TRANSCRIPT".
	FileType string

	// FileExtension is normalised to lower case without the leading dot.
	FileExtension string

	// DownloadURL is the direct download location for the asset.
	DownloadURL string

	// DownloadAccessToken is the per-file token granted when the listing was
	// requested with include_fields=download_access_token. Optional.
	DownloadAccessToken string

	// RecordingStart is when this asset began recording. Falls back to the
	// parent Recording's start time when the provider omits it.
	RecordingStart time.Time

	// Status is the provider lifecycle status, when reported.
	Status string

	// FileSize is the asset size in bytes, when reported. Zero when unknown.
	FileSize int64
}

// Type returns the classified asset bucket for this file.
func (f RecordingFile) Type() FileType {
	return classifyFileType(f.FileType)
}

// Recording is one recorded meeting instance together with its downloadable
// assets. It is immutable once parsed; identity is UUID.
type Recording struct {
	UUID            string
	MeetingID       int64
	Topic           string
	HostEmail       string
	StartTime       time.Time
	DurationMinutes int
	Files           []RecordingFile
}

// recordingPage is one page of a paginated listing response.
type recordingPage struct {
	Recordings    []Recording
	NextPageToken string
	TotalRecords  int
}

// meetingInstance is one past occurrence of a recurring meeting.
type meetingInstance struct {
	UUID      string
	StartTime time.Time
}

// payloadKind tags the response variants the recording endpoints produce.
// The three shapes overlap heavily, so a single parser consumes all of them
// instead of one decoder type per endpoint.
type payloadKind int

const (
	kindListing   payloadKind = iota // users|accounts .../recordings pages
	kindMeeting                      // meetings/{uuid}/recordings
	kindInstances                    // past_meetings/{id}/instances
)

// apiPayload is the superset wire shape of the listing, single-meeting, and
// instances responses.
type apiPayload struct {
	// Listing page fields.
	NextPageToken string       `json:"next_page_token"`
	TotalRecords  int          `json:"total_records"`
	Meetings      []apiMeeting `json:"meetings"`

	// Single-meeting fields (the meeting object is inlined at top level).
	apiMeeting
}

type apiMeeting struct {
	UUID           string    `json:"uuid"`
	ID             int64     `json:"id"`
	Topic          string    `json:"topic"`
	HostEmail      string    `json:"host_email"`
	StartTime      string    `json:"start_time"`
	Duration       int       `json:"duration"`
	RecordingFiles []apiFile `json:"recording_files"`
}

type apiFile struct {
	ID                  string  `json:"id"`
	FileType            string  `json:"file_type"`
	FileExtension       string  `json:"file_extension"`
	DownloadURL         string  `json:"download_url"`
	DownloadAccessToken string  `json:"download_access_token"`
	RecordingStart      string  `json:"recording_start"`
	Status              string  `json:"status"`
	FileSize            float64 `json:"file_size"`
}

// parseTime accepts the provider's timestamp flavours ("...Z" or an explicit
// offset) and normalises to UTC.
func parseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, &ValidationError{Message: "expected an ISO 8601 timestamp"}
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, &ValidationError{Message: fmt.Sprintf("invalid timestamp %q", value)}
	}
	return t.UTC(), nil
}

// parseRecording validates and converts one meeting object. A missing UUID,
// start time, or per-file download URL fails the whole recording.
func parseRecording(m apiMeeting) (Recording, error) {
	if m.UUID == "" {
		return Recording{}, &ValidationError{Message: "recording payload missing uuid"}
	}
	start, err := parseTime(m.StartTime)
	if err != nil {
		return Recording{}, err
	}

	rec := Recording{
		UUID:            m.UUID,
		MeetingID:       m.ID,
		Topic:           strings.TrimSpace(m.Topic),
		HostEmail:       strings.TrimSpace(m.HostEmail),
		StartTime:       start,
		DurationMinutes: m.Duration,
		Files:           make([]RecordingFile, 0, len(m.RecordingFiles)),
	}

	for _, f := range m.RecordingFiles {
		if f.ID == "" || f.FileType == "" || f.DownloadURL == "" {
			return Recording{}, &ValidationError{
				Message: fmt.Sprintf("recording file missing required fields (recording %s)", m.UUID),
			}
		}
		ext := strings.ToLower(strings.TrimPrefix(f.FileExtension, "."))
		if ext == "" {
			ext = strings.ToLower(f.FileType)
		}
		fileStart := start
		if f.RecordingStart != "" {
			if t, err := parseTime(f.RecordingStart); err == nil {
				fileStart = t
			}
		}
		rec.Files = append(rec.Files, RecordingFile{
			ID:                  f.ID,
			FileType:            f.FileType,
			FileExtension:       ext,
			DownloadURL:         f.DownloadURL,
			DownloadAccessToken: strings.TrimSpace(f.DownloadAccessToken),
			RecordingStart:      fileStart,
			Status:              f.Status,
			FileSize:            int64(f.FileSize),
		})
	}
	return rec, nil
}

// parseErrorBody pulls the provider message and error code out of an error
// response body, tolerating both "code" and "error_code" spellings.
func parseErrorBody(body []byte) (message, code string) {
	var payload struct {
		Message   string          `json:"message"`
		Code      json.RawMessage `json:"code"`
		ErrorCode json.RawMessage `json:"error_code"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", ""
	}
	raw := payload.Code
	if len(raw) == 0 {
		raw = payload.ErrorCode
	}
	return payload.Message, strings.Trim(string(raw), `"`)
}

// parsePayload decodes one endpoint response into the variant requested by
// kind. Invalid meeting items inside a listing page are returned separately
// so the caller can warn and continue; a malformed single-meeting payload is
// an error.
func parsePayload(data []byte, kind payloadKind) (recordingPage, []meetingInstance, []error, error) {
	var raw apiPayload
	if err := json.Unmarshal(data, &raw); err != nil {
		return recordingPage{}, nil, nil, &ValidationError{Message: "response is not valid JSON"}
	}

	switch kind {
	case kindInstances:
		instances := make([]meetingInstance, 0, len(raw.Meetings))
		for _, m := range raw.Meetings {
			if m.UUID == "" {
				continue
			}
			inst := meetingInstance{UUID: m.UUID}
			if m.StartTime != "" {
				if t, err := parseTime(m.StartTime); err == nil {
					inst.StartTime = t
				}
			}
			instances = append(instances, inst)
		}
		return recordingPage{}, instances, nil, nil

	case kindMeeting:
		rec, err := parseRecording(raw.apiMeeting)
		if err != nil {
			return recordingPage{}, nil, nil, err
		}
		return recordingPage{Recordings: []Recording{rec}}, nil, nil, nil

	default: // kindListing
		page := recordingPage{
			NextPageToken: strings.TrimSpace(raw.NextPageToken),
			TotalRecords:  raw.TotalRecords,
			Recordings:    make([]Recording, 0, len(raw.Meetings)),
		}
		var dropped []error
		for _, m := range raw.Meetings {
			rec, err := parseRecording(m)
			if err != nil {
				dropped = append(dropped, err)
				continue
			}
			page.Recordings = append(page.Recordings, rec)
		}
		return page, nil, dropped, nil
	}
}
