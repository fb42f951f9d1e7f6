package downloader

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/zoomscribe/zoomscribe/internal/zoom"
)

var (
	sanitizePattern = regexp.MustCompile(`[^A-Za-z0-9._@-]`)
	underscoreRuns  = regexp.MustCompile(`_{3,}`)
)

// timestampLayout names files by the recording start time. Colons are not
// usable on all filesystems, so the time portion uses dashes.
const timestampLayout = "2006-01-02T15-04-05"

// Sanitize makes a string safe to use as a single path component on local
// filesystems. Disallowed characters become underscores, runs of three or
// more underscores collapse to two, names consisting only of dots become a
// single underscore, and empty input becomes "unknown".
func Sanitize(value string) string {
	sanitized := sanitizePattern.ReplaceAllString(value, "_")
	if sanitized != "" && strings.Trim(sanitized, ".") == "" {
		sanitized = "_"
	}
	sanitized = underscoreRuns.ReplaceAllString(sanitized, "__")
	if sanitized == "" {
		return "unknown"
	}
	return sanitized
}

// BuildFilePath returns the destination path for a recording file beneath
// targetDir. The layout groups assets by host, date, and meeting:
//
//	{host}/{YYYY}/{MM}/{DD}/{topic}-{uuid}/{file_type}-{timestamp}.{ext}
//
// The path is a pure function of the recording metadata, so repeated runs
// resolve the same file to the same location.
func BuildFilePath(targetDir string, rec zoom.Recording, f zoom.RecordingFile) string {
	start := rec.StartTime
	hostDir := Sanitize(rec.HostEmail)
	topicDir := Sanitize(fmt.Sprintf("%s-%s", rec.Topic, rec.UUID))

	ext := strings.ToLower(strings.TrimPrefix(f.FileExtension, "."))
	if ext == "" {
		ext = strings.ToLower(Sanitize(f.FileType))
	}
	filename := fmt.Sprintf("%s-%s.%s", Sanitize(f.FileType), start.Format(timestampLayout), ext)

	return filepath.Join(
		targetDir,
		hostDir,
		fmt.Sprintf("%04d", start.Year()),
		fmt.Sprintf("%02d", int(start.Month())),
		fmt.Sprintf("%02d", start.Day()),
		topicDir,
		filename,
	)
}
