package model

import "time"

// Document is one catalog entry: file metadata plus a session-scoped handle to its bytes.
// It carries no persistence tags; the repository layer owns the stored representation.
type Document struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Type        string    `json:"type"`
	Size        int64     `json:"size"`
	Subject     string    `json:"subject"`
	Keywords    []string  `json:"keywords"`
	Description string    `json:"description,omitempty"`
	UploadDate  time.Time `json:"uploadDate"`
	URL         string    `json:"url"`
}

// TimeLayout is the persisted form of UploadDate. Always UTC with millisecond
// precision so that lexical order of the stored strings is chronological order.
const TimeLayout = "2006-01-02T15:04:05.000Z"

// FormatTime renders t in TimeLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime parses a stored or client supplied ISO-8601 timestamp.
func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
