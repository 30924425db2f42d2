package models

import (
	"regexp"
	"strings"

	errs "threadsdl/pkg/errors"
)

// DefaultUsername is used when the profile URL carries no @handle
const DefaultUsername = "threads_user"

var handlePattern = regexp.MustCompile(`@([a-zA-Z0-9_]+)`)

// ProfileTarget identifies the profile page being archived
type ProfileTarget struct {
	RawURL   string
	Username string
}

// ParseProfileTarget validates raw input and derives the username
func ParseProfileTarget(raw string) (ProfileTarget, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ProfileTarget{}, errs.New(errs.ErrorTypeInput, "profile URL is empty")
	}
	if !strings.HasPrefix(raw, "http") {
		return ProfileTarget{}, &errs.Error{
			Type:    errs.ErrorTypeInput,
			Message: "profile URL must start with http:// or https://",
			URL:     raw,
		}
	}

	username := DefaultUsername
	if m := handlePattern.FindStringSubmatch(raw); m != nil {
		username = m[1]
	}

	return ProfileTarget{RawURL: raw, Username: username}, nil
}

// ArchiveName returns the output archive filename for the target
func (p ProfileTarget) ArchiveName() string {
	return p.Username + ".zip"
}

// DownloadResult is a successfully fetched media file
type DownloadResult struct {
	SourceURL   string
	Filename    string
	ContentType string
	Data        []byte
	Ordinal     int
}

// Skipped records a candidate that was not archived
type Skipped struct {
	SourceURL string
	Reason    errs.ErrorType
	Err       error
}
