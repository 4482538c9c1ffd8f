package models

import (
	"fmt"
	"strings"
)

// SourceKind selects which video source a form submission uses.
type SourceKind string

const (
	SourceUpload  SourceKind = "upload"
	SourceYouTube SourceKind = "youtube"
)

func ParseSourceKind(s string) (SourceKind, error) {
	switch SourceKind(strings.ToLower(strings.TrimSpace(s))) {
	case SourceUpload:
		return SourceUpload, nil
	case SourceYouTube:
		return SourceYouTube, nil
	default:
		return "", fmt.Errorf("unknown source kind %q", s)
	}
}

// VideoFile is an opaque handle to an uploaded video. StorageKey is relative to the
// configured storage path and never leaves the server.
type VideoFile struct {
	Name       string `json:"name"`
	Size       int64  `json:"size"`
	MimeType   string `json:"mime_type"`
	StorageKey string `json:"-"`
}

// FormInput is the user's current video source selection. Only the field matching
// Source is meaningful; the other one is kept so switching tabs back does not lose it.
type FormInput struct {
	Source     SourceKind `json:"source"`
	File       *VideoFile `json:"file"`
	YouTubeURL string     `json:"youtube_url"`
}

// NewFormInput returns the initial form state: upload tab, nothing selected.
func NewFormInput() FormInput {
	return FormInput{Source: SourceUpload}
}

// Validate mirrors the browser's required-field check. Only the YouTube URL is
// required; an upload without a file is accepted.
func (in FormInput) Validate() error {
	switch in.Source {
	case SourceYouTube:
		if strings.TrimSpace(in.YouTubeURL) == "" {
			return &ValidationError{Field: "youtube_url", Message: "YouTube URL is required"}
		}
	case SourceUpload:
	default:
		return &ValidationError{Field: "source", Message: "Unknown video source"}
	}
	return nil
}

// Descriptor is a short human-readable label for the active source.
func (in FormInput) Descriptor() string {
	if in.Source == SourceYouTube {
		return in.YouTubeURL
	}
	if in.File == nil {
		return ""
	}
	return in.File.Name
}

// Clone returns a copy that does not share the file handle.
func (in FormInput) Clone() FormInput {
	out := in
	if in.File != nil {
		f := *in.File
		out.File = &f
	}
	return out
}

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
