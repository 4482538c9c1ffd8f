package services

import (
	"path/filepath"
	"strings"

	"immerse-backend/internal/models"
)

var supportedVideoFormats = []models.VideoFormat{
	{Extension: ".mp4", MimeType: "video/mp4", Description: "MP4 Video"},
	{Extension: ".webm", MimeType: "video/webm", Description: "WebM Video"},
	{Extension: ".ogg", MimeType: "video/ogg", Description: "OGG Video"},
	{Extension: ".ogv", MimeType: "video/ogg", Description: "OGG Video"},
	{Extension: ".mov", MimeType: "video/quicktime", Description: "QuickTime Video"},
}

func SupportedVideoFormats() []models.VideoFormat {
	out := make([]models.VideoFormat, len(supportedVideoFormats))
	copy(out, supportedVideoFormats)
	return out
}

// IsAcceptedVideo mirrors the form's accept="video/*" filter: a video/* MIME type
// or, for generic types, a known video extension.
func IsAcceptedVideo(mimeType, filename string) bool {
	if strings.HasPrefix(strings.ToLower(mimeType), "video/") {
		return true
	}
	_, ok := mimeByExtension(filename)
	return ok
}

// VideoMimeType picks the MIME type to send to a model, preferring the declared
// one when it is a video type.
func VideoMimeType(declared, filename string) string {
	if strings.HasPrefix(strings.ToLower(declared), "video/") {
		return declared
	}
	if m, ok := mimeByExtension(filename); ok {
		return m
	}
	return "video/mp4"
}

func mimeByExtension(filename string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, f := range supportedVideoFormats {
		if f.Extension == ext {
			return f.MimeType, true
		}
	}
	return "", false
}
