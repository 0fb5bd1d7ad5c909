// Package catalog holds the read-only service catalog: which services exist,
// which file extensions each accepts, and how extensions map to content types.
// The catalog is fixed at compile time and safe for concurrent reads.
package catalog

import (
	"strings"

	"github.com/forgemedia/portal/internal/portal"
)

// Service is one catalog entry exposed to clients.
type Service struct {
	ID               portal.ServiceType `json:"id"`
	Name             string             `json:"name"`
	Description      string             `json:"description"`
	Turnaround       string             `json:"turnaround"`
	SupportedFormats []string           `json:"supported_formats"`
}

var services = map[portal.ServiceType]Service{
	portal.ServiceTranscriptCleanup: {
		ID:               portal.ServiceTranscriptCleanup,
		Name:             "Transcript Cleanup",
		Description:      "Professional cleaning and formatting of transcription files",
		Turnaround:       "24-48 hours",
		SupportedFormats: []string{".txt", ".doc", ".docx", ".srt", ".vtt"},
	},
	portal.ServiceCaptionsCleanup: {
		ID:               portal.ServiceCaptionsCleanup,
		Name:             "Captions & Subtitles Cleanup",
		Description:      "Clean and synchronize caption files for videos",
		Turnaround:       "24 hours",
		SupportedFormats: []string{".srt", ".vtt", ".ass", ".sub"},
	},
	portal.ServiceDubbingVoiceover: {
		ID:               portal.ServiceDubbingVoiceover,
		Name:             "Dubbing & Voiceover",
		Description:      "Professional voiceover services and audio dubbing",
		Turnaround:       "48-72 hours",
		SupportedFormats: []string{".mp4", ".mov", ".avi", ".mp3", ".wav"},
	},
}

// listOrder keeps Services deterministic for API responses.
var listOrder = []portal.ServiceType{
	portal.ServiceTranscriptCleanup,
	portal.ServiceCaptionsCleanup,
	portal.ServiceDubbingVoiceover,
}

// Services returns all catalog entries in a stable order.
func Services() []Service {
	out := make([]Service, 0, len(listOrder))
	for _, id := range listOrder {
		out = append(out, services[id])
	}
	return out
}

// Lookup returns the catalog entry for a service type.
func Lookup(id portal.ServiceType) (Service, bool) {
	svc, ok := services[id]
	return svc, ok
}

// Accepts reports whether the service supports the given extension. The
// extension is matched case-insensitively with or without a leading dot.
func (s Service) Accepts(ext string) bool {
	norm := NormalizeExtension(ext)
	if norm == "" {
		return false
	}
	for _, f := range s.SupportedFormats {
		if strings.TrimPrefix(f, ".") == norm {
			return true
		}
	}
	return false
}

// NormalizeExtension lowercases an extension or filename and strips everything
// up to and including the last dot. "Report.SRT" and ".srt" both yield "srt";
// a name with no dot yields "".
func NormalizeExtension(name string) string {
	idx := strings.LastIndex(name, ".")
	if idx < 0 {
		return ""
	}
	return strings.ToLower(name[idx+1:])
}

var contentTypes = map[string]string{
	"mp4":  "video/mp4",
	"mov":  "video/quicktime",
	"avi":  "video/x-msvideo",
	"mp3":  "audio/mpeg",
	"wav":  "audio/wav",
	"txt":  "text/plain",
	"doc":  "application/msword",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"srt":  "application/x-subrip",
	"vtt":  "text/vtt",
	"pdf":  "application/pdf",
}

// ContentType maps a normalized extension to a MIME type, defaulting to
// application/octet-stream.
func ContentType(ext string) string {
	if ct, ok := contentTypes[NormalizeExtension(ext)]; ok {
		return ct
	}
	return "application/octet-stream"
}
