package track

import (
	"path/filepath"
	"regexp"
	"strings"

	"TrackFM/config"
)

var namePattern = regexp.MustCompile(`^[a-z0-9]+$`)

// Rules are the acceptance limits for uploads.
type Rules struct {
	MaxNameLength  int
	MaxUploadSize  int64   // bytes
	MaxDuration    float64 // seconds
	Extensions     []string
	RequiredFormat string
}

// RulesFromConfig 从配置构建校验规则
func RulesFromConfig(cfg *config.Config) Rules {
	return Rules{
		MaxNameLength:  cfg.MaxTrackNameLength,
		MaxUploadSize:  cfg.MaxUploadSize,
		MaxDuration:    cfg.MaxTrackDuration,
		Extensions:     cfg.SupportedTrackExtensions,
		RequiredFormat: cfg.RequiredAudioFormat,
	}
}

// ValidateName checks a track name: lower-case letters and digits only.
func (r Rules) ValidateName(name string) error {
	if name == "" {
		return clientError(ReasonInvalidName, "track name is required")
	}
	if len(name) > r.MaxNameLength {
		return clientError(ReasonInvalidName, "track name must be at most %d characters", r.MaxNameLength)
	}
	if !namePattern.MatchString(name) {
		return clientError(ReasonInvalidName, "track name may only contain lower-case letters and digits")
	}
	return nil
}

// ValidateSize rejects uploads over the limit. Negative means unknown and
// is enforced later while spooling.
func (r Rules) ValidateSize(size int64) error {
	if size > r.MaxUploadSize {
		return r.tooLarge()
	}
	return nil
}

func (r Rules) tooLarge() *Error {
	return clientError(ReasonFileTooLarge, "file exceeds the maximum size of %d bytes", r.MaxUploadSize)
}

// ValidateExtension returns the lower-cased extension of filename when it
// is supported.
func (r Rules) ValidateExtension(filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, allowed := range r.Extensions {
		if ext != "" && ext == strings.ToLower(allowed) {
			return ext, nil
		}
	}
	return "", clientError(ReasonUnsupportedExtension, "unsupported file extension %q, accepted: %s",
		ext, strings.Join(r.Extensions, ", "))
}

// ValidateMetadata checks what the extractor found inside the file.
func (r Rules) ValidateMetadata(formatName string, duration float64) error {
	if formatName != r.RequiredFormat {
		return clientError(ReasonUnsupportedFormat, "audio format %q is not supported, expected %s",
			formatName, r.RequiredFormat)
	}
	if duration > r.MaxDuration {
		return clientError(ReasonDurationExceeded, "track is %.2f seconds long, the maximum is %g",
			duration, r.MaxDuration)
	}
	return nil
}
