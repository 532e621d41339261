package job

import (
	"strings"
	"unicode/utf8"

	"github.com/devsapp/serverless-automl-api/pkg/errdefs"
)

const (
	MaxTags      = 10
	MaxTagLength = 50
	MaxNotes     = 1000
)

// NormalizeTags trim, lowercase and dedupe keeping first occurrence order
func NormalizeTags(tags []string) ([]string, error) {
	if len(tags) > MaxTags {
		return nil, errdefs.Validationf("maximum %d tags allowed per job", MaxTags)
	}
	seen := make(map[string]struct{}, len(tags))
	normalized := make([]string, 0, len(tags))
	for _, tag := range tags {
		t := strings.ToLower(strings.TrimSpace(tag))
		if t == "" {
			return nil, errdefs.Validationf("tags cannot be empty or whitespace")
		}
		if utf8.RuneCountInString(t) > MaxTagLength {
			return nil, errdefs.Validationf("each tag must be %d characters or less", MaxTagLength)
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		normalized = append(normalized, t)
	}
	return normalized, nil
}

func ValidateNotes(notes string) error {
	if utf8.RuneCountInString(notes) > MaxNotes {
		return errdefs.Validationf("notes must be %d characters or less", MaxNotes)
	}
	return nil
}
