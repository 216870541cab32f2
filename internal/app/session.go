package app

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"pingen/internal/storage"
)

const maxSlugLength = 40

var sanitizeRegex = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// session is the per-run scratch and naming scope.
type session struct {
	id      string
	prefix  string
	scratch *storage.Scratch
}

func newRunID(now time.Time, topic string) string {
	slug := sanitizeForPath(topic)
	if len(slug) > maxSlugLength {
		slug = strings.Trim(slug[:maxSlugLength], "_")
	}
	if slug == "" {
		slug = "untitled"
	}
	return fmt.Sprintf("%s_%s_%s", now.Format("20060102_150405"), slug, uuid.NewString()[:8])
}

func newSession(id, scratchBase, prefix string) (*session, error) {
	scratch, err := storage.NewScratch(scratchBase, id)
	if err != nil {
		return nil, err
	}
	return &session{id: id, prefix: prefix, scratch: scratch}, nil
}

func (s *session) imageName(index int) string {
	return fmt.Sprintf("pin_image_%d.png", index)
}

func (s *session) objectName(index int) string {
	return path.Join(s.prefix, s.id, s.imageName(index))
}

func sanitizeForPath(s string) string {
	s = strings.ToLower(s)
	s = sanitizeRegex.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}
