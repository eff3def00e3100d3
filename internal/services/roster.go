package services

import (
	"context"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
)

var namePattern = regexp.MustCompile(`^[а-яёА-ЯЁa-zA-Z\s-]+$`)

// NormalizeName trims the name, collapses internal whitespace and
// title-cases each word. Idempotent.
func NormalizeName(name string) string {
	words := strings.Fields(name)
	for i, w := range words {
		words[i] = titleWord(w)
	}
	return strings.Join(words, " ")
}

func titleWord(w string) string {
	first, size := utf8.DecodeRuneInString(w)
	if first == utf8.RuneError {
		return w
	}
	return string(unicode.ToUpper(first)) + strings.ToLower(w[size:])
}

// ValidName reports whether a name is fit for the roster: at least two
// words, Cyrillic or Latin letters, hyphens and spaces only.
func ValidName(name string) bool {
	normalized := NormalizeName(name)
	if normalized == "" {
		return false
	}
	if len(strings.Fields(normalized)) < 2 {
		return false
	}
	return namePattern.MatchString(normalized)
}

// upsertRoster registers a previously-unseen employee name. Best-effort:
// runs detached from the request, failures are logged only. The
// check-then-append is not guarded against concurrent writers, so two
// simultaneous first-time submissions can race; the roster tolerates the
// resulting duplicate row.
func (s *AttendanceService) upsertRoster(employeeName string) {
	ctx := context.Background()

	normalized := NormalizeName(employeeName)
	if !ValidName(normalized) {
		logrus.WithField("name", employeeName).Info("name failed roster validation, not registered")
		return
	}

	existing, err := s.roster.List(ctx)
	if err != nil {
		logrus.WithError(err).Warn("roster read failed, employee not registered")
		return
	}
	for _, name := range existing {
		if strings.EqualFold(NormalizeName(name), normalized) {
			return
		}
	}

	if err := s.roster.Append(ctx, normalized); err != nil {
		logrus.WithError(err).Warn("roster append failed")
		return
	}
	logrus.WithField("name", normalized).Info("new employee registered")
}
