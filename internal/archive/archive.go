// Package archive locates broker report files in the dated report
// archive. Reports land under <root>/<YYYYMMDD>/<broker>/ with names
// that vary per delivery, so selection is by substring filters.
package archive

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cashrec/internal/dates"
	"cashrec/internal/domain"
)

// ErrNotFound is returned when no file matches the filters. Callers
// treat it as data absence, not a failure.
var ErrNotFound = errors.New("report not found")

// ErrAmbiguous is returned when more than one file matches. Ambiguity
// must be surfaced, never resolved by picking silently.
var ErrAmbiguous = errors.New("ambiguous report selection")

// Dir returns the archive directory for a broker and date.
func Dir(root string, date dates.Date, broker domain.Broker) string {
	return filepath.Join(root, date.Format("20060102"), string(broker))
}

// Find returns the single file under the broker's dated directory whose
// name contains every include fragment and none of the excludes.
func Find(root string, date dates.Date, broker domain.Broker, includes, excludes []string) (string, error) {
	dir := Dir(root, date, broker)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: no archive directory %s", ErrNotFound, dir)
		}
		return "", fmt.Errorf("read archive directory %s: %w", dir, err)
	}

	var matches []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if matchesFilters(e.Name(), includes, excludes) {
			matches = append(matches, e.Name())
		}
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: no file matching %v in %s", ErrNotFound, includes, dir)
	case 1:
		return filepath.Join(dir, matches[0]), nil
	default:
		return "", fmt.Errorf("%w: %v all match %v in %s", ErrAmbiguous, matches, includes, dir)
	}
}

func matchesFilters(name string, includes, excludes []string) bool {
	for _, inc := range includes {
		if !strings.Contains(name, inc) {
			return false
		}
	}
	for _, exc := range excludes {
		if strings.Contains(name, exc) {
			return false
		}
	}
	return true
}
