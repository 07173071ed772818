package patch

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"slices"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrNotFound is returned when an input file does not exist.
var ErrNotFound = errors.New("file not found")

// AlertNames is a set of alert names. Membership is an exact string match.
type AlertNames map[string]struct{}

// NewAlertNames creates an [AlertNames] set from the given names.
func NewAlertNames(names ...string) AlertNames {
	an := make(AlertNames, len(names))
	for _, n := range names {
		an[n] = struct{}{}
	}

	return an
}

// Has reports whether name is in the set.
func (an AlertNames) Has(name string) bool {
	_, ok := an[name]

	return ok
}

// Sorted returns the names in lexical order.
func (an AlertNames) Sorted() []string {
	names := make([]string, 0, len(an))
	for n := range an {
		names = append(names, n)
	}

	slices.Sort(names)

	return names
}

// ReadAlertNames reads one alert name per line. Surrounding whitespace is
// trimmed and blank lines are ignored.
// Input is UTF-8, or UTF-16 if it starts with a byte order mark.
func ReadAlertNames(r io.Reader) (AlertNames, error) {
	an := AlertNames{}

	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())

	sc := bufio.NewScanner(transform.NewReader(r, dec))
	for sc.Scan() {
		name := strings.TrimSpace(sc.Text())
		if name == "" {
			continue
		}

		an[name] = struct{}{}
	}

	err := sc.Err()
	if err != nil {
		return nil, fmt.Errorf("read alert names: %w", err)
	}

	return an, nil
}

// ReadAlertNamesFile reads alert names from the file at path.
// It returns an error wrapping [ErrNotFound] if the file does not exist.
func ReadAlertNamesFile(path string) (AlertNames, error) {
	f, err := os.Open(path) //nolint:gosec // G304: path is provided by the user.
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("alert names %q: %w", path, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("open alert names: %w", err)
	}
	defer f.Close() //nolint:errcheck // Read only.

	return ReadAlertNames(f)
}
