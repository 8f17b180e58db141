package launcher

import "strings"

const (
	// DefaultSectionHeader opens the block in which the simulator prints
	// its effective configuration.
	DefaultSectionHeader = "CONFIGURATION"

	// DefaultOutputKey names the configuration line carrying the output
	// directory, e.g. "output = output/1700000000".
	DefaultOutputKey = "output"
)

// OutputScanner detects the announced output location in a stream of
// console lines. It has two states: before and after the section header.
// Malformed or missing markers simply never produce a location.
type OutputScanner struct {
	section string
	key     string

	sectionSeen bool
	location    string
	found       bool
}

// NewOutputScanner creates a scanner for the given markers. Empty markers
// fall back to the defaults.
func NewOutputScanner(section, key string) *OutputScanner {
	if section == "" {
		section = DefaultSectionHeader
	}
	if key == "" {
		key = DefaultOutputKey
	}
	return &OutputScanner{section: section, key: key}
}

// Feed inspects one line. It returns the location and true only for the
// line on which the location is first discovered.
func (s *OutputScanner) Feed(line string) (string, bool) {
	if s.found {
		return "", false
	}
	line = strings.TrimSpace(line)
	if !s.sectionSeen {
		if strings.HasPrefix(line, s.section) {
			s.sectionSeen = true
		}
		return "", false
	}
	if !strings.HasPrefix(line, s.key) {
		return "", false
	}
	_, value, ok := strings.Cut(line, "=")
	if !ok {
		return "", false
	}
	s.location = strings.TrimSpace(value)
	s.found = true
	return s.location, true
}

// Location returns the discovered location, if any.
func (s *OutputScanner) Location() (string, bool) {
	return s.location, s.found
}
