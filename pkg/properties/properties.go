// Package properties reads and writes the line-oriented key=value
// configuration format consumed by the simulator.
package properties

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Properties is an insertion-ordered string map.
// The zero value is ready to use.
type Properties struct {
	keys   []string
	values map[string]string
}

// New returns an empty Properties.
func New() *Properties {
	return &Properties{values: make(map[string]string)}
}

// Set assigns value to key. A new key is appended; an existing key keeps
// its position.
func (p *Properties) Set(key, value string) {
	if p.values == nil {
		p.values = make(map[string]string)
	}
	if _, ok := p.values[key]; !ok {
		p.keys = append(p.keys, key)
	}
	p.values[key] = value
}

// Get returns the value stored under key.
func (p *Properties) Get(key string) (string, bool) {
	if p == nil || p.values == nil {
		return "", false
	}
	v, ok := p.values[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (p *Properties) Keys() []string {
	if p == nil {
		return nil
	}
	out := make([]string, len(p.keys))
	copy(out, p.keys)
	return out
}

// Len returns the number of keys.
func (p *Properties) Len() int {
	if p == nil {
		return 0
	}
	return len(p.keys)
}

// Clone returns an independent copy.
func (p *Properties) Clone() *Properties {
	c := New()
	if p == nil {
		return c
	}
	for _, k := range p.keys {
		c.Set(k, p.values[k])
	}
	return c
}

// Map returns the contents as a plain map.
func (p *Properties) Map() map[string]string {
	out := make(map[string]string, p.Len())
	if p == nil {
		return out
	}
	for k, v := range p.values {
		out[k] = v
	}
	return out
}

// Parse decodes text into Properties.
func Parse(text string) *Properties {
	p := New()
	for _, line := range strings.Split(text, "\n") {
		if key, value, ok := parseLine(line); ok {
			p.Set(key, value)
		}
	}
	return p
}

// Read decodes Properties from r line by line.
func Read(r io.Reader) (*Properties, error) {
	p := New()
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if key, value, ok := parseLine(line); ok {
			p.Set(key, value)
		}
		if err == io.EOF {
			return p, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

// Serialize encodes p, one "key = value" line per entry.
func Serialize(p *Properties) string {
	var b strings.Builder
	for _, k := range p.Keys() {
		v, _ := p.Get(k)
		b.WriteString(formatLine(k, v))
	}
	return b.String()
}

// LoadFile reads a properties file from disk.
func LoadFile(path string) (*Properties, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open properties %s: %w", path, err)
	}
	defer f.Close()
	p, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("read properties %s: %w", path, err)
	}
	return p, nil
}

// SaveFile writes p to path and syncs it to disk before returning.
func SaveFile(path string, p *Properties) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create properties %s: %w", path, err)
	}
	if _, err := io.WriteString(f, Serialize(p)); err != nil {
		f.Close()
		return fmt.Errorf("write properties %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync properties %s: %w", path, err)
	}
	return f.Close()
}

func parseLine(line string) (string, string, bool) {
	line = strings.TrimSpace(line)
	if strings.HasPrefix(line, "#") {
		return "", "", false
	}
	key, value, found := strings.Cut(line, "=")
	if !found {
		return "", "", false
	}
	return strings.TrimSpace(key), unquote(strings.TrimSpace(value)), true
}

// unquote strips one matching pair of single or double quotes.
func unquote(v string) string {
	if len(v) < 2 {
		return v
	}
	first, last := v[0], v[len(v)-1]
	if first == last && (first == '"' || first == '\'') {
		return v[1 : len(v)-1]
	}
	return v
}

func formatLine(key, value string) string {
	key = strings.TrimSpace(key)
	if value != strings.TrimSpace(value) {
		value = `"` + value + `"`
	}
	return key + " = " + value + "\n"
}
