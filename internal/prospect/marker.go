package prospect

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var ErrNoCurrentStock = errors.New("no current stock selected")

// Marker is the file holding the ticker the day's flows work on.
type Marker struct {
	path string
}

func NewMarker(path string) *Marker {
	return &Marker{path: path}
}

func (m *Marker) Path() string { return m.path }

// Write replaces the marker contents with ticker.
func (m *Marker) Write(ticker string) error {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return errors.New("empty ticker")
	}
	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return err
	}
	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(ticker+"\n"), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, m.path)
}

// Read returns the ticker on the first line of the marker.
func (m *Marker) Read() (string, error) {
	data, err := os.ReadFile(m.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNoCurrentStock
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", m.path, err)
	}
	first, _, _ := strings.Cut(string(data), "\n")
	ticker := strings.TrimSpace(first)
	if ticker == "" {
		return "", ErrNoCurrentStock
	}
	return ticker, nil
}
