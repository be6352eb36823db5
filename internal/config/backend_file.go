package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
)

// fileBackend keeps non-secret keys in a flat JSON object. Numbers are held
// as json.Number both after loading and after SetInt, so a value reads back
// the same way whether it came from disk or from this process.
type fileBackend struct {
	path   string
	values map[string]any
}

func newPlatformBackend() ConfigBackend {
	return newFileBackend(configFilePath())
}

func newFileBackend(path string) *fileBackend {
	b := &fileBackend{path: path, values: map[string]any{}}
	if err := b.read(); err != nil {
		slog.Warn("ignoring config file, using defaults", "path", path, "error", err)
	}
	return b
}

// configFilePath is $XDG_CONFIG_HOME/expertfinder/config.json, falling back
// to ~/.config.
func configFilePath() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join("expertfinder", "config.json")
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "expertfinder", "config.json")
}

func (b *fileBackend) read() error {
	raw, err := os.ReadFile(b.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	values := map[string]any{}
	if err := dec.Decode(&values); err != nil {
		return fmt.Errorf("parsing %s: %w", b.path, err)
	}
	b.values = values
	return nil
}

func (b *fileBackend) write() error {
	if err := os.MkdirAll(filepath.Dir(b.path), 0o700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	raw, err := json.MarshalIndent(b.values, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return os.WriteFile(b.path, raw, 0o600)
}

func (b *fileBackend) GetString(key string) (string, bool, error) {
	v, ok := b.values[key]
	if !ok {
		return "", false, nil
	}
	if s, isString := v.(string); isString {
		return s, true, nil
	}
	return fmt.Sprint(v), true, nil
}

// GetInt accepts JSON integers and numeric strings.
func (b *fileBackend) GetInt(key string) (int, bool, error) {
	v, ok := b.values[key]
	if !ok {
		return 0, false, nil
	}

	var text string
	switch val := v.(type) {
	case json.Number:
		text = val.String()
	case string:
		text = val
	case int:
		return val, true, nil
	default:
		return 0, true, fmt.Errorf("%s: want an integer, got %T", key, v)
	}

	i, err := strconv.Atoi(text)
	if err != nil {
		return 0, true, fmt.Errorf("%s: invalid integer %q", key, text)
	}
	return i, true, nil
}

func (b *fileBackend) SetString(key, val string) error {
	b.values[key] = val
	return b.write()
}

func (b *fileBackend) SetInt(key string, val int) error {
	b.values[key] = json.Number(strconv.Itoa(val))
	return b.write()
}

func (b *fileBackend) Delete(key string) error {
	delete(b.values, key)
	return b.write()
}
