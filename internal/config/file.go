package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

// ReadFile decodes the JSON5 file at name and merges name.local.<ext> on top
// of it when present, so secrets can live in an untracked file next to the
// checked-in one. It returns os.ErrNotExist when neither file exists.
func ReadFile[T any](name string) (T, error) {
	var out T
	found := false

	base, err := os.ReadFile(name)
	if err != nil && !os.IsNotExist(err) {
		return out, err
	}
	if len(base) > 0 {
		if err := json5.Unmarshal(base, &out); err != nil {
			return out, fmt.Errorf("decode %s: %w", name, err)
		}
		found = true
	}

	local := localName(name)
	override, err := os.ReadFile(local)
	if err != nil && !os.IsNotExist(err) {
		return out, err
	}
	if len(override) > 0 {
		var over T
		if err := json5.Unmarshal(override, &over); err != nil {
			return out, fmt.Errorf("decode %s: %w", local, err)
		}
		if err := mergo.Merge(&out, over, mergo.WithOverride); err != nil {
			return out, err
		}
		found = true
	}

	if !found {
		return out, os.ErrNotExist
	}
	return out, nil
}

// localName maps config/saischeck.json5 to config/saischeck.local.json5.
func localName(name string) string {
	dir, file := filepath.Split(name)
	ext := filepath.Ext(file)
	stem := strings.TrimSuffix(file, ext)
	return filepath.Join(dir, stem+".local"+ext)
}
