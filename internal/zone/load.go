package zone

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	zonesDir      = "zones"
	exchangesDir  = "exchanges"
	defaultsFile  = "defaults.yaml"
	fileSeparator = "_"
	configFileExt = ".yaml"
)

// Load reads zones/<Key>.yaml, exchanges/<A>_<B>.yaml and defaults.yaml from dir.
// The filename stem is the key. Unknown YAML keys are rejected.
func Load(dir string) (*Config, error) {
	zoneFiles, err := yamlFiles(filepath.Join(dir, zonesDir))
	if err != nil {
		return nil, err
	}
	exchangeFiles, err := yamlFiles(filepath.Join(dir, exchangesDir))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	var errs []error
	zones := make([]Record, 0, len(zoneFiles))
	for _, path := range zoneFiles {
		var z Record
		if err := decodeFile(path, &z); err != nil {
			errs = append(errs, err)
			continue
		}
		z.Key = Key(stem(path))
		zones = append(zones, z)
	}

	exchanges := make([]ExchangeRecord, 0, len(exchangeFiles))
	for _, path := range exchangeFiles {
		key, err := exchangeKeyFromFile(stem(path))
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: %s: %v", ErrConfigLoad, path, err))
			continue
		}
		var ex ExchangeRecord
		if err := decodeFile(path, &ex); err != nil {
			errs = append(errs, err)
			continue
		}
		ex.Key = key
		exchanges = append(exchanges, ex)
	}

	var defaults Defaults
	defaultsPath := filepath.Join(dir, defaultsFile)
	if _, statErr := os.Stat(defaultsPath); statErr == nil {
		if err := decodeFile(defaultsPath, &defaults); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return New(zones, exchanges, defaults)
}

// exchangeKeyFromFile turns "AT_DE" into "AT->DE". The stem must already be sorted.
func exchangeKeyFromFile(s string) (ExchangeKey, error) {
	if strings.Count(s, fileSeparator) != 1 {
		return "", fmt.Errorf("exchange file name %q must be <A>%s<B>", s, fileSeparator)
	}
	a, b, _ := strings.Cut(s, fileSeparator)
	key := ExchangeKey(a + exchangeSeparator + b)
	if _, _, err := ParseExchangeKey(string(key)); err != nil {
		return "", err
	}
	return key, nil
}

func yamlFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrConfigLoad, dir, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != configFileExt {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	return out, nil
}

func decodeFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConfigLoad, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: decode %s: %w", ErrConfigLoad, path, err)
	}
	return nil
}

func stem(path string) string {
	return strings.TrimSuffix(filepath.Base(path), configFileExt)
}
