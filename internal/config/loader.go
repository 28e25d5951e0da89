package config

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LoadFromPath reads and validates a config file. A missing or empty file
// yields the defaults.
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("%w: read %s: %v", ErrIO, path, err)
	}
	return parse(data)
}

func parse(data []byte) (*Config, error) {
	cfg, err := decode(data)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseRepaired is parse without failing on saved windows: bad entries are
// repaired or dropped and reported in repairs. Global settings are still
// validated strictly.
func parseRepaired(data []byte) (cfg *Config, repairs []error, err error) {
	cfg, err = decode(data)
	if err != nil {
		return nil, nil, err
	}
	repairs = cfg.repairWindows()
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, repairs, nil
}

func decode(data []byte) (*Config, error) {
	cfg := &Config{}
	if len(bytes.TrimSpace(data)) > 0 {
		if err := decodeStrictYAML(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
		}
	}
	cfg.applyDefaults()
	return cfg, nil
}

func decodeStrictYAML(data []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		if err == io.EOF {
			return nil
		}
		return err
	}
	return nil
}

func encode(cfg *Config) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return buf.Bytes(), nil
}

// writeAtomic replaces path with data via a temp file in the same directory.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %v", ErrIO, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("%w: write %s: %v", ErrIO, tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("%w: sync %s: %v", ErrIO, tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("%w: close %s: %v", ErrIO, tmpName, err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		cleanup()
		return fmt.Errorf("%w: chmod %s: %v", ErrIO, tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("%w: rename to %s: %v", ErrIO, path, err)
	}
	return nil
}

func contentHash(data []byte) [sha256.Size]byte {
	return sha256.Sum256(data)
}
