// Package loader reads host and tenant configuration files. Supported
// formats are .env, .toml, .yaml, .yml and .json. A trailing .secret marks a
// file encrypted with the key file cipher; it is decrypted before parsing.
// Encrypted files without an inner extension are read as .env.
package loader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/subosito/gotenv"
	"gopkg.in/yaml.v3"
)

const SecretSuffix = ".secret"

const (
	FormatEnv  = "env"
	FormatTOML = "toml"
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// Decrypter opens encrypted config files. *security.KeyFileCipher
// implements it.
type Decrypter interface {
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
}

// LoadHostFile reads the host configuration at path.
func LoadHostFile(ctx context.Context, path string, dec Decrypter) (map[string]any, error) {
	return LoadFile(ctx, path, dec)
}

// LoadTenantFiles reads every file matching pattern, one tenant per file, in
// lexical path order. A pattern that matches nothing yields no tenants.
func LoadTenantFiles(ctx context.Context, pattern string, dec Decrypter) ([]map[string]any, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("loader: bad pattern %q: %w", pattern, err)
	}
	sort.Strings(matches)
	out := make([]map[string]any, 0, len(matches))
	for _, path := range matches {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cfg, err := LoadFile(ctx, path, dec)
		if err != nil {
			return nil, err
		}
		out = append(out, cfg)
	}
	return out, nil
}

// LoadFile reads and parses one config file.
func LoadFile(ctx context.Context, path string, dec Decrypter) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loader: read %s: %w", path, err)
	}
	format, secret := DetectFormat(path)
	if secret {
		if dec == nil {
			return nil, fmt.Errorf("loader: %s is encrypted and no key was given", path)
		}
		data, err = dec.Decrypt(ctx, data)
		if err != nil {
			return nil, fmt.Errorf("loader: decrypt %s: %w", path, err)
		}
	}
	cfg, err := Parse(format, data)
	if err != nil {
		return nil, fmt.Errorf("loader: parse %s: %w", path, err)
	}
	return cfg, nil
}

// DetectFormat returns the format of path and whether it is encrypted.
func DetectFormat(path string) (string, bool) {
	name := strings.ToLower(filepath.Base(path))
	secret := strings.HasSuffix(name, SecretSuffix)
	name = strings.TrimSuffix(name, SecretSuffix)

	switch filepath.Ext(name) {
	case ".toml":
		return FormatTOML, secret
	case ".yaml", ".yml":
		return FormatYAML, secret
	case ".json":
		return FormatJSON, secret
	default:
		return FormatEnv, secret
	}
}

// Parse decodes data in the given format. Keys of .env files are
// lower-cased so DB_URL and db_url name the same field.
func Parse(format string, data []byte) (map[string]any, error) {
	out := map[string]any{}
	switch format {
	case FormatEnv:
		env, err := gotenv.StrictParse(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		for key, value := range env {
			out[strings.ToLower(strings.TrimSpace(key))] = value
		}
	case FormatTOML:
		if _, err := toml.Decode(string(data), &out); err != nil {
			return nil, err
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &out); err != nil {
			return nil, err
		}
	case FormatJSON:
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
	return out, nil
}
