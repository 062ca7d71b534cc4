// Package config loads keyforge settings from a single file.
//
// The file is named explicitly, either with --config or through the
// KEYFORGE_CONFIG environment variable; there is no discovery. Files
// ending in .json or .jsonc are read as JSON with comments and trailing
// commas, anything else as YAML. Keys a file leaves out keep their
// Default() values.
//
//	listen: 127.0.0.1:7744
//	log_level: info
//	catalog: extended
//	max_length: 4096
//	max_rounds: 10000
//	defaults:
//	  algorithm: SHA-512
//	  rounds: 1
//	  length: 64
//	  augmentations: [trim]
//	store:
//	  backend: badger
//	  dir: /var/lib/keyforge/vectors
//	  mirrors:
//	    - backend: localfs
//	      dir: /mnt/backup/keyforge
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"xdao.co/keyforge/augment"
	"xdao.co/keyforge/derive"
	"xdao.co/keyforge/digest"
	"xdao.co/keyforge/storage/casregistry"
)

// EnvVar names the environment variable Load reads the config path from.
const EnvVar = "KEYFORGE_CONFIG"

// Digest catalog names.
const (
	CatalogDefault  = "default"
	CatalogExtended = "extended"
)

// Store backend names, as registered in storage/casregistry.
const (
	BackendLocalFS = "localfs"
	BackendBadger  = "badger"
	// BackendIPFS uses the local Kubo repository; dir sets IPFS_PATH and
	// may be empty.
	BackendIPFS = "ipfs"
)

type Config struct {
	// Listen is the daemon's gRPC listen address.
	Listen string `yaml:"listen" json:"listen"`

	// LogLevel is a logrus level name.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// Catalog selects the digest catalog: "default" (SHA family) or
	// "extended" (adds SHA3, BLAKE2b and BLAKE3).
	Catalog string `yaml:"catalog" json:"catalog"`

	// MaxLength bounds the output length the daemon will produce.
	MaxLength int `yaml:"max_length" json:"max_length"`

	// MaxRounds bounds the hash rounds the daemon will run per request.
	MaxRounds int `yaml:"max_rounds" json:"max_rounds"`

	Defaults DefaultsConfig `yaml:"defaults" json:"defaults"`
	Store    StoreConfig    `yaml:"store" json:"store"`
	Keys     KeysConfig     `yaml:"keys" json:"keys"`
}

// DefaultsConfig fills in whatever a derivation request leaves out.
type DefaultsConfig struct {
	Algorithm     string   `yaml:"algorithm" json:"algorithm"`
	Rounds        int      `yaml:"rounds" json:"rounds"`
	Length        int      `yaml:"length" json:"length"`
	Augmentations []string `yaml:"augmentations" json:"augmentations"`
}

type StoreConfig struct {
	Backend string `yaml:"backend" json:"backend"`
	Dir     string `yaml:"dir" json:"dir"`
	// Mirrors receive a copy of every stored vector and serve reads the
	// primary does not have.
	Mirrors []MirrorConfig `yaml:"mirrors,omitempty" json:"mirrors,omitempty"`
}

type MirrorConfig struct {
	Backend string `yaml:"backend" json:"backend"`
	Dir     string `yaml:"dir" json:"dir"`
}

type KeysConfig struct {
	// Dir holds named signer seeds for vector signing.
	Dir string `yaml:"dir" json:"dir"`
}

// Default returns the built-in configuration: SHA-512, one round, 64
// characters, input trimmed.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	root := filepath.Join(homeDir, ".keyforge")

	return &Config{
		Listen:    "127.0.0.1:7744",
		LogLevel:  "info",
		Catalog:   CatalogDefault,
		MaxLength: 4096,
		MaxRounds: 10000,
		Defaults: DefaultsConfig{
			Algorithm:     string(digest.SHA512),
			Rounds:        1,
			Length:        derive.DefaultLength,
			Augmentations: []string{augment.Trim},
		},
		Store: StoreConfig{
			Backend: BackendLocalFS,
			Dir:     filepath.Join(root, "vectors"),
		},
		Keys: KeysConfig{
			Dir: filepath.Join(root, "keys"),
		},
	}
}

// Load reads the file named by KEYFORGE_CONFIG, or returns Default() when
// the variable is unset.
func Load() (*Config, error) {
	path := os.Getenv(EnvVar)
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile reads path over Default() and validates the result.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		err = cfg.decodeJSON(data)
	default:
		err = cfg.decodeYAML(data)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) decodeYAML(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) decodeJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
	dec.DisallowUnknownFields()
	return dec.Decode(c)
}

// Validate checks every field that can be checked without touching the
// network or the filesystem.
func (c *Config) Validate() error {
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: log_level: %w", err)
	}
	switch c.Catalog {
	case CatalogDefault, CatalogExtended:
	default:
		return fmt.Errorf("config: catalog must be %q or %q, got %q", CatalogDefault, CatalogExtended, c.Catalog)
	}
	if c.MaxLength < 0 {
		return fmt.Errorf("config: max_length must be >= 0, got %d", c.MaxLength)
	}
	if c.MaxRounds < 0 {
		return fmt.Errorf("config: max_rounds must be >= 0, got %d", c.MaxRounds)
	}
	if _, err := c.Digests().Hasher(c.spec()); err != nil {
		return fmt.Errorf("config: defaults: %w", err)
	}
	if c.Defaults.Length < 1 {
		return fmt.Errorf("config: defaults.length must be >= 1, got %d", c.Defaults.Length)
	}
	if c.MaxLength > 0 && c.Defaults.Length > c.MaxLength {
		return fmt.Errorf("config: defaults.length %d exceeds max_length %d", c.Defaults.Length, c.MaxLength)
	}
	if c.MaxRounds > 0 && c.Defaults.Rounds > c.MaxRounds {
		return fmt.Errorf("config: defaults.rounds %d exceeds max_rounds %d", c.Defaults.Rounds, c.MaxRounds)
	}
	if _, err := augment.ParseSelection(augment.Default(), c.Defaults.Augmentations); err != nil {
		return fmt.Errorf("config: defaults.augmentations: %w", err)
	}
	if err := checkStore("store", c.Store.Backend, c.Store.Dir); err != nil {
		return err
	}
	for i, m := range c.Store.Mirrors {
		if err := checkStore(fmt.Sprintf("store.mirrors[%d]", i), m.Backend, m.Dir); err != nil {
			return err
		}
		if m.Backend == BackendBadger && m.Dir == "" {
			return fmt.Errorf("config: store.mirrors[%d].dir is required", i)
		}
	}
	return nil
}

func checkStore(field, backend, dir string) error {
	switch backend {
	case BackendLocalFS:
		if dir == "" {
			return fmt.Errorf("config: %s.dir is required for the localfs backend", field)
		}
	case BackendBadger, BackendIPFS:
	default:
		return fmt.Errorf("config: %s.backend must be %q, %q or %q, got %q", field, BackendLocalFS, BackendBadger, BackendIPFS, backend)
	}
	return nil
}

// StoreTargets lists the primary store followed by its mirrors.
func (c *Config) StoreTargets() []casregistry.Target {
	out := []casregistry.Target{{Backend: c.Store.Backend, Dir: c.Store.Dir}}
	for _, m := range c.Store.Mirrors {
		out = append(out, casregistry.Target{Backend: m.Backend, Dir: m.Dir})
	}
	return out
}

// Level returns the parsed log level.
func (c *Config) Level() logrus.Level {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

// Digests returns the digest catalog the config selects.
func (c *Config) Digests() digest.Catalog {
	if c.Catalog == CatalogExtended {
		return digest.Extended()
	}
	return digest.Default()
}

// Deriver builds a Deriver over the configured catalogs.
func (c *Config) Deriver(log *logrus.Logger) *derive.Deriver {
	return derive.New(derive.Config{
		Digests:       c.Digests(),
		Augmentations: augment.Default(),
		Logger:        log,
	})
}

// Request returns the configured default request with no input.
func (c *Config) Request() (derive.Request, error) {
	sel, err := augment.ParseSelection(augment.Default(), c.Defaults.Augmentations)
	if err != nil {
		return derive.Request{}, err
	}
	return derive.Request{Hash: c.spec(), Augment: sel, Length: c.Defaults.Length}, nil
}

func (c *Config) spec() digest.Spec {
	return digest.Spec{Algorithm: digest.ID(c.Defaults.Algorithm), Rounds: c.Defaults.Rounds}
}
