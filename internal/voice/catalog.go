package voice

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultVoiceID is used when no catalog is configured.
const DefaultVoiceID = "en-US-natalie"

//go:embed voices.yaml
var defaultCatalogYAML []byte

// VoiceInfo describes one selectable synthesis voice.
type VoiceInfo struct {
	ID     string `yaml:"id" json:"id"`
	Name   string `yaml:"name" json:"name"`
	Locale string `yaml:"locale" json:"locale"`
	Gender string `yaml:"gender,omitempty" json:"gender,omitempty"`
	Style  string `yaml:"style,omitempty" json:"style,omitempty"`
}

type catalogFile struct {
	Default string      `yaml:"default"`
	Voices  []VoiceInfo `yaml:"voices"`
}

// Catalog is the read-only set of voices offered to clients.
type Catalog struct {
	defaultID string
	voices    []VoiceInfo
	byID      map[string]VoiceInfo
}

// LoadCatalog reads the catalog at path, or the built-in one when path is empty.
// A non-empty defaultID overrides the file's default and must name a listed voice.
func LoadCatalog(path, defaultID string) (*Catalog, error) {
	raw := defaultCatalogYAML
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read voice catalog: %w", err)
		}
		raw = b
	}
	return ParseCatalog(raw, defaultID)
}

func ParseCatalog(raw []byte, defaultID string) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse voice catalog: %w", err)
	}
	if len(f.Voices) == 0 {
		return nil, errors.New("voice catalog lists no voices")
	}

	c := &Catalog{byID: make(map[string]VoiceInfo, len(f.Voices))}
	for i, v := range f.Voices {
		v.ID = strings.TrimSpace(v.ID)
		if v.ID == "" {
			return nil, fmt.Errorf("voice catalog entry %d has no id", i)
		}
		key := strings.ToLower(v.ID)
		if _, dup := c.byID[key]; dup {
			return nil, fmt.Errorf("voice catalog lists %q twice", v.ID)
		}
		if v.Name == "" {
			v.Name = v.ID
		}
		c.byID[key] = v
		c.voices = append(c.voices, v)
	}

	def := strings.TrimSpace(defaultID)
	if def == "" {
		def = strings.TrimSpace(f.Default)
	}
	if def == "" {
		def = c.voices[0].ID
	}
	v, ok := c.byID[strings.ToLower(def)]
	if !ok {
		return nil, fmt.Errorf("default voice %q is not in the catalog", def)
	}
	c.defaultID = v.ID
	return c, nil
}

func (c *Catalog) Default() string { return c.defaultID }

// Voices returns the catalog in file order.
func (c *Catalog) Voices() []VoiceInfo {
	out := make([]VoiceInfo, len(c.voices))
	copy(out, c.voices)
	return out
}

// Resolve maps a requested voice to a catalog ID. Blank or unknown requests
// get the default voice.
func (c *Catalog) Resolve(requested string) string {
	requested = strings.TrimSpace(requested)
	if requested == "" {
		return c.defaultID
	}
	if v, ok := c.byID[strings.ToLower(requested)]; ok {
		return v.ID
	}
	return c.defaultID
}
