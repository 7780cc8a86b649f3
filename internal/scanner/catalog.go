package scanner

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/khanhnv2901/wisafe/internal/domain/network"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Audience selects which security guide is served.
type Audience string

const (
	AudienceUser   Audience = "user"
	AudienceExpert Audience = "expert"
)

// GuideEntry describes one security level for an audience.
type GuideEntry struct {
	Title           string   `yaml:"title" json:"title"`
	Protocols       []string `yaml:"protocols" json:"protocols"`
	Description     string   `yaml:"description" json:"description"`
	Recommendations []string `yaml:"recommendations" json:"recommendations"`
	AttackVectors   []string `yaml:"attack_vectors,omitempty" json:"attack_vectors,omitempty"`
}

// Guide maps a security level to its guidance.
type Guide map[network.SecurityLevel]GuideEntry

// Catalog is the fixed demo dataset plus the security guides.
type Catalog struct {
	Networks []network.Record   `yaml:"networks"`
	Guides   map[Audience]Guide `yaml:"guides"`
}

// DefaultCatalog parses the embedded catalog.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(defaultCatalog)
}

// LoadCatalog reads a catalog file, or the embedded one when path is empty.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes catalog YAML and normalizes every record.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	for i := range c.Networks {
		c.Networks[i].IsRealScan = false
		c.Networks[i].Normalize()
	}
	return &c, nil
}

// Records returns a copy of the catalog networks.
func (c *Catalog) Records() []network.Record {
	out := make([]network.Record, len(c.Networks))
	for i, r := range c.Networks {
		r.Vulnerabilities = append([]string{}, r.Vulnerabilities...)
		out[i] = r
	}
	return out
}

// Guide returns the guide for audience, falling back to the user guide.
func (c *Catalog) Guide(audience Audience) Guide {
	if g, ok := c.Guides[audience]; ok {
		return g
	}
	return c.Guides[AudienceUser]
}

// KrackVulnerable reports whether the catalog flags the access point as
// exposed to key reinstallation.
func (c *Catalog) KrackVulnerable(key network.Key) bool {
	for _, r := range c.Networks {
		if r.Key() == key {
			return r.KrackVulnerable
		}
	}
	return false
}
