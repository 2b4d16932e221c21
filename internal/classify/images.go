package classify

import (
	_ "embed"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed images.yaml
var defaultImagesYAML []byte

// ImagePool is a set of image references for one cuisine keyword.
type ImagePool struct {
	Key    string   `yaml:"key"`
	Images []string `yaml:"images"`
}

// ImageCatalog is the ordered cuisine-to-image table. Pools are probed in
// order and the first whose key is a substring of the cuisine wins.
type ImageCatalog struct {
	Pools   []ImagePool `yaml:"pools"`
	Default []string    `yaml:"default"`
}

// ParseImageCatalog decodes a catalog from YAML.
func ParseImageCatalog(data []byte) (*ImageCatalog, error) {
	var cat ImageCatalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, eris.Wrap(err, "classify: parse image catalog")
	}
	if len(cat.Default) == 0 {
		return nil, eris.New("classify: image catalog has no default pool")
	}
	for i, p := range cat.Pools {
		if p.Key == "" || len(p.Images) == 0 {
			return nil, eris.Errorf("classify: image pool %d is missing a key or images", i)
		}
	}
	return &cat, nil
}

// DefaultImageCatalog returns the embedded catalog.
func DefaultImageCatalog() *ImageCatalog {
	cat, err := ParseImageCatalog(defaultImagesYAML)
	if err != nil {
		panic(err)
	}
	return cat
}

// PoolFor returns the images for a raw cuisine or amenity value.
func (c *ImageCatalog) PoolFor(cuisine string) []string {
	lower := strings.ToLower(cuisine)
	if lower != "" {
		for _, p := range c.Pools {
			if strings.Contains(lower, p.Key) {
				return p.Images
			}
		}
	}
	return c.Default
}

// NewPicker returns a picker with an empty used set. Create one per
// discovery run.
func (c *ImageCatalog) NewPicker() *ImagePicker {
	return &ImagePicker{catalog: c, used: make(map[string]bool)}
}

// ImagePicker assigns images for one discovery run, avoiding visible
// duplicates where the pools allow it. Not safe for concurrent use.
type ImagePicker struct {
	catalog *ImageCatalog
	used    map[string]bool
}

// Assign picks an image for a venue. The starting index is derived from the
// stable id so a venue keeps its image across runs unless it collides.
func (p *ImagePicker) Assign(cuisine string, stableID int64) string {
	pool := p.catalog.PoolFor(cuisine)
	idx := stableID % int64(len(pool))
	if idx < 0 {
		idx += int64(len(pool))
	}
	selected := pool[idx]

	if p.used[selected] {
		if img, ok := p.firstUnused(pool); ok {
			selected = img
		}
	}
	if p.used[selected] {
		if img, ok := p.firstUnused(p.catalog.Default); ok {
			selected = img
		}
	}

	p.used[selected] = true
	return selected
}

// Reset forgets every image handed out so far.
func (p *ImagePicker) Reset() {
	clear(p.used)
}

// Used returns how many distinct images have been handed out.
func (p *ImagePicker) Used() int {
	return len(p.used)
}

func (p *ImagePicker) firstUnused(pool []string) (string, bool) {
	for _, img := range pool {
		if !p.used[img] {
			return img, true
		}
	}
	return "", false
}
