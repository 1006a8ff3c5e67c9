package photo

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type catalogFile struct {
	Photos []Photo `yaml:"photos"`
}

// LoadCatalog reads the photo seed file. Every entry must validate and ids
// must be unique.
func LoadCatalog(path string) ([]Photo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read photo catalog %s: %w", path, err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes a catalog document.
func ParseCatalog(data []byte) ([]Photo, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("cannot parse photo catalog: %w", err)
	}

	seen := make(map[int]bool, len(file.Photos))
	for i := range file.Photos {
		p := &file.Photos[i]
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("catalog entry %d: %w", i, err)
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("catalog entry %d: duplicate photo id %d", i, p.ID)
		}
		seen[p.ID] = true
	}
	return file.Photos, nil
}
