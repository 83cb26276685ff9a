package wordbank

import (
	"encoding/json"
	"fmt"
	"os"

	"pronounce/internal/models"
)

// catalogFile is the on-disk JSON layout of a catalog
type catalogFile struct {
	Assessments []models.AssessmentDefinition `json:"assessments"`
	Pools       []poolFile                    `json:"pools"`
}

type poolFile struct {
	Language string            `json:"language"`
	Level    models.Level      `json:"level"`
	Words    []models.WordItem `json:"words"`
}

// LoadCatalog reads a catalog from a JSON file. Validation happens in NewBank.
func LoadCatalog(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}

	var file catalogFile
	if err := json.Unmarshal(data, &file); err != nil {
		return Catalog{}, fmt.Errorf("failed to parse catalog %s: %w", path, err)
	}

	catalog := Catalog{
		Assessments: file.Assessments,
		Pools:       make(map[PoolKey][]models.WordItem, len(file.Pools)),
	}
	for _, p := range file.Pools {
		key := PoolKey{Language: p.Language, Level: p.Level}
		if _, dup := catalog.Pools[key]; dup {
			return Catalog{}, fmt.Errorf("%w: duplicate pool %s/%s", ErrInvalidCatalog, p.Language, p.Level)
		}
		catalog.Pools[key] = p.Words
	}

	return catalog, nil
}

// Open builds a Bank from path, or from the built-in catalog when path is empty
func Open(path string, opts ...Option) (*Bank, error) {
	catalog := Default()
	if path != "" {
		var err error
		catalog, err = LoadCatalog(path)
		if err != nil {
			return nil, err
		}
	}
	return NewBank(catalog, opts...)
}
