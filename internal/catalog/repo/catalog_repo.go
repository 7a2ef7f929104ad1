package repo

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/ovaphlow/pitchfork/service-trophy-proxy/internal/catalog/entity"
)

// CatalogRepo reads the master catalog from a static JSON file: an array of
// MasterGameEntry objects. The file is produced offline and never written here.
type CatalogRepo struct {
	path string
}

// PathFromEnv returns CATALOG_PATH or the bundled default.
func PathFromEnv() string {
	if p := os.Getenv("CATALOG_PATH"); p != "" {
		return p
	}
	return "data/master_catalog.json"
}

func NewCatalogRepo(path string) *CatalogRepo {
	return &CatalogRepo{path: path}
}

// Load reads and validates the whole catalog.
func (r *CatalogRepo) Load() ([]entity.MasterGameEntry, error) {
	f, err := os.Open(r.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	entries, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", r.path, err)
	}
	return entries, nil
}

// Parse decodes a catalog and rejects entries without or with duplicate canonical ids.
func Parse(rd io.Reader) ([]entity.MasterGameEntry, error) {
	var entries []entity.MasterGameEntry
	if err := json.NewDecoder(rd).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	seen := make(map[string]bool, len(entries))
	for i, e := range entries {
		if e.CanonicalID == "" {
			return nil, fmt.Errorf("entry %d: missing canonicalId", i)
		}
		if seen[e.CanonicalID] {
			return nil, fmt.Errorf("entry %d: duplicate canonicalId %q", i, e.CanonicalID)
		}
		seen[e.CanonicalID] = true
	}
	return entries, nil
}
