package shopify

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/nborup/skribent/internal/textdoc"
)

// imageCache persists fetched product images per profile so the image
// browser works without hammering the Admin API. Layout mirrors one JSON
// file per scope under <dir>/<profile-slug>/.
type imageCache struct {
	dir string
}

func (c *imageCache) path(profileName, productID string) string {
	base := filepath.Join(c.dir, textdoc.Slug(profileName))
	if productID != "" {
		return filepath.Join(base, productID, "images_info.json")
	}
	return filepath.Join(base, "all_images_info.json")
}

func (c *imageCache) load(profileName, productID string) ([]ProductImage, bool) {
	data, err := os.ReadFile(c.path(profileName, productID))
	if err != nil {
		return nil, false
	}
	var images []ProductImage
	if err := json.Unmarshal(data, &images); err != nil {
		return nil, false
	}
	if len(images) == 0 {
		return nil, false
	}
	return images, true
}

func (c *imageCache) save(profileName, productID string, images []ProductImage) error {
	path := c.path(profileName, productID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	data, err := json.MarshalIndent(images, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cache: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write cache: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write cache: %w", err)
	}
	return nil
}

func (c *imageCache) invalidate(profileName string) error {
	err := os.RemoveAll(filepath.Join(c.dir, textdoc.Slug(profileName)))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("drop image cache: %w", err)
	}
	return nil
}
