package voucher

import (
	"os"
	"path/filepath"

	"github.com/garyjia/voucher-sync/internal/domain/entity"
)

// logoFiles maps each registry category to its logo asset
var logoFiles = map[string]string{
	entity.CategoryContentstack:   "contentstack.png",
	entity.CategorySurfboard:      "surfboard.png",
	entity.CategoryRawEngineering: "raw-engineering.png",
}

// LogoSet resolves category logos inside a directory
type LogoSet struct {
	dir string
}

// NewLogoSet creates a LogoSet rooted at dir. An empty dir disables logos.
func NewLogoSet(dir string) LogoSet {
	return LogoSet{dir: dir}
}

// Path returns the logo file for category. known is false for categories
// without a logo; err is set when a known logo cannot be read.
func (l LogoSet) Path(category string) (path string, known bool, err error) {
	name, ok := logoFiles[category]
	if !ok || l.dir == "" {
		return "", false, nil
	}

	path = filepath.Join(l.dir, name)
	if _, err := os.Stat(path); err != nil {
		return "", true, err
	}
	return path, true, nil
}
