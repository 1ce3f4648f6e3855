package document

import (
	"os"
)

// StatExtractor captures metadata via os.Stat. Creation time and the full
// permission bit pattern come from a per-platform hook; platforms without
// either report 0.
type StatExtractor struct{}

// NewStatExtractor returns the default filesystem-backed Extractor.
func NewStatExtractor() StatExtractor {
	return StatExtractor{}
}

// Extract stats path and builds the unified Metadata snapshot.
func (StatExtractor) Extract(path string) (Metadata, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Metadata{}, err
	}
	created, perms := sysMeta(info)
	return Metadata{
		CreateTime:   created,
		ModifiedTime: info.ModTime().Unix(),
		Permissions:  perms,
		IsDir:        info.IsDir(),
	}, nil
}
