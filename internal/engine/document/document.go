// Package document defines the registry's data model: one Entry per indexed
// document plus a metadata snapshot captured at registration time, and the
// Extractor boundary through which that snapshot is taken.
package document

// Entry describes one registered document. Entries are created by the engine
// registry, which owns them exclusively; they are immutable after creation
// apart from deletion.
type Entry struct {
	ID         uint64   `json:"id"`
	Path       string   `json:"path"`
	Meta       Metadata `json:"metadata"`
	TokenCount int      `json:"token_count"`
}

// Metadata is a filesystem snapshot taken once when a document is added and
// never refreshed, so it goes stale if the underlying file changes later.
// The shape is identical on every platform: fields a platform cannot supply
// default to 0 (times, permissions) or false (IsDir).
type Metadata struct {
	CreateTime   int64  `json:"create_time"`
	ModifiedTime int64  `json:"modified_time"`
	Permissions  uint32 `json:"permissions"`
	IsDir        bool   `json:"is_dir"`
}

// Extractor retrieves a metadata snapshot for a path. The concrete strategy
// is selected here rather than by conditional compilation inside Metadata;
// StatExtractor is the production implementation, tests substitute their own.
type Extractor interface {
	Extract(path string) (Metadata, error)
}
