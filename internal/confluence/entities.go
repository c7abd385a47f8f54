package confluence

// ArchiveIndex is the result of extracting and classifying an export
// archive. It is built once per import job and owned by the orchestrator
// until the extraction workspace is removed.
type ArchiveIndex struct {
	// WorkDir is the workspace directory the archive was extracted into.
	WorkDir string
	// HTMLPaths are absolute paths to every page file, sorted
	// lexicographically so title-collision fallbacks are deterministic.
	HTMLPaths []string
	// MetadataPath is the absolute path to the selected hierarchy metadata
	// file, or empty when the archive contains none.
	MetadataPath string
}

// HierarchyEntry is a single page record from the export metadata file.
// It is the authoritative source of page identity and title; anything
// derived from the HTML files is only used for matching.
type HierarchyEntry struct {
	OriginalID string
	Title      string
	ParentID   string
}

// ParsedPage is the result of parsing one exported HTML file. Err captures
// non-fatal parse problems; a page with a non-empty Err is still a valid
// structure but is excluded from matching and import.
type ParsedPage struct {
	Title          string
	ContentHTML    string
	AttachmentRefs []string
	EmbeddedID     string
	Err            string
}
