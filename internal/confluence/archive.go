package confluence

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var (
	// ErrArchiveNotFound indicates the archive file does not exist.
	ErrArchiveNotFound = errors.New("archive file not found")
	// ErrCorruptArchive indicates the file exists but is not a readable
	// zip container.
	ErrCorruptArchive = errors.New("invalid or corrupted archive")
)

// metadataFilenames are the recognized hierarchy metadata file basenames,
// in selection priority order. The first one present in the archive wins.
var metadataFilenames = []string{
	"entities.xml",
	"space.xml",
	"metadata.json",
	"space.json",
	"exportinfo.xml",
}

// ExtractArchive extracts the export zip at archivePath into workDir and
// classifies the extracted members into HTML page files and a single
// hierarchy metadata file.
//
// workDir is cleared first if it already exists, so a job id must be baked
// into the path to keep concurrent jobs apart. On any failure the workspace
// is removed and no partial state is left behind; on success the caller owns
// workDir and must remove it with RemoveWorkspace when done.
func ExtractArchive(archivePath, workDir string) (*ArchiveIndex, error) {
	if _, err := os.Stat(archivePath); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrArchiveNotFound, archivePath)
		}
		return nil, fmt.Errorf("stat archive %s: %w", archivePath, err)
	}

	if err := os.RemoveAll(workDir); err != nil {
		return nil, fmt.Errorf("failed to clear workspace %s: %w", workDir, err)
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create workspace %s: %w", workDir, err)
	}

	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		os.RemoveAll(workDir)
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptArchive, archivePath, err)
	}
	defer reader.Close()

	for _, file := range reader.File {
		if err := extractZipMember(file, workDir); err != nil {
			os.RemoveAll(workDir)
			return nil, fmt.Errorf("failed to extract %s: %w", file.Name, err)
		}
	}

	index, err := classifyWorkspace(workDir)
	if err != nil {
		os.RemoveAll(workDir)
		return nil, err
	}
	return index, nil
}

// RemoveWorkspace deletes an extraction workspace. Failures are logged but
// not returned: cleanup runs on every job exit path and must never mask the
// job outcome.
func RemoveWorkspace(workDir string) {
	if workDir == "" {
		return
	}
	if err := os.RemoveAll(workDir); err != nil {
		log.Printf("[Importer] Failed to clean up workspace %s: %v", workDir, err)
	}
}

func extractZipMember(file *zip.File, workDir string) error {
	destPath := filepath.Join(workDir, filepath.Clean(file.Name))
	// Reject members that escape the workspace (zip slip).
	if !strings.HasPrefix(destPath, filepath.Clean(workDir)+string(os.PathSeparator)) {
		return fmt.Errorf("member path %q escapes the workspace", file.Name)
	}

	if file.FileInfo().IsDir() {
		return os.MkdirAll(destPath, 0o755)
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return err
	}

	rc, err := file.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, rc)
	return err
}

func classifyWorkspace(workDir string) (*ArchiveIndex, error) {
	index := &ArchiveIndex{WorkDir: workDir}
	foundMetadata := make(map[string]string)

	err := filepath.WalkDir(workDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := strings.ToLower(d.Name())
		switch {
		case strings.HasSuffix(name, ".html") || strings.HasSuffix(name, ".htm"):
			index.HTMLPaths = append(index.HTMLPaths, path)
		case isMetadataName(name):
			if existing, ok := foundMetadata[name]; ok {
				log.Printf("[Importer] Ignoring duplicate metadata candidate %s (already have %s)", path, existing)
				return nil
			}
			foundMetadata[name] = path
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan workspace %s: %w", workDir, err)
	}

	sort.Strings(index.HTMLPaths)

	for _, candidate := range metadataFilenames {
		if path, ok := foundMetadata[candidate]; ok {
			if index.MetadataPath == "" {
				index.MetadataPath = path
			} else {
				log.Printf("[Importer] Ignoring lower-priority metadata candidate %s", path)
			}
		}
	}

	return index, nil
}

func isMetadataName(name string) bool {
	for _, candidate := range metadataFilenames {
		if name == candidate {
			return true
		}
	}
	return false
}
