package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"wikiport/internal/confluence"
	"wikiport/internal/entities"
	"wikiport/internal/prosemirror"
	"wikiport/internal/storage"
	"wikiport/internal/utils"
)

// ConfluenceImporter orchestrates one archive import end to end: archive
// extraction and indexing, hierarchy parsing, per-page conversion, page and
// attachment creation, symbolic reference resolution, and hierarchy
// linking.
//
// All state is job-scoped and carried through the call chain; two importers
// (or two concurrent Run calls) never share anything but the target
// datastore, where the unique (original_id, space_id) index keeps
// concurrent duplicate creation from corrupting anything.
type ConfluenceImporter struct {
	targets     TargetResolver
	pages       PageStore
	attachments AttachmentStore
	jobs        JobRecorder
	files       storage.Store

	// workRoot is the base directory extraction workspaces are created
	// under, one uniquely named subdirectory per run.
	workRoot string
}

// NewConfluenceImporter creates an import orchestrator.
func NewConfluenceImporter(
	targets TargetResolver,
	pages PageStore,
	attachments AttachmentStore,
	jobs JobRecorder,
	files storage.Store,
	workRoot string,
) *ConfluenceImporter {
	return &ConfluenceImporter{
		targets:     targets,
		pages:       pages,
		attachments: attachments,
		jobs:        jobs,
		files:       files,
		workRoot:    workRoot,
	}
}

// fatalError aborts the whole job before (or instead of) page processing.
type fatalError struct {
	message string
}

func (e *fatalError) Error() string { return e.message }

// runState is the job-scoped mutable state of one import run.
type runState struct {
	job     *entities.ImportJob
	space   *entities.Space
	entries []confluence.HierarchyEntry

	// byID and byTitle map embedded page ids and titles to HTML paths,
	// built in the indexing pass.
	byID    map[string]string
	byTitle map[string]string

	// created maps source-system page ids to new page ids, populated in
	// pass 1 and consumed by the hierarchy-linking pass.
	created map[string]uint

	pagesSucceeded       int
	pagesFailed          int
	attachmentsSucceeded int
}

// Run executes the import job. runID is an opaque execution handle recorded
// on the job for traceability and baked into the workspace directory name.
//
// The job record always ends in a terminal status: fatal errors and panics
// set Failed with error details; per-entry problems are counted and the job
// still completes. The extraction workspace is removed on every exit path.
func (s *ConfluenceImporter) Run(ctx context.Context, job *entities.ImportJob, runID string) (summary ImportSummary, err error) {
	if err := s.jobs.Transition(job.ID, entities.JobStatusProcessing); err != nil {
		return ImportSummary{}, fmt.Errorf("failed to mark job %d processing: %w", job.ID, err)
	}
	if err := s.jobs.SetTaskID(job.ID, runID); err != nil {
		log.Printf("[Importer] Job %d: could not record run id %s: %v", job.ID, runID, err)
	}

	workDir := filepath.Join(s.workRoot, fmt.Sprintf("confluence-import-%d-%s", job.ID, runID))
	defer confluence.RemoveWorkspace(workDir)

	state := &runState{
		job:     job,
		byID:    make(map[string]string),
		byTitle: make(map[string]string),
		created: make(map[string]uint),
	}

	defer func() {
		if r := recover(); r != nil {
			details := fmt.Sprintf("unexpected error during import: %v", r)
			log.Printf("[Importer] Job %d: CRITICAL: %s", job.ID, details)
			s.failJob(state, details)
			summary = ImportSummary{Message: details}
			err = fmt.Errorf("import job %d: %s", job.ID, details)
		}
	}()

	if err := s.runPasses(ctx, state, workDir); err != nil {
		var message string
		if fatal, ok := err.(*fatalError); ok {
			message = fatal.message
		} else {
			message = err.Error()
		}
		s.failJob(state, message)
		return ImportSummary{
			PagesSucceeded:       state.pagesSucceeded,
			PagesFailed:          state.pagesFailed,
			AttachmentsSucceeded: state.attachmentsSucceeded,
			Message:              message,
		}, err
	}

	return s.finishJob(state), nil
}

func (s *ConfluenceImporter) runPasses(ctx context.Context, state *runState, workDir string) error {
	job := state.job

	// Step 1: resolve the target location before touching the archive.
	space, err := s.targets.Resolve(job.TargetWorkspaceID, job.TargetSpaceID)
	if err != nil {
		return fmt.Errorf("failed to resolve target space: %w", err)
	}
	if space == nil {
		return &fatalError{"no target space could be resolved for this import"}
	}
	state.space = space

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("import canceled before extraction: %w", err)
	}

	// Step 2: extract and classify the archive.
	s.progress(state, entities.ProgressExtracting, 5, "Extracting archive")
	index, err := confluence.ExtractArchive(job.ArchivePath, workDir)
	if err != nil {
		return err
	}
	if index.MetadataPath == "" {
		return &fatalError{"archive contains no recognized hierarchy metadata file"}
	}
	if len(index.HTMLPaths) == 0 {
		return &fatalError{"archive contains no HTML page files"}
	}

	// Step 3: parse the hierarchy metadata.
	s.progress(state, entities.ProgressParsingMetadata, 10, "Parsing hierarchy metadata")
	state.entries = confluence.ParseHierarchy(index.MetadataPath)

	// Step 4: index the HTML files by embedded id and by title.
	s.buildIndexes(state, index.HTMLPaths)

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("import canceled before page creation: %w", err)
	}

	// Steps 5-9: create pages, attachments, and resolve media references.
	if err := s.createPages(ctx, state, workDir); err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("import canceled before hierarchy linking: %w", err)
	}

	// Step 10: second pass, link the hierarchy.
	s.progress(state, entities.ProgressLinkingHierarchy, 90, "Linking page hierarchy")
	s.linkHierarchy(state)

	return nil
}

// buildIndexes parses every HTML file once, only for identification, and
// records embedded-id and title lookups. Files that parse with an error are
// excluded from both indexes. On duplicates the first mapping (in sorted
// path order) wins.
func (s *ConfluenceImporter) buildIndexes(state *runState, htmlPaths []string) {
	for _, path := range htmlPaths {
		parsed, err := confluence.ParsePageFile(path)
		if err != nil {
			log.Printf("[Importer] Job %d: cannot read %s for indexing: %v", state.job.ID, path, err)
			continue
		}
		if parsed.Err != "" {
			log.Printf("[Importer] Job %d: excluding %s from matching: %s", state.job.ID, path, parsed.Err)
			continue
		}

		if parsed.EmbeddedID != "" {
			if existing, ok := state.byID[parsed.EmbeddedID]; ok {
				log.Printf("[Importer] Job %d: duplicate embedded id %s in %s, keeping %s",
					state.job.ID, parsed.EmbeddedID, path, existing)
			} else {
				state.byID[parsed.EmbeddedID] = path
			}
		}
		if parsed.Title != "" {
			if existing, ok := state.byTitle[parsed.Title]; ok && existing != path {
				log.Printf("[Importer] Job %d: duplicate title %q in %s, keeping %s",
					state.job.ID, parsed.Title, path, existing)
			} else if !ok {
				state.byTitle[parsed.Title] = path
			}
		}
	}
}

// createPages is pass 1: one sequential scan over the metadata entries in
// document order. Every per-entry problem is counted as a failed page and
// the scan continues; partial success is the expected common case.
func (s *ConfluenceImporter) createPages(ctx context.Context, state *runState, workDir string) error {
	total := len(state.entries)
	for i, entry := range state.entries {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("import canceled at entry %d of %d: %w", i+1, total, err)
		}

		percent := 10
		if total > 0 {
			percent = 10 + (75*(i+1))/total
		}
		s.progress(state, entities.ProgressCreatingPages, percent,
			fmt.Sprintf("Importing page %d of %d", i+1, total))

		s.importEntry(ctx, state, entry, workDir)
	}
	return nil
}

func (s *ConfluenceImporter) importEntry(ctx context.Context, state *runState, entry confluence.HierarchyEntry, workDir string) {
	job := state.job

	if entry.OriginalID == "" {
		state.pagesFailed++
		return
	}

	// Match the entry to an HTML file: embedded id first, then title as a
	// lower-confidence fallback.
	path, ok := state.byID[entry.OriginalID]
	if !ok && entry.Title != "" {
		if path, ok = state.byTitle[entry.Title]; ok {
			log.Printf("[Importer] Job %d: page %s matched by title %q (no embedded id match)",
				job.ID, entry.OriginalID, entry.Title)
		}
	}
	if !ok {
		log.Printf("[Importer] Job %d: no HTML file matches page %s (%q)", job.ID, entry.OriginalID, entry.Title)
		state.pagesFailed++
		return
	}

	// Re-parse for content and attachments; the indexing parse was only
	// for identification.
	parsed, err := confluence.ParsePageFile(path)
	if err != nil || parsed.Err != "" || parsed.ContentHTML == "" {
		reason := "no main content"
		if err != nil {
			reason = err.Error()
		} else if parsed.Err != "" {
			reason = parsed.Err
		}
		log.Printf("[Importer] Job %d: page %s failed to parse: %s", job.ID, entry.OriginalID, reason)
		state.pagesFailed++
		return
	}

	// Idempotency: a page already imported into this target is a per-page
	// failure, not a duplicate.
	exists, err := s.pages.Exists(entry.OriginalID, state.space.ID)
	if err != nil {
		log.Printf("[Importer] Job %d: existence check for page %s failed: %v", job.ID, entry.OriginalID, err)
		state.pagesFailed++
		return
	}
	if exists {
		log.Printf("[Importer] Job %d: page %s already exists in space %d, skipping", job.ID, entry.OriginalID, state.space.ID)
		state.pagesFailed++
		return
	}

	doc := confluence.ConvertHTML(parsed.ContentHTML)
	contentJSON, err := json.Marshal(doc)
	if err != nil {
		log.Printf("[Importer] Job %d: cannot serialize content of page %s: %v", job.ID, entry.OriginalID, err)
		state.pagesFailed++
		return
	}

	title := entry.Title
	if title == "" {
		title = parsed.Title
	}
	if title == "" {
		title = "Page " + entry.OriginalID
	}

	page := &entities.Page{
		SpaceID:    state.space.ID,
		Title:      title,
		Content:    string(contentJSON),
		OriginalID: entry.OriginalID,
		ImportedBy: job.CreatedBy,
	}
	if err := s.pages.Create(page); err != nil {
		log.Printf("[Importer] Job %d: failed to create page %s: %v", job.ID, entry.OriginalID, err)
		state.pagesFailed++
		return
	}

	state.pagesSucceeded++
	state.created[entry.OriginalID] = page.ID

	resolved := s.importAttachments(ctx, state, page, parsed.AttachmentRefs, path, workDir)
	if len(resolved) > 0 {
		s.resolveMediaReferences(state, page, doc, resolved)
	}
}

// importAttachments locates, stores, and records every attachment the page
// references. Returns a map of original filename to stored reference for
// the ones that were found; missing files are warned about and left as
// dangling symbolic references.
func (s *ConfluenceImporter) importAttachments(ctx context.Context, state *runState, page *entities.Page, refs []string, htmlPath, workDir string) map[string]string {
	resolved := make(map[string]string)

	for _, filename := range refs {
		sourcePath := locateAttachment(filename, htmlPath, workDir)
		if sourcePath == "" {
			log.Printf("[Importer] Job %d: attachment %q referenced by page %d not found in archive",
				state.job.ID, filename, page.ID)
			continue
		}

		file, err := os.Open(sourcePath)
		if err != nil {
			log.Printf("[Importer] Job %d: cannot open attachment %s: %v", state.job.ID, sourcePath, err)
			continue
		}
		saved, err := s.files.Save(ctx, filename, file)
		file.Close()
		if err != nil {
			log.Printf("[Importer] Job %d: failed to store attachment %q: %v", state.job.ID, filename, err)
			continue
		}

		attachment := &entities.Attachment{
			PageID:      page.ID,
			FileName:    filename,
			StoragePath: saved.Reference,
			MimeType:    utils.GuessMimeType(filename),
			SizeBytes:   saved.Size,
			UploadedBy:  state.job.CreatedBy,
		}
		if err := s.attachments.Create(attachment); err != nil {
			log.Printf("[Importer] Job %d: failed to record attachment %q: %v", state.job.ID, filename, err)
			continue
		}

		state.attachmentsSucceeded++
		resolved[filename] = saved.Reference
	}

	return resolved
}

// locateAttachment searches the fixed candidate locations for a referenced
// file: next to the source HTML file, an attachments/ folder beside it, an
// attachments/ folder at the archive root, then the archive root itself.
func locateAttachment(filename, htmlPath, workDir string) string {
	htmlDir := filepath.Dir(htmlPath)
	candidates := []string{
		filepath.Join(htmlDir, filename),
		filepath.Join(htmlDir, "attachments", filename),
		filepath.Join(workDir, "attachments", filename),
		filepath.Join(workDir, filename),
	}
	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
			return candidate
		}
	}
	return ""
}

// resolveMediaReferences walks the page AST and swaps each image's symbolic
// attachment source for the stored reference, matched by filename.
// Unmatched symbolic references stay as they are. The updated AST is
// persisted only when something actually changed.
func (s *ConfluenceImporter) resolveMediaReferences(state *runState, page *entities.Page, doc *prosemirror.Node, resolved map[string]string) {
	changed := false
	prosemirror.Walk(doc, func(n *prosemirror.Node) {
		if n.Type != prosemirror.NodeImage {
			return
		}
		src, _ := n.Attrs["src"].(string)
		filename, ok := confluence.AttachmentRefName(src)
		if !ok {
			return
		}
		if reference, found := resolved[filename]; found {
			n.Attrs["src"] = reference
			changed = true
		}
	})
	if !changed {
		return
	}

	contentJSON, err := json.Marshal(doc)
	if err != nil {
		log.Printf("[Importer] Job %d: cannot serialize resolved content of page %d: %v", state.job.ID, page.ID, err)
		return
	}
	if err := s.pages.UpdateContent(page.ID, string(contentJSON)); err != nil {
		log.Printf("[Importer] Job %d: failed to persist resolved content of page %d: %v", state.job.ID, page.ID, err)
	}
}

// linkHierarchy is pass 2: apply parent links for every entry whose page
// and parent page were both created in pass 1. Entries with a missing side
// are silently skipped; their pages simply remain unlinked.
func (s *ConfluenceImporter) linkHierarchy(state *runState) {
	for _, entry := range state.entries {
		if entry.OriginalID == "" || entry.ParentID == "" {
			continue
		}
		childID, childOK := state.created[entry.OriginalID]
		parentID, parentOK := state.created[entry.ParentID]
		if !childOK || !parentOK {
			continue
		}
		if err := s.pages.SetParent(childID, parentID); err != nil {
			log.Printf("[Importer] Job %d: failed to link page %s under %s: %v",
				state.job.ID, entry.OriginalID, entry.ParentID, err)
		}
	}
}

// finishJob computes the terminal status: Completed when at least one page
// succeeded or the hierarchy was empty, Failed when everything failed.
func (s *ConfluenceImporter) finishJob(state *runState) ImportSummary {
	job := state.job
	summary := ImportSummary{
		PagesSucceeded:       state.pagesSucceeded,
		PagesFailed:          state.pagesFailed,
		AttachmentsSucceeded: state.attachmentsSucceeded,
	}

	var status entities.JobStatus
	var progressStatus entities.ProgressStatus
	switch {
	case len(state.entries) == 0:
		status, progressStatus = entities.JobStatusCompleted, entities.ProgressCompleted
		summary.Message = "No pages found in export metadata"
	case state.pagesSucceeded == 0:
		status, progressStatus = entities.JobStatusFailed, entities.ProgressFailed
		summary.Message = fmt.Sprintf("All %d pages failed to import", state.pagesFailed)
	default:
		status, progressStatus = entities.JobStatusCompleted, entities.ProgressCompleted
		summary.Message = fmt.Sprintf("Imported %d of %d pages (%d failed), %d attachments",
			state.pagesSucceeded, len(state.entries), state.pagesFailed, state.attachmentsSucceeded)
	}

	if err := s.jobs.SetProgress(job.ID, entities.JobProgress{
		Status:               progressStatus,
		Percent:              100,
		PagesSucceeded:       state.pagesSucceeded,
		PagesFailed:          state.pagesFailed,
		AttachmentsSucceeded: state.attachmentsSucceeded,
		Message:              summary.Message,
	}); err != nil {
		log.Printf("[Importer] Job %d: failed to record final progress: %v", job.ID, err)
	}
	if status == entities.JobStatusFailed {
		if err := s.jobs.SetError(job.ID, summary.Message); err != nil {
			log.Printf("[Importer] Job %d: failed to record error details: %v", job.ID, err)
		}
	}
	if err := s.jobs.Transition(job.ID, status); err != nil {
		log.Printf("[Importer] Job %d: failed to record terminal status %s: %v", job.ID, status, err)
	}

	log.Printf("[Importer] Job %d finished: %s", job.ID, summary.Message)
	return summary
}

// failJob records a fatal failure. Counts accumulated before the failure
// are written along with it: pages created before an abort really persisted
// and the terminal record must say so.
func (s *ConfluenceImporter) failJob(state *runState, details string) {
	jobID := state.job.ID
	if err := s.jobs.SetError(jobID, details); err != nil {
		log.Printf("[Importer] Job %d: failed to record error details: %v", jobID, err)
	}
	if err := s.jobs.SetProgress(jobID, entities.JobProgress{
		Status:               entities.ProgressFailed,
		Percent:              100,
		PagesSucceeded:       state.pagesSucceeded,
		PagesFailed:          state.pagesFailed,
		AttachmentsSucceeded: state.attachmentsSucceeded,
		Message:              details,
	}); err != nil {
		log.Printf("[Importer] Job %d: failed to record failure progress: %v", jobID, err)
	}
	if err := s.jobs.Transition(jobID, entities.JobStatusFailed); err != nil {
		log.Printf("[Importer] Job %d: failed to record failed status: %v", jobID, err)
	}
}

// progress best-effort updates the job's progress fields mid-run.
func (s *ConfluenceImporter) progress(state *runState, status entities.ProgressStatus, percent int, message string) {
	err := s.jobs.SetProgress(state.job.ID, entities.JobProgress{
		Status:               status,
		Percent:              percent,
		PagesSucceeded:       state.pagesSucceeded,
		PagesFailed:          state.pagesFailed,
		AttachmentsSucceeded: state.attachmentsSucceeded,
		Message:              message,
	})
	if err != nil {
		log.Printf("[Importer] Job %d: failed to update progress: %v", state.job.ID, err)
	}
}
