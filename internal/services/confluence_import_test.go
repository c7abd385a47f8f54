package services

import (
	"archive/zip"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wikiport/internal/entities"
	"wikiport/internal/prosemirror"
	"wikiport/internal/storage"
)

// --- mocks ---

type mockTargets struct {
	space *entities.Space
	err   error
}

func (m *mockTargets) Resolve(workspaceID, spaceID *uint) (*entities.Space, error) {
	return m.space, m.err
}

type parentLink struct {
	pageID, parentID uint
}

type mockPages struct {
	nextID   uint
	existing map[string]bool
	created  []*entities.Page
	parents  []parentLink
	updates  map[uint]string

	// createErr makes Create fail, for every page or only for the page
	// with original id createErrFor.
	createErr    error
	createErrFor string
}

func newMockPages() *mockPages {
	return &mockPages{existing: make(map[string]bool), updates: make(map[uint]string)}
}

func (m *mockPages) Exists(originalID string, spaceID uint) (bool, error) {
	return m.existing[originalID], nil
}

func (m *mockPages) Create(page *entities.Page) error {
	if m.createErr != nil && (m.createErrFor == "" || m.createErrFor == page.OriginalID) {
		return m.createErr
	}
	m.nextID++
	page.ID = m.nextID
	m.created = append(m.created, page)
	return nil
}

func (m *mockPages) SetParent(pageID, parentID uint) error {
	m.parents = append(m.parents, parentLink{pageID, parentID})
	return nil
}

func (m *mockPages) UpdateContent(pageID uint, contentJSON string) error {
	m.updates[pageID] = contentJSON
	return nil
}

func (m *mockPages) byOriginalID(originalID string) *entities.Page {
	for _, page := range m.created {
		if page.OriginalID == originalID {
			return page
		}
	}
	return nil
}

type mockAttachments struct {
	created []*entities.Attachment
}

func (m *mockAttachments) Create(attachment *entities.Attachment) error {
	m.created = append(m.created, attachment)
	return nil
}

type mockJobs struct {
	statuses []entities.JobStatus
	progress []entities.JobProgress
	taskIDs  []string
	errors   []string

	// onProgress, when set, observes every progress update as it arrives.
	onProgress func(p entities.JobProgress)
}

func (m *mockJobs) Transition(jobID uint, status entities.JobStatus) error {
	m.statuses = append(m.statuses, status)
	return nil
}

func (m *mockJobs) SetTaskID(jobID uint, taskID string) error {
	m.taskIDs = append(m.taskIDs, taskID)
	return nil
}

func (m *mockJobs) SetProgress(jobID uint, p entities.JobProgress) error {
	m.progress = append(m.progress, p)
	if m.onProgress != nil {
		m.onProgress(p)
	}
	return nil
}

func (m *mockJobs) SetError(jobID uint, details string) error {
	m.errors = append(m.errors, details)
	return nil
}

func (m *mockJobs) finalStatus() entities.JobStatus {
	if len(m.statuses) == 0 {
		return ""
	}
	return m.statuses[len(m.statuses)-1]
}

func (m *mockJobs) finalProgress() entities.JobProgress {
	if len(m.progress) == 0 {
		return entities.JobProgress{}
	}
	return m.progress[len(m.progress)-1]
}

type mockFileStore struct {
	saved []string
}

func (m *mockFileStore) Save(ctx context.Context, filename string, content io.Reader) (*storage.SavedFile, error) {
	size, err := io.Copy(io.Discard, content)
	if err != nil {
		return nil, err
	}
	m.saved = append(m.saved, filename)
	return &storage.SavedFile{Reference: "/media/" + filename, Size: size}, nil
}

func (m *mockFileStore) Open(ctx context.Context, reference string) (io.ReadCloser, error) {
	return nil, os.ErrNotExist
}

func (m *mockFileStore) Delete(ctx context.Context, reference string) error {
	return nil
}

// --- fixtures ---

func writeImportZip(t *testing.T, members map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "export.zip")
	out, err := os.Create(path)
	require.NoError(t, err)
	defer out.Close()

	w := zip.NewWriter(out)
	for name, content := range members {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return path
}

const twoPageMetadata = `<hibernate-generic>
  <object class="Page">
    <id name="id">100</id>
    <property name="title">Home</property>
  </object>
  <object class="Page">
    <id name="id">101</id>
    <property name="title">Child Page</property>
    <property name="parent"><id name="id">100</id></property>
  </object>
</hibernate-generic>`

const homeHTML = `<html><head><title>Home</title><meta name="ajs-page-id" content="100"></head>
<body><div class="wiki-content"><p>Welcome to the home page of this space.</p>
<img src="attachments/logo.png" alt="Logo"></div></body></html>`

const childHTML = `<html><head><title>Child Page</title></head>
<body><div class="wiki-content"><p>This is the child page with plenty of content.</p></div></body></html>`

func testSpace() *entities.Space {
	return &entities.Space{ID: 7, Key: "TEST", Name: "Test Space"}
}

func newTestImporter(t *testing.T, pages *mockPages, jobs *mockJobs) (*ConfluenceImporter, *mockAttachments, *mockFileStore) {
	t.Helper()
	attachments := &mockAttachments{}
	files := &mockFileStore{}
	importer := NewConfluenceImporter(
		&mockTargets{space: testSpace()},
		pages,
		attachments,
		jobs,
		files,
		t.TempDir(),
	)
	return importer, attachments, files
}

// --- tests ---

func TestImporterRunFullImport(t *testing.T) {
	archive := writeImportZip(t, map[string]string{
		"entities.xml":         twoPageMetadata,
		"Home_100.html":        homeHTML,
		"Child_101.html":       childHTML,
		"attachments/logo.png": "pngbytes",
	})

	pages := newMockPages()
	jobs := &mockJobs{}
	importer, attachments, files := newTestImporter(t, pages, jobs)

	job := &entities.ImportJob{ID: 1, ArchivePath: archive, CreatedBy: "tester"}
	summary, err := importer.Run(context.Background(), job, "run-1")
	require.NoError(t, err)

	assert.Equal(t, 2, summary.PagesSucceeded)
	assert.Equal(t, 0, summary.PagesFailed)
	assert.Equal(t, 1, summary.AttachmentsSucceeded)

	assert.Equal(t, entities.JobStatusCompleted, jobs.finalStatus())
	assert.Equal(t, []string{"run-1"}, jobs.taskIDs)
	assert.Empty(t, jobs.errors)

	// Titles come from the metadata, pages belong to the resolved space.
	home := pages.byOriginalID("100")
	require.NotNil(t, home)
	assert.Equal(t, "Home", home.Title)
	assert.Equal(t, uint(7), home.SpaceID)
	assert.Equal(t, "tester", home.ImportedBy)

	// The child had no embedded id and was matched by title.
	child := pages.byOriginalID("101")
	require.NotNil(t, child)
	assert.Equal(t, "Child Page", child.Title)

	// Hierarchy pass linked the child under the home page.
	require.Len(t, pages.parents, 1)
	assert.Equal(t, parentLink{child.ID, home.ID}, pages.parents[0])

	// The attachment was stored and recorded.
	assert.Equal(t, []string{"logo.png"}, files.saved)
	require.Len(t, attachments.created, 1)
	assert.Equal(t, "logo.png", attachments.created[0].FileName)
	assert.Equal(t, "/media/logo.png", attachments.created[0].StoragePath)
	assert.Equal(t, home.ID, attachments.created[0].PageID)

	// The symbolic image reference was resolved in the persisted content.
	resolved, ok := pages.updates[home.ID]
	require.True(t, ok)
	var doc prosemirror.Node
	require.NoError(t, json.Unmarshal([]byte(resolved), &doc))
	found := false
	prosemirror.Walk(&doc, func(n *prosemirror.Node) {
		if n.Type == prosemirror.NodeImage {
			found = true
			assert.Equal(t, "/media/logo.png", n.Attrs["src"])
		}
	})
	assert.True(t, found)

	// The extraction workspace is gone.
	entries, err := os.ReadDir(importer.workRoot)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestImporterRunMissingMetadataFails(t *testing.T) {
	archive := writeImportZip(t, map[string]string{
		"Home_100.html": homeHTML,
	})

	pages := newMockPages()
	jobs := &mockJobs{}
	importer, _, _ := newTestImporter(t, pages, jobs)

	job := &entities.ImportJob{ID: 2, ArchivePath: archive}
	_, err := importer.Run(context.Background(), job, "run-2")
	require.Error(t, err)

	assert.Equal(t, entities.JobStatusFailed, jobs.finalStatus())
	require.NotEmpty(t, jobs.errors)
	assert.Contains(t, jobs.errors[0], "metadata")
	assert.Empty(t, pages.created)
}

func TestImporterRunNoHTMLFails(t *testing.T) {
	archive := writeImportZip(t, map[string]string{
		"entities.xml": twoPageMetadata,
	})

	jobs := &mockJobs{}
	importer, _, _ := newTestImporter(t, newMockPages(), jobs)

	job := &entities.ImportJob{ID: 3, ArchivePath: archive}
	_, err := importer.Run(context.Background(), job, "run-3")
	require.Error(t, err)

	assert.Equal(t, entities.JobStatusFailed, jobs.finalStatus())
	require.NotEmpty(t, jobs.errors)
	assert.Contains(t, jobs.errors[0], "HTML")
}

func TestImporterRunMissingArchiveFails(t *testing.T) {
	jobs := &mockJobs{}
	importer, _, _ := newTestImporter(t, newMockPages(), jobs)

	job := &entities.ImportJob{ID: 4, ArchivePath: filepath.Join(t.TempDir(), "gone.zip")}
	_, err := importer.Run(context.Background(), job, "run-4")
	require.Error(t, err)
	assert.Equal(t, entities.JobStatusFailed, jobs.finalStatus())
}

func TestImporterRunAlreadyImportedPagesCountAsFailed(t *testing.T) {
	archive := writeImportZip(t, map[string]string{
		"entities.xml":   twoPageMetadata,
		"Home_100.html":  homeHTML,
		"Child_101.html": childHTML,
	})

	pages := newMockPages()
	pages.existing["100"] = true
	pages.existing["101"] = true
	jobs := &mockJobs{}
	importer, _, _ := newTestImporter(t, pages, jobs)

	job := &entities.ImportJob{ID: 5, ArchivePath: archive}
	summary, err := importer.Run(context.Background(), job, "run-5")
	require.NoError(t, err)

	assert.Equal(t, 0, summary.PagesSucceeded)
	assert.Equal(t, 2, summary.PagesFailed)
	assert.Equal(t, entities.JobStatusFailed, jobs.finalStatus())
	require.NotEmpty(t, jobs.errors)
	assert.Contains(t, jobs.errors[0], "failed")
	assert.Empty(t, pages.created)
}

func TestImporterRunPartialFailureStillCompletes(t *testing.T) {
	// Page 101 references an HTML file that does not exist in the archive.
	archive := writeImportZip(t, map[string]string{
		"entities.xml":  twoPageMetadata,
		"Home_100.html": homeHTML,
	})

	pages := newMockPages()
	jobs := &mockJobs{}
	importer, _, _ := newTestImporter(t, pages, jobs)

	job := &entities.ImportJob{ID: 6, ArchivePath: archive}
	summary, err := importer.Run(context.Background(), job, "run-6")
	require.NoError(t, err)

	assert.Equal(t, 1, summary.PagesSucceeded)
	assert.Equal(t, 1, summary.PagesFailed)
	assert.Equal(t, entities.JobStatusCompleted, jobs.finalStatus())

	// No parent link: only one side of the pair was created.
	assert.Empty(t, pages.parents)
}

func TestImporterRunEmptyHierarchyCompletes(t *testing.T) {
	archive := writeImportZip(t, map[string]string{
		"entities.xml":  `<hibernate-generic></hibernate-generic>`,
		"Home_100.html": homeHTML,
	})

	jobs := &mockJobs{}
	importer, _, _ := newTestImporter(t, newMockPages(), jobs)

	job := &entities.ImportJob{ID: 7, ArchivePath: archive}
	summary, err := importer.Run(context.Background(), job, "run-7")
	require.NoError(t, err)

	assert.Equal(t, 0, summary.PagesSucceeded)
	assert.Equal(t, entities.JobStatusCompleted, jobs.finalStatus())
	assert.Empty(t, jobs.errors)
}

func TestImporterRunUnresolvableTargetFails(t *testing.T) {
	archive := writeImportZip(t, map[string]string{
		"entities.xml":  twoPageMetadata,
		"Home_100.html": homeHTML,
	})

	jobs := &mockJobs{}
	importer := NewConfluenceImporter(
		&mockTargets{space: nil},
		newMockPages(),
		&mockAttachments{},
		jobs,
		&mockFileStore{},
		t.TempDir(),
	)

	job := &entities.ImportJob{ID: 8, ArchivePath: archive}
	_, err := importer.Run(context.Background(), job, "run-8")
	require.Error(t, err)
	assert.Equal(t, entities.JobStatusFailed, jobs.finalStatus())
	require.NotEmpty(t, jobs.errors)
	assert.Contains(t, strings.ToLower(jobs.errors[0]), "space")
}

func TestImporterRunPageCreationErrorCountsAsFailed(t *testing.T) {
	archive := writeImportZip(t, map[string]string{
		"entities.xml":   twoPageMetadata,
		"Home_100.html":  homeHTML,
		"Child_101.html": childHTML,
	})

	pages := newMockPages()
	pages.createErr = errors.New("disk full")
	pages.createErrFor = "100"
	jobs := &mockJobs{}
	importer, _, _ := newTestImporter(t, pages, jobs)

	job := &entities.ImportJob{ID: 11, ArchivePath: archive}
	summary, err := importer.Run(context.Background(), job, "run-11")
	require.NoError(t, err)

	// The failed creation is counted and the run moves on to the next entry.
	assert.Equal(t, 1, summary.PagesSucceeded)
	assert.Equal(t, 1, summary.PagesFailed)
	assert.Equal(t, entities.JobStatusCompleted, jobs.finalStatus())

	require.Len(t, pages.created, 1)
	assert.Equal(t, "101", pages.created[0].OriginalID)

	// The child's parent was never created, so no link is applied.
	assert.Empty(t, pages.parents)
}

func TestImporterRunCancelMidRunKeepsCounters(t *testing.T) {
	archive := writeImportZip(t, map[string]string{
		"entities.xml":         twoPageMetadata,
		"Home_100.html":        homeHTML,
		"Child_101.html":       childHTML,
		"attachments/logo.png": "pngbytes",
	})

	pages := newMockPages()
	jobs := &mockJobs{}
	importer, _, _ := newTestImporter(t, pages, jobs)

	// Cancel while the last page is being imported: the run aborts before
	// hierarchy linking, after both pages really persisted.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	jobs.onProgress = func(p entities.JobProgress) {
		if p.Message == "Importing page 2 of 2" {
			cancel()
		}
	}

	job := &entities.ImportJob{ID: 12, ArchivePath: archive}
	summary, err := importer.Run(ctx, job, "run-12")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "canceled")

	assert.Equal(t, entities.JobStatusFailed, jobs.finalStatus())
	assert.Len(t, pages.created, 2)
	assert.Empty(t, pages.parents)

	// The terminal record keeps the work that was done before the abort.
	assert.Equal(t, 2, summary.PagesSucceeded)
	final := jobs.finalProgress()
	assert.Equal(t, entities.ProgressFailed, final.Status)
	assert.Equal(t, 100, final.Percent)
	assert.Equal(t, 2, final.PagesSucceeded)
	assert.Equal(t, 0, final.PagesFailed)
	assert.Equal(t, 1, final.AttachmentsSucceeded)
	assert.Contains(t, final.Message, "hierarchy linking")
}

func TestImporterRunCanceledContext(t *testing.T) {
	archive := writeImportZip(t, map[string]string{
		"entities.xml":  twoPageMetadata,
		"Home_100.html": homeHTML,
	})

	jobs := &mockJobs{}
	importer, _, _ := newTestImporter(t, newMockPages(), jobs)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	job := &entities.ImportJob{ID: 9, ArchivePath: archive}
	_, err := importer.Run(ctx, job, "run-9")
	require.Error(t, err)
	assert.Equal(t, entities.JobStatusFailed, jobs.finalStatus())
}

func TestImporterRunMissingAttachmentLeavesSymbolicRef(t *testing.T) {
	// The logo referenced by the home page is absent from the archive.
	archive := writeImportZip(t, map[string]string{
		"entities.xml":   twoPageMetadata,
		"Home_100.html":  homeHTML,
		"Child_101.html": childHTML,
	})

	pages := newMockPages()
	jobs := &mockJobs{}
	importer, attachments, files := newTestImporter(t, pages, jobs)

	job := &entities.ImportJob{ID: 10, ArchivePath: archive}
	summary, err := importer.Run(context.Background(), job, "run-10")
	require.NoError(t, err)

	assert.Equal(t, 2, summary.PagesSucceeded)
	assert.Equal(t, 0, summary.AttachmentsSucceeded)
	assert.Empty(t, files.saved)
	assert.Empty(t, attachments.created)

	// Content was never rewritten, so the symbolic reference survives.
	home := pages.byOriginalID("100")
	require.NotNil(t, home)
	_, updated := pages.updates[home.ID]
	assert.False(t, updated)
	assert.Contains(t, home.Content, "wikiport:attachment:logo.png")
}
