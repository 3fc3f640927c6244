package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/pci-dss-extractor/internal/export"
	"github.com/a3tai/pci-dss-extractor/internal/pdf"
	"github.com/a3tai/pci-dss-extractor/internal/pdf/pdftest"
	"github.com/a3tai/pci-dss-extractor/internal/pipeline"
)

var englishPages = []string{
	"1.1 Install and maintain network security controls. Testing Procedures: 1.1.a Examine documentation for all controls.",
	"1.2 Network security controls are configured. Testing Procedures: 1.2.a Examine configuration standards for rulesets.",
}

type collector struct {
	mu      sync.Mutex
	results []*pdf.FileResult
}

func (c *collector) add(r *pdf.FileResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, r)
}

func (c *collector) snapshot() []*pdf.FileResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*pdf.FileResult(nil), c.results...)
}

func newTestWatcher(t *testing.T, dir string, opts ...Option) (*Watcher, *collector, string) {
	t.Helper()
	p, err := pipeline.New(pipeline.Options{})
	require.NoError(t, err)
	svc, err := pdf.NewService(p, pdf.Options{MaxFileSize: 1024 * 1024})
	require.NoError(t, err)

	out := t.TempDir()
	c := &collector{}
	opts = append([]Option{WithDebounce(30 * time.Millisecond), WithResultHook(c.add)}, opts...)
	w, err := New(dir, svc, export.NewWriter(out, nil), opts...)
	require.NoError(t, err)
	return w, c, out
}

func start(t *testing.T, w *Watcher) (cancel func()) {
	t.Helper()
	ctx, cancelCtx := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	select {
	case <-w.Ready():
	case err := <-done:
		cancelCtx()
		t.Fatalf("watcher stopped early: %v", err)
	case <-time.After(2 * time.Second):
		cancelCtx()
		t.Fatal("watcher not ready")
	}

	return func() {
		cancelCtx()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("watcher did not stop")
		}
	}
}

func TestNew_Errors(t *testing.T) {
	p, err := pipeline.New(pipeline.Options{})
	require.NoError(t, err)
	svc, err := pdf.NewService(p, pdf.Options{MaxFileSize: 1024})
	require.NoError(t, err)
	writer := export.NewWriter(t.TempDir(), nil)

	_, err = New("", svc, writer)
	assert.Error(t, err)
	_, err = New(t.TempDir(), nil, writer)
	assert.Error(t, err)
	_, err = New(t.TempDir(), svc, nil)
	assert.Error(t, err)
}

func TestWatcher_ProcessesNewPDF(t *testing.T) {
	dir := t.TempDir()
	w, c, out := newTestWatcher(t, dir)
	stop := start(t, w)
	defer stop()

	path := pdftest.Write(t, dir, "saq_d.pdf", englishPages...)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not a pdf"), 0o600))

	require.Eventually(t, func() bool { return len(c.snapshot()) > 0 }, 3*time.Second, 10*time.Millisecond)

	res := c.snapshot()[0]
	assert.Equal(t, path, res.Path)
	assert.Empty(t, res.Error)
	require.NotNil(t, res.Result)
	assert.Equal(t, 2, res.Result.Summary.Total)
	assert.Equal(t, out, filepath.Dir(res.OutputPath))
	assert.FileExists(t, res.OutputPath)

	// the text file never triggers an extraction
	time.Sleep(100 * time.Millisecond)
	for _, r := range c.snapshot() {
		assert.Equal(t, path, r.Path)
	}
}

func TestWatcher_SyncExisting(t *testing.T) {
	dir := t.TempDir()
	pdftest.Write(t, dir, "existing.pdf", englishPages...)

	w, c, _ := newTestWatcher(t, dir, WithSyncExisting(true), WithFormat(export.FormatXLSX))
	stop := start(t, w)
	defer stop()

	require.Eventually(t, func() bool { return len(c.snapshot()) == 1 }, 3*time.Second, 10*time.Millisecond)
	res := c.snapshot()[0]
	assert.Equal(t, ".xlsx", filepath.Ext(res.OutputPath))
}

func TestWatcher_ReportsFailures(t *testing.T) {
	dir := t.TempDir()
	w, c, _ := newTestWatcher(t, dir)
	stop := start(t, w)
	defer stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.pdf"), []byte("%PDF-1.4 garbage"), 0o600))

	require.Eventually(t, func() bool { return len(c.snapshot()) > 0 }, 3*time.Second, 10*time.Millisecond)
	res := c.snapshot()[0]
	assert.NotEmpty(t, res.Error)
	assert.Empty(t, res.OutputPath)
}

func TestWatcher_ProcessSkipsUnchanged(t *testing.T) {
	dir := t.TempDir()
	path := pdftest.Write(t, dir, "saq_d.pdf", englishPages...)
	w, c, _ := newTestWatcher(t, dir, WithLanguage("en"))

	first := w.Process(context.Background(), path)
	require.NotNil(t, first)
	assert.Equal(t, "en", first.Result.Summary.LanguageDetection.Code)

	assert.Nil(t, w.Process(context.Background(), path))
	assert.Nil(t, w.Process(context.Background(), filepath.Join(dir, "missing.pdf")))
	assert.Len(t, c.snapshot(), 1)
}
