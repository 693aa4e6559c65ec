package pipeline

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"animestream/database"
	"animestream/episodes"
	"animestream/publish"
	"animestream/thumbnail"
	"animestream/workspace"
)

func TestMain(m *testing.M) {
	logger := logrus.New()
	Init(logger)
	episodes.Init(logger)
	workspace.Init(logger)
	thumbnail.Init(logger)
	publish.Init(logger)
	os.Exit(m.Run())
}

func testDB(t *testing.T) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&episodes.Episode{}))
	require.NoError(t, database.Init(db, logrus.New()))
}

// fakeObjects is an in-memory object store that counts every call.
type fakeObjects struct {
	objects map[string][]byte
	calls   int
	failOn  string
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: map[string][]byte{}}
}

func (f *fakeObjects) Upload(_ context.Context, key string, body []byte) error {
	f.calls++
	if key == f.failOn {
		return errors.New("injected upload failure")
	}
	f.objects[key] = body
	return nil
}

func (f *fakeObjects) Copy(_ context.Context, src, dst string) error {
	f.calls++
	body, ok := f.objects[src]
	if !ok {
		return errors.New("no such source key: " + src)
	}
	f.objects[dst] = body
	return nil
}

func (f *fakeObjects) Delete(_ context.Context, key string) error {
	f.calls++
	if _, ok := f.objects[key]; !ok {
		return errors.New("no such key: " + key)
	}
	delete(f.objects, key)
	return nil
}

func (f *fakeObjects) List(_ context.Context, prefix string) ([]string, error) {
	f.calls++
	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (f *fakeObjects) URL(key string) string {
	return "https://cdn.example/" + key
}

// fakeTranscoder fabricates a 3-segment encode, and snapshots the metadata
// row's state at the moment the encoder would run.
type fakeTranscoder struct {
	key            episodes.Key
	rowWasPending  bool
	rowWasComplete bool
	fail           bool
}

func (f *fakeTranscoder) Transcode(_ context.Context, src, outDir string) (string, error) {
	if ep, err := episodes.FindByKey(f.key); err == nil {
		f.rowWasPending = !ep.Complete
		f.rowWasComplete = ep.Complete
	}
	if f.fail {
		return "", errors.New("encoder exited with code 1")
	}

	var manifest strings.Builder
	manifest.WriteString("#EXTM3U\n#EXT-X-VERSION:3\n#EXT-X-TARGETDURATION:10\n")
	for _, name := range []string{"raw-c.ts", "raw-a.ts", "raw-b.ts"} {
		if err := os.WriteFile(filepath.Join(outDir, name), []byte("segment "+name), 0600); err != nil {
			return "", err
		}
		manifest.WriteString("#EXTINF:10.000000,\n" + name + "\n")
	}
	manifest.WriteString("#EXT-X-ENDLIST\n")

	manifestPath := filepath.Join(outDir, "index.m3u8")
	if err := os.WriteFile(manifestPath, []byte(manifest.String()), 0600); err != nil {
		return "", err
	}
	return manifestPath, nil
}

func testJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 400, 200))
	for y := 0; y < 200; y++ {
		for x := 0; x < 400; x++ {
			img.Set(x, y, color.RGBA{uint8(x % 256), uint8(y % 256), 100, 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func testRequest(t *testing.T) UploadRequest {
	return UploadRequest{
		Fields: episodes.Fields{
			Series:      "Cowboy Bebop",
			Season:      1,
			Episode:     1,
			Title:       "Asteroid Blues",
			Description: "A bounty goes wrong.",
			Categories:  episodes.Categories{"action"},
		},
		Thumbnail: testJPEG(t),
		Video:     bytes.NewReader([]byte("not a real mp4, the fake encoder doesn't care")),
		VideoName: "episode1.mp4",
	}
}

func newTestOrchestrator(t *testing.T, objects *fakeObjects, trans Transcoder) (*Orchestrator, string) {
	t.Helper()
	workDir := t.TempDir()
	orch := New(objects, trans, workspace.NewManager(workDir))
	orch.probe = func(string) (float64, error) { return 30, nil }
	return orch, workDir
}

func assertWorkspaceClean(t *testing.T, workDir string) {
	t.Helper()
	entries, err := os.ReadDir(workDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "workspace must be cleaned up on every exit path")
}

func TestUploadEndToEnd(t *testing.T) {
	testDB(t)
	objects := newFakeObjects()
	req := testRequest(t)
	trans := &fakeTranscoder{key: req.Fields.Key()}
	orch, workDir := newTestOrchestrator(t, objects, trans)

	ep, err := orch.Upload(context.Background(), req)
	require.NoError(t, err)

	// the row was pending, never complete, while the encoder ran
	assert.True(t, trans.rowWasPending)
	assert.False(t, trans.rowWasComplete)

	assert.True(t, ep.Complete)
	assert.Equal(t, "https://cdn.example/Cowboy Bebop/season-1/episode-1/index.m3u8", ep.ManifestURL)
	assert.Equal(t, "https://cdn.example/Cowboy Bebop/thumbnails/season-1-episode-1.jpg", ep.ThumbnailURL)
	assert.InDelta(t, 30.0, ep.Duration, 1e-9)

	// 3 segments + manifest + thumbnail
	assert.Len(t, objects.objects, 5)
	assert.Contains(t, objects.objects, "Cowboy Bebop/season-1/episode-1/00000.ts")
	assert.Contains(t, objects.objects, "Cowboy Bebop/season-1/episode-1/00001.ts")
	assert.Contains(t, objects.objects, "Cowboy Bebop/season-1/episode-1/00002.ts")
	assert.Contains(t, objects.objects, "Cowboy Bebop/season-1/episode-1/index.m3u8")
	assert.Contains(t, objects.objects, "Cowboy Bebop/thumbnails/season-1-episode-1.jpg")

	// manifest order preserved: raw-c was first in the playlist
	assert.Equal(t, []byte("segment raw-c.ts"), objects.objects["Cowboy Bebop/season-1/episode-1/00000.ts"])

	found, err := episodes.FindByKey(req.Fields.Key())
	require.NoError(t, err)
	assert.True(t, found.Complete)

	assertWorkspaceClean(t, workDir)
}

func TestUploadEveryManifestURLIsFetchable(t *testing.T) {
	testDB(t)
	objects := newFakeObjects()
	req := testRequest(t)
	orch, _ := newTestOrchestrator(t, objects, &fakeTranscoder{key: req.Fields.Key()})

	ep, err := orch.Upload(context.Background(), req)
	require.NoError(t, err)

	manifestKey := strings.TrimPrefix(ep.ManifestURL, "https://cdn.example/")
	manifest, ok := objects.objects[manifestKey]
	require.True(t, ok)

	prefix := req.Fields.Key().Prefix()
	for _, line := range strings.Split(string(manifest), "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasSuffix(line, ".ts") {
			continue
		}
		assert.Contains(t, objects.objects, prefix+"/"+line, "manifest references a missing segment")
	}
}

func TestUploadTranscodeFailureLeavesPendingRow(t *testing.T) {
	testDB(t)
	objects := newFakeObjects()
	req := testRequest(t)
	trans := &fakeTranscoder{key: req.Fields.Key(), fail: true}
	orch, workDir := newTestOrchestrator(t, objects, trans)

	_, err := orch.Upload(context.Background(), req)
	require.Error(t, err)

	found, err := episodes.FindByKey(req.Fields.Key())
	require.NoError(t, err)
	assert.False(t, found.Complete, "a failed transcode must never produce a complete row")

	// only the thumbnail went up before the encoder ran
	assert.Len(t, objects.objects, 1)
	assertWorkspaceClean(t, workDir)
}

func TestUploadBadThumbnailAborts(t *testing.T) {
	testDB(t)
	objects := newFakeObjects()
	req := testRequest(t)
	req.Thumbnail = []byte("not an image")
	orch, workDir := newTestOrchestrator(t, objects, &fakeTranscoder{key: req.Fields.Key()})

	_, err := orch.Upload(context.Background(), req)
	assert.ErrorIs(t, err, thumbnail.ErrBadImage)

	assert.Empty(t, objects.objects, "no partial thumbnail may be uploaded")
	assertWorkspaceClean(t, workDir)
}

func TestUploadPublishFailureLeavesPendingRow(t *testing.T) {
	testDB(t)
	objects := newFakeObjects()
	req := testRequest(t)
	objects.failOn = req.Fields.Key().Prefix() + "/00001.ts"
	orch, workDir := newTestOrchestrator(t, objects, &fakeTranscoder{key: req.Fields.Key()})

	_, err := orch.Upload(context.Background(), req)
	require.Error(t, err)

	found, err := episodes.FindByKey(req.Fields.Key())
	require.NoError(t, err)
	assert.False(t, found.Complete)
	assert.NotContains(t, objects.objects, req.Fields.Key().Prefix()+"/index.m3u8")
	assertWorkspaceClean(t, workDir)
}

func TestDeleteRemovesRowAndObjects(t *testing.T) {
	testDB(t)
	objects := newFakeObjects()
	req := testRequest(t)
	orch, _ := newTestOrchestrator(t, objects, &fakeTranscoder{key: req.Fields.Key()})

	_, err := orch.Upload(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, objects.objects, 5)

	require.NoError(t, orch.Delete(context.Background(), req.Fields.Key()))

	assert.Empty(t, objects.objects, "segments, manifest and thumbnail must all be gone")
	_, err = episodes.FindByKey(req.Fields.Key())
	assert.ErrorIs(t, err, episodes.ErrNotFound)
}

func TestDeleteMissingEpisodeTouchesNothing(t *testing.T) {
	testDB(t)
	objects := newFakeObjects()
	orch, _ := newTestOrchestrator(t, objects, &fakeTranscoder{})

	err := orch.Delete(context.Background(), episodes.Key{Series: "Nowhere", Season: 1, Episode: 1})
	assert.ErrorIs(t, err, episodes.ErrNotFound)
	assert.Zero(t, objects.calls, "a 404 delete must make no object-storage calls")
}

func TestRenameMovesObjectsAndRow(t *testing.T) {
	testDB(t)
	objects := newFakeObjects()
	req := testRequest(t)
	orch, _ := newTestOrchestrator(t, objects, &fakeTranscoder{key: req.Fields.Key()})

	_, err := orch.Upload(context.Background(), req)
	require.NoError(t, err)

	newFields := req.Fields
	newFields.Series = "Cowboy Bebop Remastered"
	newFields.Title = "Asteroid Blues (Remaster)"
	require.NoError(t, orch.Rename(context.Background(), req.Fields.Key(), newFields))

	newKey := newFields.Key()
	assert.Contains(t, objects.objects, newKey.Prefix()+"/00000.ts")
	assert.Contains(t, objects.objects, newKey.Prefix()+"/00001.ts")
	assert.Contains(t, objects.objects, newKey.Prefix()+"/00002.ts")
	assert.Contains(t, objects.objects, newKey.ManifestKey())
	assert.Contains(t, objects.objects, newKey.ThumbnailKey())
	assert.Len(t, objects.objects, 5, "old keys must be deleted")

	_, err = episodes.FindByKey(req.Fields.Key())
	assert.ErrorIs(t, err, episodes.ErrNotFound)

	found, err := episodes.FindByKey(newKey)
	require.NoError(t, err)
	assert.True(t, found.Complete)
	assert.Equal(t, "Asteroid Blues (Remaster)", found.Title)
	assert.Equal(t, "https://cdn.example/"+newKey.ManifestKey(), found.ManifestURL)
	assert.Equal(t, "https://cdn.example/"+newKey.ThumbnailKey(), found.ThumbnailURL)
}

func TestRenameMissingEpisode(t *testing.T) {
	testDB(t)
	objects := newFakeObjects()
	orch, _ := newTestOrchestrator(t, objects, &fakeTranscoder{})

	err := orch.Rename(context.Background(),
		episodes.Key{Series: "Nowhere", Season: 1, Episode: 1},
		testRequest(t).Fields)
	assert.ErrorIs(t, err, episodes.ErrNotFound)
	assert.Zero(t, objects.calls)
}

func TestRenameFieldsOnlyKeepsObjectsInPlace(t *testing.T) {
	testDB(t)
	objects := newFakeObjects()
	req := testRequest(t)
	orch, _ := newTestOrchestrator(t, objects, &fakeTranscoder{key: req.Fields.Key()})

	ep, err := orch.Upload(context.Background(), req)
	require.NoError(t, err)
	callsAfterUpload := objects.calls

	// same key, new description: no storage traffic needed
	newFields := req.Fields
	newFields.Description = "updated synopsis"
	require.NoError(t, orch.Rename(context.Background(), req.Fields.Key(), newFields))
	assert.Equal(t, callsAfterUpload, objects.calls)

	found, err := episodes.FindByKey(req.Fields.Key())
	require.NoError(t, err)
	assert.Equal(t, "updated synopsis", found.Description)
	assert.Equal(t, ep.ManifestURL, found.ManifestURL)
}
