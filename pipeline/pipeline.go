package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"animestream/episodes"
	"animestream/ffmpeg"
	"animestream/publish"
	"animestream/storage"
	"animestream/thumbnail"
	"animestream/workspace"
)

// Transcoder produces a streaming playlist plus segments from a source
// video. The real implementation spawns ffmpeg; tests substitute a fake.
type Transcoder interface {
	Transcode(ctx context.Context, sourcePath, outputDir string) (manifestPath string, err error)
}

// UploadRequest is one validated upload: the episode's metadata fields,
// the raw thumbnail bytes, and a reader over the video body.
type UploadRequest struct {
	Fields    episodes.Fields
	Thumbnail []byte
	Video     io.Reader
	VideoName string // client filename, used only for its extension
}

// Orchestrator wires the upload, delete and rename flows together over the
// metadata store, object store, encoder and scratch space.
type Orchestrator struct {
	objects    storage.ObjectStore
	transcoder Transcoder
	workspaces *workspace.Manager
	publisher  *publish.Publisher

	// probe reports the source duration; best-effort, nil disables it
	probe func(path string) (float64, error)
}

func New(objects storage.ObjectStore, transcoder Transcoder, workspaces *workspace.Manager) *Orchestrator {
	return &Orchestrator{
		objects:    objects,
		transcoder: transcoder,
		workspaces: workspaces,
		publisher:  publish.New(objects),
		probe:      ffmpeg.Duration,
	}
}

// Upload runs the whole pipeline for one episode: scratch space, pending
// row, thumbnail, transcode, publish, completion. Order matters: the
// pending row exists before any object write, and the row only flips to
// complete after every artifact is durably stored. The workspace is
// released on every exit path.
func (o *Orchestrator) Upload(ctx context.Context, req UploadRequest) (*episodes.Episode, error) {
	ws, err := o.workspaces.Acquire()
	if err != nil {
		return nil, err
	}
	defer o.workspaces.Release(ws)

	ep, err := episodes.CreatePending(req.Fields)
	if err != nil {
		return nil, err
	}
	key := ep.Key()

	thumb, err := thumbnail.Normalize(req.Thumbnail)
	if err != nil {
		return nil, err
	}
	if err := o.objects.Upload(ctx, key.ThumbnailKey(), thumb); err != nil {
		return nil, err
	}

	srcPath := filepath.Join(ws.OutDir, "source"+videoExt(req.VideoName))
	if err := stage(srcPath, req.Video); err != nil {
		return nil, err
	}

	if o.probe != nil {
		if seconds, err := o.probe(srcPath); err == nil {
			if err := episodes.SetDuration(ep.ID, seconds); err == nil {
				ep.Duration = seconds
			}
		} else {
			log.Warnf("could not probe duration of %s: %v", srcPath, err)
		}
	}

	manifestPath, err := o.transcoder.Transcode(ctx, srcPath, ws.OutDir)
	if err != nil {
		return nil, err
	}

	res, err := o.publisher.Publish(ctx, manifestPath, ws.OutDir, key.Prefix())
	if err != nil {
		return nil, err
	}

	thumbnailURL := o.objects.URL(key.ThumbnailKey())
	if err := episodes.MarkComplete(ep.ID, thumbnailURL, res.ManifestURL); err != nil {
		return nil, err
	}
	ep.Complete = true
	ep.ThumbnailURL = thumbnailURL
	ep.ManifestURL = res.ManifestURL

	log.Infof("upload complete: %s (%d segments)", key, len(res.SegmentURLs))
	return ep, nil
}

// Delete removes the episode's row and every object under its storage
// prefix, thumbnail included. A missing row means no object-storage call is
// made at all; a missing individual key is logged and skipped, because the
// point is that the objects end up gone.
func (o *Orchestrator) Delete(ctx context.Context, key episodes.Key) error {
	ep, err := episodes.FindByKey(key)
	if err != nil {
		return err
	}

	keys, err := o.objects.List(ctx, key.Prefix()+"/")
	if err != nil {
		return err
	}
	for _, k := range append(keys, key.ThumbnailKey()) {
		if err := o.objects.Delete(ctx, k); err != nil {
			log.Warnf("delete %s: %v (continuing)", k, err)
		}
	}

	if err := episodes.Delete(ep.ID); err != nil {
		return err
	}
	log.Infof("deleted episode %s and %d objects", key, len(keys)+1)
	return nil
}

// Rename moves an episode to a new identity: objects are copied to the new
// keys first, old keys deleted best-effort, then the row is rewritten with
// the new fields and URLs. Segment references inside the playlist are
// relative, so the playlist bytes stay valid under the new prefix.
func (o *Orchestrator) Rename(ctx context.Context, oldKey episodes.Key, f episodes.Fields) error {
	ep, err := episodes.FindByKey(oldKey)
	if err != nil {
		return err
	}
	newKey := f.Key()

	var moved []string
	if newKey != oldKey {
		oldPrefix := oldKey.Prefix() + "/"
		keys, err := o.objects.List(ctx, oldPrefix)
		if err != nil {
			return err
		}
		for _, k := range keys {
			dst := newKey.Prefix() + "/" + strings.TrimPrefix(k, oldPrefix)
			if err := o.objects.Copy(ctx, k, dst); err != nil {
				return err
			}
			moved = append(moved, k)
		}
		if ep.Complete {
			if err := o.objects.Copy(ctx, oldKey.ThumbnailKey(), newKey.ThumbnailKey()); err != nil {
				return err
			}
			moved = append(moved, oldKey.ThumbnailKey())
		}
		for _, k := range moved {
			if err := o.objects.Delete(ctx, k); err != nil {
				log.Warnf("delete old key %s: %v (continuing)", k, err)
			}
		}
	}

	thumbnailURL, manifestURL := ep.ThumbnailURL, ep.ManifestURL
	if ep.Complete {
		thumbnailURL = o.objects.URL(newKey.ThumbnailKey())
		manifestURL = o.objects.URL(newKey.ManifestKey())
	}
	if err := episodes.Rename(ep.ID, f, thumbnailURL, manifestURL); err != nil {
		return err
	}
	log.Infof("renamed episode %s -> %s (%d objects moved)", oldKey, newKey, len(moved))
	return nil
}

// stage writes the request body to path on the workspace filesystem.
func stage(path string, body io.Reader) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("stage %s: %w", path, err)
	}
	defer f.Close()
	if _, err := io.Copy(f, body); err != nil {
		return fmt.Errorf("stage %s: %w", path, err)
	}
	return nil
}

func videoExt(name string) string {
	if ext := filepath.Ext(name); ext != "" {
		return ext
	}
	return ".mp4"
}
