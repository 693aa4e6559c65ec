package publish

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"animestream/storage"
)

// Result describes where the published artifacts landed.
type Result struct {
	ManifestURL string
	SegmentURLs []string
}

// Publisher moves the encoder's output into object storage. Segments are
// renamed to stable zero-padded identifiers and uploaded in the order the
// playlist references them; the rewritten playlist goes up last, so a
// reader that can fetch the playlist can fetch every segment it names.
type Publisher struct {
	store storage.ObjectStore
}

func New(store storage.ObjectStore) *Publisher {
	return &Publisher{store: store}
}

// Publish reads the playlist at manifestPath, renames and uploads each
// referenced segment from outDir under keyPrefix, and uploads the rewritten
// playlist. Any individual upload failure aborts the whole operation.
func (p *Publisher) Publish(ctx context.Context, manifestPath, outDir, keyPrefix string) (Result, error) {
	raw, err := os.ReadFile(manifestPath)
	if err != nil {
		return Result{}, fmt.Errorf("read manifest: %w", err)
	}

	var res Result
	lines := strings.Split(string(raw), "\n")
	next := 0
	for i, line := range lines {
		ref := strings.TrimSpace(line)
		if !strings.HasSuffix(ref, ".ts") {
			continue // directive line, kept verbatim
		}

		// ids follow playlist order, which is the encoder's temporal
		// order, regardless of the original filenames
		name := fmt.Sprintf("%05d.ts", next)
		next++

		if err := os.Rename(filepath.Join(outDir, ref), filepath.Join(outDir, name)); err != nil {
			return Result{}, fmt.Errorf("rename segment %s: %w", ref, err)
		}
		data, err := os.ReadFile(filepath.Join(outDir, name))
		if err != nil {
			return Result{}, fmt.Errorf("read segment %s: %w", name, err)
		}

		key := keyPrefix + "/" + name
		if err := p.store.Upload(ctx, key, data); err != nil {
			return Result{}, fmt.Errorf("upload segment: %w", err)
		}

		lines[i] = name
		res.SegmentURLs = append(res.SegmentURLs, p.store.URL(key))
	}

	manifestKey := keyPrefix + "/index.m3u8"
	if err := p.store.Upload(ctx, manifestKey, []byte(strings.Join(lines, "\n"))); err != nil {
		return Result{}, fmt.Errorf("upload manifest: %w", err)
	}
	res.ManifestURL = p.store.URL(manifestKey)

	log.Infof("published %d segments and playlist under %s", next, keyPrefix)
	return res, nil
}
