package episodes

import "fmt"

// Key is the natural identity of an episode and the root of its object
// storage layout:
//
//	{series}/season-{n}/episode-{m}/00000.ts ...
//	{series}/season-{n}/episode-{m}/index.m3u8
//	{series}/thumbnails/season-{n}-episode-{m}.jpg
type Key struct {
	Series  string
	Season  int
	Episode int
}

// Prefix is the storage key prefix every segment and playlist of this
// episode lives under.
func (k Key) Prefix() string {
	return fmt.Sprintf("%s/season-%d/episode-%d", k.Series, k.Season, k.Episode)
}

func (k Key) ManifestKey() string {
	return k.Prefix() + "/index.m3u8"
}

// SegmentKey returns the storage key for the n-th segment, zero-padded so
// keys sort in playback order.
func (k Key) SegmentKey(n int) string {
	return fmt.Sprintf("%s/%05d.ts", k.Prefix(), n)
}

func (k Key) ThumbnailKey() string {
	return fmt.Sprintf("%s/thumbnails/season-%d-episode-%d.jpg", k.Series, k.Season, k.Episode)
}

func (k Key) String() string {
	return fmt.Sprintf("%s s%de%d", k.Series, k.Season, k.Episode)
}
