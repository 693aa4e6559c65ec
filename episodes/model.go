package episodes

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"gorm.io/gorm"
)

// Categories is an ordered list of labels, stored as a JSON array in a
// single text column.
type Categories []string

func (c Categories) Value() (driver.Value, error) {
	if len(c) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (c *Categories) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*c = nil
		return nil
	case []byte:
		return json.Unmarshal(v, c)
	case string:
		return json.Unmarshal([]byte(v), c)
	default:
		return fmt.Errorf("cannot scan %T into Categories", value)
	}
}

// Episode is one row per video asset. The {Series, SeasonNumber,
// EpisodeNumber} triple is the natural key used for lookup, rename and
// delete. A row is created with Complete = false before any object is
// written, and flipped to true only once the thumbnail, playlist and every
// segment are durably stored. Listings only ever surface complete rows.
type Episode struct {
	gorm.Model
	Series        string `gorm:"index:idx_episode_key,unique"`
	SeasonNumber  int    `gorm:"index:idx_episode_key,unique"`
	EpisodeNumber int    `gorm:"index:idx_episode_key,unique"`
	Title         string
	Description   string
	Categories    Categories `gorm:"type:text"`
	ThumbnailURL  string
	ManifestURL   string
	Duration      float64 // seconds, probed from the source file
	Complete      bool
}

func (e *Episode) Key() Key {
	return Key{Series: e.Series, Season: e.SeasonNumber, Episode: e.EpisodeNumber}
}
