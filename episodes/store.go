package episodes

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"animestream/database"
)

// ErrNotFound reports that no row matches the requested episode key.
var ErrNotFound = errors.New("no such episode")

// Fields are the client-supplied attributes of an episode.
type Fields struct {
	Series      string
	Season      int
	Episode     int
	Title       string
	Description string
	Categories  Categories
}

func (f Fields) Key() Key {
	return Key{Series: f.Series, Season: f.Season, Episode: f.Episode}
}

// CreatePending inserts a new row with Complete = false. The row must exist
// before any object storage write so that a crash mid-pipeline leaves a
// visible incomplete row rather than a complete row pointing at nothing.
func CreatePending(f Fields) (*Episode, error) {
	db := database.Get()
	ep := &Episode{
		Series:        f.Series,
		SeasonNumber:  f.Season,
		EpisodeNumber: f.Episode,
		Title:         f.Title,
		Description:   f.Description,
		Categories:    f.Categories,
	}
	if err := db.Create(ep).Error; err != nil {
		return nil, fmt.Errorf("create episode row: %w", err)
	}
	log.Debugln("created pending episode", ep.ID, "for", ep.Key())
	return ep, nil
}

func SetDuration(id uint, seconds float64) error {
	db := database.Get()
	return db.Model(&Episode{}).Where("id = ?", id).Update("duration", seconds).Error
}

// MarkComplete records the final artifact URLs and flips the row to
// complete. Callers must only do this after every referenced object has
// been uploaded.
func MarkComplete(id uint, thumbnailURL, manifestURL string) error {
	db := database.Get()
	result := db.Model(&Episode{}).Where("id = ?", id).Updates(map[string]interface{}{
		"complete":      true,
		"thumbnail_url": thumbnailURL,
		"manifest_url":  manifestURL,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	log.Debugln("episode", id, "complete")
	return nil
}

func FindByKey(k Key) (*Episode, error) {
	db := database.Get()
	var ep Episode
	err := db.Where("series = ? AND season_number = ? AND episode_number = ?",
		k.Series, k.Season, k.Episode).First(&ep).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ep, nil
}

// ListComplete returns every row whose artifacts are fully published.
// Pending rows are never surfaced to readers.
func ListComplete() ([]Episode, error) {
	db := database.Get()
	var eps []Episode
	err := db.Where("complete = ?", true).
		Order("series, season_number, episode_number").
		Find(&eps).Error
	return eps, err
}

// BySeries returns the complete rows of one series, matched
// case-insensitively.
func BySeries(series string) ([]Episode, error) {
	db := database.Get()
	var eps []Episode
	err := db.Where("complete = ? AND LOWER(series) = LOWER(?)", true, series).
		Order("season_number, episode_number").
		Find(&eps).Error
	return eps, err
}

// Rename rewrites the identity fields and artifact URLs of one row in
// place. The caller is responsible for having moved the underlying objects
// first.
func Rename(id uint, f Fields, thumbnailURL, manifestURL string) error {
	db := database.Get()
	result := db.Model(&Episode{}).Where("id = ?", id).Updates(map[string]interface{}{
		"series":         f.Series,
		"season_number":  f.Season,
		"episode_number": f.Episode,
		"title":          f.Title,
		"description":    f.Description,
		"categories":     f.Categories,
		"thumbnail_url":  thumbnailURL,
		"manifest_url":   manifestURL,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the row for good.
func Delete(id uint) error {
	db := database.Get()
	result := db.Unscoped().Delete(&Episode{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
