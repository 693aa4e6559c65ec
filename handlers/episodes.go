package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"animestream/episodes"
)

type episodeView struct {
	Series       string   `json:"series"`
	Season       int      `json:"season"`
	Episode      int      `json:"episode"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Categories   []string `json:"categories"`
	ThumbnailURL string   `json:"thumbnailUrl"`
	ManifestURL  string   `json:"manifestUrl"`
	Duration     float64  `json:"durationSeconds"`
}

func toViews(eps []episodes.Episode) []episodeView {
	views := make([]episodeView, 0, len(eps))
	for _, ep := range eps {
		views = append(views, episodeView{
			Series:       ep.Series,
			Season:       ep.SeasonNumber,
			Episode:      ep.EpisodeNumber,
			Title:        ep.Title,
			Description:  ep.Description,
			Categories:   ep.Categories,
			ThumbnailURL: ep.ThumbnailURL,
			ManifestURL:  ep.ManifestURL,
			Duration:     ep.Duration,
		})
	}
	return views
}

// ListEpisodes returns every fully published episode.
func ListEpisodes(c echo.Context) error {
	eps, err := episodes.ListComplete()
	if err != nil {
		log.Errorln(err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to list episodes"})
	}
	return c.JSON(http.StatusOK, toViews(eps))
}

// EpisodesBySeries returns the published episodes of one series,
// matched case-insensitively.
func EpisodesBySeries(c echo.Context) error {
	eps, err := episodes.BySeries(c.Param("series"))
	if err != nil {
		log.Errorln(err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to list episodes"})
	}
	return c.JSON(http.StatusOK, toViews(eps))
}

// keyFromPath extracts the {series, season, episode} natural key from the
// route parameters.
func keyFromPath(c echo.Context) (episodes.Key, error) {
	season, err := strconv.Atoi(c.Param("season"))
	if err != nil {
		return episodes.Key{}, err
	}
	episode, err := strconv.Atoi(c.Param("episode"))
	if err != nil {
		return episodes.Key{}, err
	}
	return episodes.Key{Series: c.Param("series"), Season: season, Episode: episode}, nil
}
