package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"animestream/episodes"
)

type renameRequest struct {
	Series      string   `json:"series"`
	Season      *int     `json:"season"`
	Episode     *int     `json:"episode"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Categories  []string `json:"categories"`
}

// RenameEpisode rewrites an episode's identity. The path names the old key,
// the JSON body carries the complete set of new field values. Stored
// objects are moved to the new keys before the row is updated.
func RenameEpisode(c echo.Context) error {
	oldKey, err := keyFromPath(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "season and episode must be numbers"})
	}

	var req renameRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "malformed request body"})
	}
	if strings.TrimSpace(req.Series) == "" || strings.TrimSpace(req.Title) == "" ||
		req.Season == nil || req.Episode == nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "series, title, season and episode are required"})
	}

	fields := episodes.Fields{
		Series:      strings.TrimSpace(req.Series),
		Season:      *req.Season,
		Episode:     *req.Episode,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Categories:  req.Categories,
	}

	err = orch.Rename(c.Request().Context(), oldKey, fields)
	if errors.Is(err, episodes.ErrNotFound) {
		return c.JSON(http.StatusNotFound, errorResponse{Error: "no such episode"})
	}
	if err != nil {
		log.Errorf("rename %s: %v", oldKey, err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to rename episode"})
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "episode updated"})
}
