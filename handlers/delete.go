package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"animestream/episodes"
)

// DeleteEpisode removes the metadata row and every stored object of one
// episode. 404 if the key matches nothing; in that case no object-storage
// call is made.
func DeleteEpisode(c echo.Context) error {
	key, err := keyFromPath(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "season and episode must be numbers"})
	}

	err = orch.Delete(c.Request().Context(), key)
	if errors.Is(err, episodes.ErrNotFound) {
		return c.JSON(http.StatusNotFound, errorResponse{Error: "no such episode"})
	}
	if err != nil {
		log.Errorf("delete %s: %v", key, err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to delete episode"})
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "episode deleted"})
}
