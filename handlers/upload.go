package handlers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"animestream/episodes"
	"animestream/pipeline"
)

var errMissingFields = errors.New("series, title, season and episode are required")

type uploadResponse struct {
	Message      string `json:"message"`
	ManifestURL  string `json:"manifestUrl"`
	ThumbnailURL string `json:"thumbnailUrl"`
}

// Upload accepts a multipart form with the episode fields plus thumbnail
// and video file parts, and runs the whole pipeline before answering.
// Validation problems are 400s with no side effects; any pipeline failure
// is a 500 with a generic body, the detail only in the server log.
func Upload(c echo.Context) error {
	fields, err := uploadFields(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}

	thumbFile, err := c.FormFile("thumbnail")
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "thumbnail and video files are required"})
	}
	videoFile, err := c.FormFile("video")
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "thumbnail and video files are required"})
	}

	thumb, err := readPart(thumbFile)
	if err != nil {
		log.Errorf("read thumbnail part: %v", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to process upload"})
	}

	video, err := videoFile.Open()
	if err != nil {
		log.Errorf("open video part: %v", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to process upload"})
	}
	defer video.Close()

	ep, err := orch.Upload(c.Request().Context(), pipeline.UploadRequest{
		Fields:    fields,
		Thumbnail: thumb,
		Video:     video,
		VideoName: videoFile.Filename,
	})
	if err != nil {
		log.Errorf("upload %s: %v", fields.Key(), err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to process upload"})
	}

	return c.JSON(http.StatusOK, uploadResponse{
		Message:      "upload complete",
		ManifestURL:  ep.ManifestURL,
		ThumbnailURL: ep.ThumbnailURL,
	})
}

func uploadFields(c echo.Context) (episodes.Fields, error) {
	f := episodes.Fields{
		Series:      strings.TrimSpace(c.FormValue("series")),
		Title:       strings.TrimSpace(c.FormValue("title")),
		Description: c.FormValue("description"),
	}
	if f.Series == "" || f.Title == "" {
		return episodes.Fields{}, errMissingFields
	}

	var err error
	f.Season, err = strconv.Atoi(c.FormValue("season"))
	if err != nil {
		return episodes.Fields{}, errMissingFields
	}
	f.Episode, err = strconv.Atoi(c.FormValue("episode"))
	if err != nil {
		return episodes.Fields{}, errMissingFields
	}

	if form, err := c.MultipartForm(); err == nil {
		f.Categories = form.Value["category"]
	}
	return f, nil
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
