package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// UploadImage stores the single "image" form file and returns its public
// path.
func UploadImage(storage *UploadStorage) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/uploads"
		defer handlePanic(c, route)

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImageSize+1<<20)

		file, err := c.FormFile("image")
		if err != nil {
			if errors.Is(err, http.ErrMissingFile) {
				respondWithError(c, http.StatusBadRequest, route, "No image file uploaded.")
				return
			}
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		imagePath, err := storage.saveImage(file)
		if errors.Is(err, errImagesOnly) || errors.Is(err, errImageTooLarge) {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "could not store image")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message": "Image uploaded successfully.",
			"image":   imagePath,
		})
	}
}
