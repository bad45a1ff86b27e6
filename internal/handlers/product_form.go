package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// productInput carries the fields of a create or update request. A nil field
// was not sent.
type productInput struct {
	Name         *string  `json:"name"`
	Price        *float64 `json:"price"`
	Image        *string  `json:"image"`
	Brand        *string  `json:"brand"`
	Category     *string  `json:"category"`
	Description  *string  `json:"description"`
	CountInStock *int     `json:"countInStock"`
}

func (in productInput) validate() error {
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return errors.New("name required")
	}
	if in.Price != nil && *in.Price < 0 {
		return errors.New("price must be zero or greater")
	}
	if in.CountInStock != nil && *in.CountInStock < 0 {
		return errors.New("countInStock must be zero or greater")
	}
	return nil
}

// parseProductInput reads a JSON body or, for multipart requests, form
// fields plus an optional "image" file stored through storage.
func parseProductInput(c *gin.Context, storage *UploadStorage) (productInput, error) {
	if !strings.HasPrefix(c.GetHeader("Content-Type"), "multipart/form-data") {
		var input productInput
		if err := c.ShouldBindJSON(&input); err != nil {
			return productInput{}, err
		}
		return input, input.validate()
	}

	if err := c.Request.ParseMultipartForm(32 << 20); err != nil {
		log.Println("[PRODUCT] [ERROR] multipart parse failed:", err)
		return productInput{}, err
	}

	var input productInput
	for field, dst := range map[string]**string{
		"name":        &input.Name,
		"brand":       &input.Brand,
		"category":    &input.Category,
		"description": &input.Description,
		"image":       &input.Image,
	} {
		if value, ok := c.GetPostForm(field); ok {
			trimmed := strings.TrimSpace(value)
			*dst = &trimmed
		}
	}

	if value, ok := c.GetPostForm("price"); ok {
		parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return productInput{}, errors.New("invalid price")
		}
		input.Price = &parsed
	}

	if value, ok := c.GetPostForm("countInStock"); ok {
		parsed, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return productInput{}, errors.New("invalid countInStock")
		}
		input.CountInStock = &parsed
	}

	file, err := c.FormFile("image")
	switch {
	case err == nil:
		imagePath, err := storage.saveImage(file)
		if err != nil {
			return productInput{}, err
		}
		input.Image = &imagePath
	case !errors.Is(err, http.ErrMissingFile):
		return productInput{}, err
	}

	return input, input.validate()
}
