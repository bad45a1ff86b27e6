package handlers

import (
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	uploadURLPrefix = "/uploads/"
	maxImageSize    = 5 << 20
)

var (
	errImagesOnly    = errors.New("Images only! (jpeg,jpg,png,gif)")
	errImageTooLarge = errors.New("image file too large (max 5MB)")

	allowedImageTypes = []string{"jpeg", "jpg", "png", "gif"}
)

func isAllowedImageType(value string) bool {
	value = strings.ToLower(value)
	for _, t := range allowedImageTypes {
		if strings.Contains(value, t) {
			return true
		}
	}
	return false
}

// UploadStorage keeps uploaded images on local disk under root. Stored files
// are addressed by their public path, /uploads/<name>.
type UploadStorage struct {
	root string
}

func NewUploadStorage(root string) *UploadStorage {
	return &UploadStorage{root: root}
}

func (s *UploadStorage) saveImage(file *multipart.FileHeader) (string, error) {
	extension := strings.ToLower(filepath.Ext(file.Filename))
	if extension == "" || !isAllowedImageType(extension) || !isAllowedImageType(file.Header.Get("Content-Type")) {
		return "", errImagesOnly
	}
	if file.Size > maxImageSize {
		return "", errImageTooLarge
	}

	if err := os.MkdirAll(s.root, 0o755); err != nil {
		log.Printf("[UPLOAD] saveImage: failed to create directory %s: %v", s.root, err)
		return "", err
	}

	filename := "image-" + primitive.NewObjectID().Hex() + extension
	fullPath := filepath.Join(s.root, filename)

	out, err := os.Create(fullPath)
	if err != nil {
		log.Printf("[UPLOAD] saveImage: failed to create file %s: %v", fullPath, err)
		return "", err
	}
	defer out.Close()

	in, err := file.Open()
	if err != nil {
		log.Printf("[UPLOAD] saveImage: failed to open upload %s: %v", file.Filename, err)
		return "", err
	}
	defer in.Close()

	if _, err := io.Copy(out, in); err != nil {
		log.Printf("[UPLOAD] saveImage: failed to save file %s: %v", fullPath, err)
		return "", err
	}

	log.Printf("[UPLOAD] saveImage: stored %s", fullPath)
	return uploadURLPrefix + filename, nil
}

// deleteUpload removes a previously stored image. Paths outside the upload
// root are refused and missing files are not an error.
func (s *UploadStorage) deleteUpload(publicPath string) error {
	trimmed := strings.TrimSpace(publicPath)
	if trimmed == "" {
		return nil
	}

	cleanRel := path.Clean("/" + strings.TrimPrefix(trimmed, "/"))
	if !strings.HasPrefix(cleanRel, uploadURLPrefix) {
		return fmt.Errorf("refusing to delete non-upload path: %s", publicPath)
	}
	cleanRel = strings.TrimPrefix(cleanRel, uploadURLPrefix)

	cleanBase := filepath.Clean(s.root)
	cleanTarget := filepath.Clean(filepath.Join(cleanBase, filepath.FromSlash(cleanRel)))
	if !strings.HasPrefix(cleanTarget, cleanBase+string(os.PathSeparator)) {
		return fmt.Errorf("refusing to delete path outside upload root: %s", publicPath)
	}

	if err := os.Remove(cleanTarget); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return nil
}
