package handler

import (
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/onnyvergiean/basic-banking-system/internal/core/domain"
)

var (
	imageMimeTypes    = []string{"image/jpeg", "image/png", "image/jpg"}
	videoMimeTypes    = []string{"video/mp4", "video/mkv", "video/avi", "video/x-matroska"}
	documentMimeTypes = []string{"application/pdf", "application/vnd.ms-excel"}
)

// MediaHandler stores uploads on local disk under public/{images,videos,files}
// and generates QR codes.
type MediaHandler struct {
	MediaDir string
}

func (h *MediaHandler) UploadImage(c *fiber.Ctx) error {
	return h.upload(c, "image", "images", imageMimeTypes, "image_url")
}

func (h *MediaHandler) UploadVideo(c *fiber.Ctx) error {
	return h.upload(c, "video", "videos", videoMimeTypes, "video_url")
}

func (h *MediaHandler) UploadDocument(c *fiber.Ctx) error {
	return h.upload(c, "doc", "files", documentMimeTypes, "document_url")
}

func (h *MediaHandler) upload(c *fiber.Ctx, field, subdir string, allowed []string, key string) error {
	file, err := c.FormFile(field)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, fmt.Sprintf("Bad Request: %s file is required", field))
	}

	publicURL, err := saveUpload(c, file, h.MediaDir, subdir, allowed)
	if err != nil {
		return failFromErr(c, err)
	}

	return success(c, fiber.StatusOK, "File uploaded successfully", fiber.Map{
		key: c.BaseURL() + publicURL,
	})
}

// GenerateQRCode answers a PNG encoding of the posted URL.
func (h *MediaHandler) GenerateQRCode(c *fiber.Ctx) error {
	var req struct {
		URL string `json:"url"`
	}
	if err := c.BodyParser(&req); err != nil || req.URL == "" {
		return fail(c, fiber.StatusBadRequest, "Bad Request: url is required")
	}

	png, err := qrcode.Encode(req.URL, qrcode.High, 256)
	if err != nil {
		return failFromErr(c, err)
	}

	c.Set(fiber.HeaderContentType, "image/png")
	return c.Send(png)
}

// saveUpload validates the declared mime type and writes the file under
// mediaDir/subdir with a fresh uuid name. It returns the public URL path.
func saveUpload(c *fiber.Ctx, file *multipart.FileHeader, mediaDir, subdir string, allowed []string) (string, error) {
	contentType := file.Header.Get("Content-Type")
	ok := false
	for _, m := range allowed {
		if contentType == m {
			ok = true
			break
		}
	}
	if !ok {
		return "", domain.InvalidArgument(fmt.Sprintf("Only %s are allowed", strings.Join(allowed, ", ")))
	}

	name := uuid.New().String() + filepath.Ext(file.Filename)
	if err := c.SaveFile(file, filepath.Join(mediaDir, subdir, name)); err != nil {
		return "", domain.StorageFailure(err)
	}
	return "/" + subdir + "/" + name, nil
}
