package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/redditflow/internal/media"
	"github.com/maheshrc27/redditflow/internal/service"
	"github.com/maheshrc27/redditflow/internal/transfer"
)

const maxUploadSize = 20 << 20

type PostHandler struct {
	s        service.PostService
	uploader media.Uploader
}

func NewPostHandler(service service.PostService, uploader media.Uploader) *PostHandler {
	return &PostHandler{s: service, uploader: uploader}
}

type mediaError struct {
	Filename string `json:"filename"`
	Error    string `json:"error"`
}

// CreatePost publishes now, or schedules when scheduled_for is set. A
// multipart body carries the post as JSON in the "data" field and media in
// "files"; files that fail to upload are reported and the post goes out
// without them.
func (h *PostHandler) CreatePost(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var pc transfer.PostCreation
	var mediaErrors []mediaError

	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		form, err := c.MultipartForm()
		if err != nil {
			slog.Info(err.Error())
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Unable to parse form",
			})
		}
		if err := json.Unmarshal([]byte(c.FormValue("data")), &pc); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Unable to parse json",
			})
		}
		for _, fh := range form.File["files"] {
			url, err := h.upload(c, fh)
			if err != nil {
				mediaErrors = append(mediaErrors, mediaError{Filename: fh.Filename, Error: err.Error()})
				continue
			}
			pc.MediaURLs = append(pc.MediaURLs, url)
		}
	} else if err := c.BodyParser(&pc); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse json",
		})
	}

	if pc.ScheduledFor != nil {
		res, err := h.s.SchedulePost(c.Context(), userID, &pc)
		if err != nil {
			return sendError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"scheduled":    res,
			"media_errors": mediaErrors,
		})
	}

	results, err := h.s.CreatePost(c.Context(), userID, &pc)
	if err != nil {
		return sendError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"results":      results,
		"media_errors": mediaErrors,
	})
}

func (h *PostHandler) upload(c *fiber.Ctx, fh *multipart.FileHeader) (string, error) {
	if fh.Size > maxUploadSize {
		return "", fiber.NewError(fiber.StatusRequestEntityTooLarge, "file is too large")
	}
	f, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxUploadSize))
	if err != nil {
		return "", err
	}

	switch r := h.uploader.Upload(c.Context(), media.File{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(fiber.HeaderContentType),
		Data:        data,
	}).(type) {
	case media.Uploaded:
		return r.URL, nil
	case media.Failed:
		return "", r.Err
	}
	return "", media.ErrNoProviders
}

func (h *PostHandler) ListPosts(c *fiber.Ctx) error {
	posts, err := h.s.List(c.Context(), GetUserID(c))
	if err != nil {
		return sendError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(posts)
}

func (h *PostHandler) GetPost(c *fiber.Ctx) error {
	post, err := h.s.PostInfo(c.Context(), paramID(c, "id"), GetUserID(c))
	if err != nil {
		return sendError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(post)
}

func (h *PostHandler) RemovePost(c *fiber.Ctx) error {
	if err := h.s.Remove(c.Context(), GetUserID(c), paramID(c, "id")); err != nil {
		return sendError(c, err)
	}
	return c.SendStatus(fiber.StatusOK)
}
