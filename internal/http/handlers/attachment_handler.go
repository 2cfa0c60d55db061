package handlers

import (
	"os"
	"path/filepath"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"gravado/internal/domain"
	applog "gravado/internal/log"
	"gravado/internal/repos"
)

const maxUploadBytes = 10 << 20

// AttachmentHandler stores quote artwork files. Files upload before
// the quote exists and get claimed by quote creation via file_ids.
type AttachmentHandler struct {
	Attachments *repos.AttachmentRepo
	Dir         string
}

func (h *AttachmentHandler) Upload(c *fiber.Ctx) error {
	u := currentUser(c)
	fh, err := c.FormFile("file")
	if err != nil {
		return fail(c, domain.Invalid("file", "is required"))
	}
	if fh.Size > maxUploadBytes {
		return fail(c, domain.Invalid("file", "must be at most 10 MiB"))
	}

	dir := h.Dir
	if dir == "" {
		dir = "uploads"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fail(c, domain.Internal(err))
	}
	path := filepath.Join(dir, uuid.NewString()+filepath.Ext(fh.Filename))
	if err := c.SaveFile(fh, path); err != nil {
		return fail(c, domain.Internal(err))
	}

	id, err := h.Attachments.Create(u.ID, fh.Filename, path)
	if err != nil {
		return fail(c, domain.Internal(err))
	}
	applog.Audit(c, "file.uploaded", map[string]any{"id": id, "name": fh.Filename})
	return created(c, fiber.Map{"id": id, "file_name": fh.Filename})
}
