package handler

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"doccatalog/internal/intake"
	"doccatalog/internal/listing"
	"doccatalog/internal/service"
)

// ShareLink is the response of the share endpoint.
type ShareLink struct {
	URL string `json:"url"`
}

// ListDocuments returns the whole catalog in display order.
//
// @Summary      List documents
// @Tags         documents
// @Produce      json
// @Param        sort   query  string  false  "name, uploadDate, subject or keywords"  default(uploadDate)
// @Param        order  query  string  false  "asc or desc"  default(desc)
// @Success      200  {array}   model.Document
// @Failure      400  {object}  errorPayload
// @Failure      503  {object}  errorPayload
// @Router       /documents [get]
func ListDocuments(svc service.CatalogService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		field, err := listing.ParseField(c.Query("sort"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_SORT", "invalid sort field")
		}
		dir, err := listing.ParseDirection(c.Query("order"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ORDER", "invalid sort order")
		}

		docs, err := svc.ListDocuments(c.UserContext(), field, dir)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(docs)
	}
}

// RecentDocuments returns the newest uploads.
//
// @Summary      Recent uploads
// @Tags         documents
// @Produce      json
// @Param        limit  query  int  false  "number of entries"  default(5)
// @Success      200  {array}   model.Document
// @Failure      400  {object}  errorPayload
// @Router       /documents/recent [get]
func RecentDocuments(svc service.CatalogService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit := 0
		if s := c.Query("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 0 {
				return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
			}
			limit = n
		}

		docs, err := svc.RecentDocuments(c.UserContext(), limit)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(docs)
	}
}

// UploadDocument adds a file to the catalog (multipart/form-data).
//
// @Summary      Upload a document
// @Tags         documents
// @Accept       multipart/form-data
// @Produce      json
// @Param        file         formData  file    true   "document"
// @Param        subject      formData  string  true   "subject"
// @Param        keywords     formData  string  false  "comma separated keywords"
// @Param        description  formData  string  false  "description"
// @Success      201  {object}  model.Document
// @Failure      400  {object}  errorPayload
// @Failure      413  {object}  errorPayload
// @Router       /documents [post]
func UploadDocument(svc service.CatalogService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		u := intake.Upload{
			Subject:     c.FormValue("subject"),
			Keywords:    c.FormValue("keywords"),
			Description: c.FormValue("description"),
			Size:        -1,
		}

		// a missing file is reported by intake
		if fh, err := c.FormFile("file"); err == nil {
			file, err := fh.Open()
			if err != nil {
				return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
			}
			defer file.Close()

			u.Filename = fh.Filename
			u.ContentType = fh.Header.Get("Content-Type")
			u.Size = fh.Size
			u.Body = file
		}

		doc, err := svc.Upload(c.UserContext(), u)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(doc)
	}
}

// GetDocument returns the details of one entry.
//
// @Summary      Document details
// @Tags         documents
// @Produce      json
// @Param        id   path      string  true  "document id"
// @Success      200  {object}  model.Document
// @Failure      404  {object}  errorPayload
// @Router       /documents/{id} [get]
func GetDocument(svc service.CatalogService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		doc, err := svc.GetDocument(c.UserContext(), c.Params("id"))
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(doc)
	}
}

// DownloadDocument streams the content uploaded in the current session.
//
// @Summary      Download a document
// @Tags         documents
// @Produce      octet-stream
// @Param        id   path  string  true  "document id"
// @Success      200
// @Failure      404  {object}  errorPayload
// @Failure      410  {object}  errorPayload
// @Router       /documents/{id}/download [get]
func DownloadDocument(svc service.CatalogService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rc, doc, err := svc.OpenDocument(c.UserContext(), c.Params("id"))
		if err != nil {
			return writeServiceError(c, err)
		}

		c.Attachment(doc.Name)
		ct := doc.Type
		if ct == "" {
			ct = fiber.MIMEOctetStream
		}
		c.Set(fiber.HeaderContentType, ct)
		// fasthttp closes rc once the body is written
		return c.SendStream(rc)
	}
}

// ShareDocument returns a share link for an entry.
//
// @Summary      Share link
// @Tags         documents
// @Produce      json
// @Param        id   path      string  true  "document id"
// @Success      200  {object}  ShareLink
// @Failure      404  {object}  errorPayload
// @Router       /documents/{id}/share [get]
func ShareDocument(svc service.CatalogService, baseURL string) fiber.Handler {
	base := strings.TrimRight(baseURL, "/")
	return func(c *fiber.Ctx) error {
		doc, err := svc.GetDocument(c.UserContext(), c.Params("id"))
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(ShareLink{URL: base + "/share/" + doc.ID})
	}
}

// DeleteDocument removes an entry. Deleting an unknown id succeeds.
//
// @Summary      Delete a document
// @Tags         documents
// @Param        id   path  string  true  "document id"
// @Success      204
// @Failure      503  {object}  errorPayload
// @Router       /documents/{id} [delete]
func DeleteDocument(svc service.CatalogService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := svc.DeleteDocument(c.UserContext(), c.Params("id")); err != nil {
			return writeServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
