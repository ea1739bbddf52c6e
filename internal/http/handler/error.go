package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"doccatalog/internal/http/middleware"
	"doccatalog/internal/intake"
	"doccatalog/internal/logger"
	"doccatalog/internal/repository"
	"doccatalog/internal/service"
	"doccatalog/internal/storage"
)

// errorPayload defines the standardized error response body.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// requestIDFromCtx extracts request_id previously stored by middleware.RequestID.
func requestIDFromCtx(c *fiber.Ctx) string {
	if v := c.Locals(middleware.RequestIDLocalKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// writeError writes a standardized JSON error response without leaking internal errors.
func writeError(c *fiber.Ctx, status int, code, message string) error {
	res := errorPayload{
		RequestID: requestIDFromCtx(c),
		Error: errorEnvelope{
			Code:    code,
			Message: message,
		},
	}
	return c.Status(status).JSON(res)
}

// writeServiceError translates a catalog error into a status and a stable code.
func writeServiceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrIDRequired):
		return writeError(c, fiber.StatusBadRequest, "ID_REQUIRED", "id is required")
	case errors.Is(err, service.ErrNotFound):
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "document not found")
	case errors.Is(err, service.ErrBlobUnavailable):
		return writeError(c, fiber.StatusGone, "BLOB_EXPIRED", "document content is no longer available")
	case errors.Is(err, intake.ErrFileRequired):
		return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
	case errors.Is(err, intake.ErrSubjectRequired):
		return writeError(c, fiber.StatusBadRequest, "SUBJECT_REQUIRED", "subject is required")
	case errors.Is(err, intake.ErrNameRequired):
		return writeError(c, fiber.StatusBadRequest, "NAME_REQUIRED", "name is required")
	case errors.Is(err, intake.ErrValidation):
		return writeError(c, fiber.StatusBadRequest, "VALIDATION_FAILED", "invalid upload")
	case errors.Is(err, storage.ErrTooLarge):
		return writeError(c, fiber.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "file is too large")
	case errors.Is(err, repository.ErrDuplicateKey), errors.Is(err, storage.ErrExists):
		return writeError(c, fiber.StatusConflict, "DUPLICATE_ID", "document id already exists")
	case errors.Is(err, repository.ErrStorageUnavailable):
		logger.FromContext(c.UserContext()).Error("storage_unavailable", zap.Error(err))
		return writeError(c, fiber.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", "local storage is unavailable")
	default:
		logger.FromContext(c.UserContext()).Error("internal_error", zap.Error(err))
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}

// ErrorHandler returns a Fiber global error handler that standardizes error responses.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		var e *fiber.Error
		if errors.As(err, &e) {
			status = e.Code
		}

		switch status {
		case fiber.StatusBadRequest:
			return writeError(c, status, "BAD_REQUEST", "bad request")
		case fiber.StatusNotFound:
			return writeError(c, status, "NOT_FOUND", "resource not found")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, status, "METHOD_NOT_ALLOWED", "method not allowed")
		case fiber.StatusRequestEntityTooLarge:
			return writeError(c, status, "FILE_TOO_LARGE", "request body is too large")
		default:
			logger.FromContext(c.UserContext()).Error("unhandled_error", zap.Error(err))
			return writeError(c, status, "INTERNAL_ERROR", "internal server error")
		}
	}
}
