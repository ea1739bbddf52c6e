package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"doccatalog/internal/http/middleware"
	"doccatalog/internal/intake"
	"doccatalog/internal/listing"
	"doccatalog/internal/model"
	"doccatalog/internal/repository"
	"doccatalog/internal/service"
	serviceMocks "doccatalog/internal/service/mocks"
	"doccatalog/internal/storage"
)

func decodeError(t *testing.T, resp *http.Response) errorPayload {
	t.Helper()
	var body errorPayload
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestHealthCheck(t *testing.T) {
	db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	app := fiber.New()
	app.Get("/health", HealthCheck(db))

	t.Run("healthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(nil)

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]string
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "healthy", body["status"])
	})

	t.Run("unhealthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(errors.New("db error"))

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		assert.Equal(t, "SERVICE_UNAVAILABLE", decodeError(t, resp).Error.Code)
	})
}

func TestLivenessProbe(t *testing.T) {
	app := fiber.New()
	app.Get("/healthz", LivenessProbe())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	resp, _ := app.Test(req)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestListDocuments(t *testing.T) {
	mockSvc := new(serviceMocks.MockCatalogService)
	app := fiber.New()
	app.Get("/documents", ListDocuments(mockSvc))

	t.Run("default order", func(t *testing.T) {
		docs := []model.Document{{ID: uuid.NewString(), Name: "test.pdf", Keywords: []string{}}}
		mockSvc.On("ListDocuments", mock.Anything, listing.FieldUploadDate, listing.Desc).Return(docs, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/documents", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result []model.Document
		json.NewDecoder(resp.Body).Decode(&result)
		require.Len(t, result, 1)
		assert.Equal(t, docs[0].ID, result[0].ID)
		mockSvc.AssertExpectations(t)
	})

	t.Run("explicit order", func(t *testing.T) {
		mockSvc.On("ListDocuments", mock.Anything, listing.FieldName, listing.Asc).Return([]model.Document{}, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/documents?sort=name&order=asc", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		body, _ := io.ReadAll(resp.Body)
		assert.JSONEq(t, `[]`, string(body))
		mockSvc.AssertExpectations(t)
	})

	t.Run("invalid sort", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/documents?sort=size", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_SORT", decodeError(t, resp).Error.Code)
	})

	t.Run("invalid order", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/documents?order=sideways", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_ORDER", decodeError(t, resp).Error.Code)
	})

	t.Run("storage unavailable", func(t *testing.T) {
		mockSvc.On("ListDocuments", mock.Anything, listing.FieldUploadDate, listing.Desc).
			Return(nil, repository.ErrStorageUnavailable).Once()

		req := httptest.NewRequest(http.MethodGet, "/documents", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		assert.Equal(t, "STORAGE_UNAVAILABLE", decodeError(t, resp).Error.Code)
		mockSvc.AssertExpectations(t)
	})
}

func TestRecentDocuments(t *testing.T) {
	mockSvc := new(serviceMocks.MockCatalogService)
	app := fiber.New()
	app.Get("/documents/recent", RecentDocuments(mockSvc))

	t.Run("default limit", func(t *testing.T) {
		mockSvc.On("RecentDocuments", mock.Anything, 0).Return([]model.Document{}, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/documents/recent", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("explicit limit", func(t *testing.T) {
		mockSvc.On("RecentDocuments", mock.Anything, 3).Return([]model.Document{}, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/documents/recent?limit=3", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	for _, q := range []string{"abc", "-1"} {
		t.Run("invalid limit "+q, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/documents/recent?limit="+q, nil)
			resp, _ := app.Test(req)

			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, "INVALID_LIMIT", decodeError(t, resp).Error.Code)
		})
	}
}

func multipartUpload(t *testing.T, fields map[string]string, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	if filename != "" {
		part, err := writer.CreateFormFile("file", filename)
		require.NoError(t, err)
		part.Write([]byte(content))
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestUploadDocument(t *testing.T) {
	mockSvc := new(serviceMocks.MockCatalogService)
	app := fiber.New()
	app.Post("/documents", UploadDocument(mockSvc))

	t.Run("success", func(t *testing.T) {
		body, ct := multipartUpload(t, map[string]string{
			"subject":     "Finance",
			"keywords":    "a, b ,,c",
			"description": "q1",
		}, "test.txt", "hello world")

		expectedDoc := &model.Document{ID: uuid.NewString(), Name: "test.txt", Keywords: []string{"a", "b", "c"}}
		mockSvc.On("Upload", mock.Anything, mock.MatchedBy(func(u intake.Upload) bool {
			return u.Filename == "test.txt" &&
				u.Subject == "Finance" &&
				u.Keywords == "a, b ,,c" &&
				u.Description == "q1" &&
				u.Size == 11 &&
				u.Body != nil
		})).Return(expectedDoc, nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/documents", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		var result model.Document
		json.NewDecoder(resp.Body).Decode(&result)
		assert.Equal(t, expectedDoc.ID, result.ID)
		mockSvc.AssertExpectations(t)
	})

	t.Run("no file", func(t *testing.T) {
		body, ct := multipartUpload(t, map[string]string{"subject": "Finance"}, "", "")
		mockSvc.On("Upload", mock.Anything, mock.MatchedBy(func(u intake.Upload) bool {
			return u.Body == nil && u.Subject == "Finance"
		})).Return(nil, intake.ErrFileRequired).Once()

		req := httptest.NewRequest(http.MethodPost, "/documents", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "FILE_REQUIRED", decodeError(t, resp).Error.Code)
		mockSvc.AssertExpectations(t)
	})

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "missing subject", err: intake.ErrSubjectRequired, wantStatus: http.StatusBadRequest, wantCode: "SUBJECT_REQUIRED"},
		{name: "too large", err: storage.ErrTooLarge, wantStatus: http.StatusRequestEntityTooLarge, wantCode: "FILE_TOO_LARGE"},
		{name: "duplicate id", err: repository.ErrDuplicateKey, wantStatus: http.StatusConflict, wantCode: "DUPLICATE_ID"},
		{name: "content key taken", err: fmt.Errorf("store upload: %w", storage.ErrExists), wantStatus: http.StatusConflict, wantCode: "DUPLICATE_ID"},
		{name: "missing name", err: intake.ErrNameRequired, wantStatus: http.StatusBadRequest, wantCode: "NAME_REQUIRED"},
		{name: "storage unavailable", err: repository.ErrStorageUnavailable, wantStatus: http.StatusServiceUnavailable, wantCode: "STORAGE_UNAVAILABLE"},
		{name: "unexpected", err: errors.New("upload failed"), wantStatus: http.StatusInternalServerError, wantCode: "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, ct := multipartUpload(t, map[string]string{"subject": "S"}, "test.txt", "hello")
			mockSvc.On("Upload", mock.Anything, mock.Anything).Return(nil, tt.err).Once()

			req := httptest.NewRequest(http.MethodPost, "/documents", body)
			req.Header.Set("Content-Type", ct)
			resp, _ := app.Test(req)

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantCode, decodeError(t, resp).Error.Code)
			mockSvc.AssertExpectations(t)
		})
	}
}

func TestGetDocument(t *testing.T) {
	mockSvc := new(serviceMocks.MockCatalogService)
	app := fiber.New()
	app.Get("/documents/:id", GetDocument(mockSvc))

	t.Run("success", func(t *testing.T) {
		id := uuid.NewString()
		expectedDoc := &model.Document{
			ID:         id,
			Name:       "test.txt",
			Keywords:   []string{},
			UploadDate: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		}
		mockSvc.On("GetDocument", mock.Anything, id).Return(expectedDoc, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/documents/"+id, nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result model.Document
		json.NewDecoder(resp.Body).Decode(&result)
		assert.Equal(t, id, result.ID)
		assert.True(t, expectedDoc.UploadDate.Equal(result.UploadDate))
		mockSvc.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		mockSvc.On("GetDocument", mock.Anything, "missing").Return(nil, service.ErrNotFound).Once()

		req := httptest.NewRequest(http.MethodGet, "/documents/missing", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "NOT_FOUND", decodeError(t, resp).Error.Code)
		mockSvc.AssertExpectations(t)
	})

	t.Run("service error", func(t *testing.T) {
		mockSvc.On("GetDocument", mock.Anything, "x").Return(nil, errors.New("db error")).Once()

		req := httptest.NewRequest(http.MethodGet, "/documents/x", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}

func TestDownloadDocument(t *testing.T) {
	mockSvc := new(serviceMocks.MockCatalogService)
	app := fiber.New()
	app.Get("/documents/:id/download", DownloadDocument(mockSvc))

	t.Run("current session", func(t *testing.T) {
		doc := &model.Document{ID: "a", Name: "notes.txt", Type: "text/plain"}
		mockSvc.On("OpenDocument", mock.Anything, "a").
			Return(io.NopCloser(strings.NewReader("meeting notes")), doc, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/documents/a/download", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "text/plain", resp.Header.Get("Content-Type"))
		assert.Contains(t, resp.Header.Get("Content-Disposition"), `filename="notes.txt"`)
		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, "meeting notes", string(body))
	})

	t.Run("stale handle", func(t *testing.T) {
		mockSvc.On("OpenDocument", mock.Anything, "old").Return(nil, nil, service.ErrBlobUnavailable).Once()

		req := httptest.NewRequest(http.MethodGet, "/documents/old/download", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusGone, resp.StatusCode)
		assert.Equal(t, "BLOB_EXPIRED", decodeError(t, resp).Error.Code)
	})

	mockSvc.AssertExpectations(t)
}

func TestShareDocument(t *testing.T) {
	mockSvc := new(serviceMocks.MockCatalogService)
	app := fiber.New()
	app.Get("/documents/:id/share", ShareDocument(mockSvc, "https://knowledge-system.example/"))

	t.Run("success", func(t *testing.T) {
		mockSvc.On("GetDocument", mock.Anything, "abc").Return(&model.Document{ID: "abc"}, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/documents/abc/share", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var link ShareLink
		json.NewDecoder(resp.Body).Decode(&link)
		assert.Equal(t, "https://knowledge-system.example/share/abc", link.URL)
	})

	t.Run("not found", func(t *testing.T) {
		mockSvc.On("GetDocument", mock.Anything, "zzz").Return(nil, service.ErrNotFound).Once()

		req := httptest.NewRequest(http.MethodGet, "/documents/zzz/share", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestDeleteDocument(t *testing.T) {
	mockSvc := new(serviceMocks.MockCatalogService)
	app := fiber.New()
	app.Delete("/documents/:id", DeleteDocument(mockSvc))

	t.Run("success", func(t *testing.T) {
		id := uuid.NewString()
		mockSvc.On("DeleteDocument", mock.Anything, id).Return(nil).Once()

		req := httptest.NewRequest(http.MethodDelete, "/documents/"+id, nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("storage unavailable", func(t *testing.T) {
		mockSvc.On("DeleteDocument", mock.Anything, "a").Return(repository.ErrStorageUnavailable).Once()

		req := httptest.NewRequest(http.MethodDelete, "/documents/a", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		assert.Equal(t, "STORAGE_UNAVAILABLE", decodeError(t, resp).Error.Code)
		mockSvc.AssertExpectations(t)
	})
}

func TestRouting(t *testing.T) {
	app := fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler(),
	})
	app.Use(middleware.RequestID())

	mockSvc := new(serviceMocks.MockCatalogService)
	RegisterRoutes(app, nil, mockSvc, "https://knowledge-system.example")

	t.Run("not found route", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/non-existent", nil)
		req.Header.Set(middleware.RequestIDHeader, "rid-1")
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		res := decodeError(t, resp)
		assert.Equal(t, "NOT_FOUND", res.Error.Code)
		assert.Equal(t, "rid-1", res.RequestID)
	})

	t.Run("method not allowed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/healthz", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
		assert.Equal(t, "METHOD_NOT_ALLOWED", decodeError(t, resp).Error.Code)
	})

	t.Run("recent is not an id", func(t *testing.T) {
		mockSvc.On("RecentDocuments", mock.Anything, 0).Return([]model.Document{}, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/documents/recent", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}
