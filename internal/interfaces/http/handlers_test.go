package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/garyjia/expense-refund-pipeline/internal/assembly"
	"github.com/garyjia/expense-refund-pipeline/internal/domain/entity"
	"github.com/garyjia/expense-refund-pipeline/internal/extraction"
	"github.com/garyjia/expense-refund-pipeline/internal/pipeline"
	"github.com/garyjia/expense-refund-pipeline/internal/refund"
	"github.com/garyjia/expense-refund-pipeline/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubExtractor struct{}

func (e *stubExtractor) Extract(ctx context.Context, file *entity.UploadedFile) (*entity.RawFields, error) {
	return &entity.RawFields{
		Store:      "Store for " + file.Name,
		TotalPrice: "10.00",
		Concept:    entity.ConceptMeals,
		Date:       "2025-03-15",
	}, nil
}

type stubResolver struct{}

func (r *stubResolver) Resolve(ctx context.Context, code string) string { return "1" }

type stubSubmitter struct{}

func (s *stubSubmitter) Submit(ctx context.Context, item *entity.LineItem, receipt *entity.UploadedFile) (string, error) {
	return "rf-1", nil
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	logger := zap.NewNop()

	service := pipeline.NewService(
		session.NewManager(time.Hour, logger),
		extraction.NewOrchestrator(&stubExtractor{}, time.Second, 0, logger),
		assembly.NewAssembler(&stubResolver{}, logger),
		refund.NewDispatcher(&stubSubmitter{}, logger),
		nil,
		nil,
		nil,
		nil,
		logger,
	)

	server := NewServer(ServerConfig{Host: "127.0.0.1", Port: 0}, service, logger)
	return server.Router()
}

func doJSON(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHealthCheck(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(router, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)
}

func TestCreateSession_RequiresOwnerEmail(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(router, http.MethodPost, "/api/v1/sessions", `{}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetSession_UnknownID(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(router, http.MethodGet, "/api/v1/sessions/missing", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	resp := decodeResponse(t, w)
	assert.False(t, resp.Success)
}

func TestUploadFiles_RequiresMultipart(t *testing.T) {
	router := newTestRouter(t)
	id := createSession(t, router)

	w := doJSON(router, http.MethodPost, "/api/v1/sessions/"+id+"/files", `{}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func createSession(t *testing.T, router *gin.Engine) string {
	t.Helper()
	w := doJSON(router, http.MethodPost, "/api/v1/sessions", `{"ownerEmail":"user@corp.test"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Data session.Snapshot `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Data.ID
}

func uploadReceipts(t *testing.T, router *gin.Engine, id string, names ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for _, name := range names {
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename="%s"`, name))
		header.Set("Content-Type", "application/pdf")
		part, err := writer.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write([]byte("%PDF-1.4 receipt"))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+id+"/files", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestWizard_EndToEnd(t *testing.T) {
	router := newTestRouter(t)
	id := createSession(t, router)

	w := uploadReceipts(t, router, id, "lunch.pdf", "taxi.pdf")
	require.Equal(t, http.StatusAccepted, w.Code)

	// Wait for the background extraction run to drain
	require.Eventually(t, func() bool {
		w := doJSON(router, http.MethodGet, "/api/v1/sessions/"+id, "")
		var resp struct {
			Data session.Snapshot `json:"data"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			return false
		}
		return resp.Data.Progress.Current == resp.Data.Progress.Total
	}, 2*time.Second, 10*time.Millisecond)

	w = doJSON(router, http.MethodPost, "/api/v1/sessions/"+id+"/review", "")
	require.Equal(t, http.StatusOK, w.Code)

	// Edit an item during review
	w = doJSON(router, http.MethodPut, "/api/v1/sessions/"+id+"/items/0", `{"title":"Team lunch","amount":"42.50"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, http.MethodPost, "/api/v1/sessions/"+id+"/confirm", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, http.MethodPost, "/api/v1/sessions/"+id+"/submit", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool                   `json:"success"`
		Data    pipeline.SubmitResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 2, resp.Data.Succeeded)
	assert.Equal(t, 0, resp.Data.Failed)

	// A fully submitted batch resets the wizard to upload
	w = doJSON(router, http.MethodGet, "/api/v1/sessions/"+id, "")
	var after struct {
		Data session.Snapshot `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &after))
	assert.Equal(t, "UPLOAD", after.Data.State)
	assert.Empty(t, after.Data.Items)
}

func TestReviewBeforeExtractionFinishes(t *testing.T) {
	router := newTestRouter(t)
	id := createSession(t, router)

	// No files yet: the guard rejects the transition
	w := doJSON(router, http.MethodPost, "/api/v1/sessions/"+id+"/review", "")

	assert.Equal(t, http.StatusConflict, w.Code)
}
