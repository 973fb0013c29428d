package documents_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/gin-gonic/gin"

	"docflow-backend/internal/bootstrap"
	"docflow-backend/internal/shared/config"
)

func buildApp(t *testing.T) *bootstrap.App {
	t.Helper()
	gin.SetMode(gin.TestMode)

	app, err := bootstrap.Build(config.Config{
		Env:              "test",
		UploadDir:        t.TempDir(),
		AllowedMimeTypes: []string{"application/pdf", "text/plain"},
		MaxUploadBytes:   1 << 20,
	})
	if err != nil {
		t.Fatalf("bootstrap build: %v", err)
	}
	t.Cleanup(app.Close)
	return app
}

func registerUser(t *testing.T, router *gin.Engine, email string) string {
	t.Helper()

	body, _ := json.Marshal(gin.H{"email": email, "password": "secret1"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("register %s: expected 201, got %d: %s", email, resp.Code, resp.Body.String())
	}

	var out struct {
		AccessToken string `json:"accessToken"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode register response: %v", err)
	}
	return out.AccessToken
}

func uploadDocument(t *testing.T, router *gin.Engine, token, title, fileName, contentType, content string) *httptest.ResponseRecorder {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if err := writer.WriteField("title", title); err != nil {
		t.Fatalf("write title field: %v", err)
	}

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+fileName+`"`)
	header.Set("Content-Type", contentType)
	fileWriter, err := writer.CreatePart(header)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fileWriter.Write([]byte(content)); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func authedRequest(t *testing.T, router *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestDocumentsUploadListDelete(t *testing.T) {
	app := buildApp(t)
	router := app.Router
	token := registerUser(t, router, "uploader@example.com")

	resp := uploadDocument(t, router, token, "Quarterly report", "report.txt", "text/plain", "hello world")
	if resp.Code != http.StatusCreated {
		t.Fatalf("upload: expected 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var created struct {
		ID       string         `json:"id"`
		Title    string         `json:"title"`
		Status   string         `json:"status"`
		Metadata map[string]any `json:"metadata"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode upload response: %v", err)
	}
	if created.ID == "" || created.Title != "Quarterly report" {
		t.Fatalf("unexpected upload response: %+v", created)
	}
	if created.Status != "pending" {
		t.Fatalf("expected pending status, got %q", created.Status)
	}
	if created.Metadata["originalName"] != "report.txt" {
		t.Fatalf("expected originalName metadata, got %v", created.Metadata)
	}

	respList := authedRequest(t, router, http.MethodGet, "/api/v1/documents", token)
	if respList.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", respList.Code)
	}
	var list struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
		Meta struct {
			Total int `json:"total"`
			Page  int `json:"page"`
		} `json:"meta"`
	}
	if err := json.NewDecoder(respList.Body).Decode(&list); err != nil {
		t.Fatalf("decode list response: %v", err)
	}
	if list.Meta.Total != 1 || len(list.Data) != 1 || list.Data[0].ID != created.ID {
		t.Fatalf("unexpected list response: %+v", list)
	}

	respDelete := authedRequest(t, router, http.MethodDelete, "/api/v1/documents/"+created.ID, token)
	if respDelete.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d: %s", respDelete.Code, respDelete.Body.String())
	}
	var deleted struct {
		ID      string `json:"id"`
		Deleted bool   `json:"deleted"`
	}
	if err := json.NewDecoder(respDelete.Body).Decode(&deleted); err != nil {
		t.Fatalf("decode delete response: %v", err)
	}
	if deleted.ID != created.ID || !deleted.Deleted {
		t.Fatalf("unexpected delete response: %+v", deleted)
	}

	respGone := authedRequest(t, router, http.MethodGet, "/api/v1/documents/"+created.ID, token)
	if respGone.Code != http.StatusNotFound {
		t.Fatalf("get after delete: expected 404, got %d", respGone.Code)
	}
}

func TestDocumentsUploadRejectsUnsupportedType(t *testing.T) {
	app := buildApp(t)
	router := app.Router
	token := registerUser(t, router, "typed@example.com")

	resp := uploadDocument(t, router, token, "Archive", "bundle.zip", "application/zip", "PK")
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestDocumentsCrossUserAccessForbidden(t *testing.T) {
	app := buildApp(t)
	router := app.Router
	owner := registerUser(t, router, "owner@example.com")
	other := registerUser(t, router, "other@example.com")

	resp := uploadDocument(t, router, owner, "Private notes", "notes.txt", "text/plain", "keep out")
	if resp.Code != http.StatusCreated {
		t.Fatalf("upload: expected 201, got %d", resp.Code)
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode upload response: %v", err)
	}

	respGet := authedRequest(t, router, http.MethodGet, "/api/v1/documents/"+created.ID, other)
	if respGet.Code != http.StatusForbidden {
		t.Fatalf("cross-user get: expected 403, got %d", respGet.Code)
	}

	// Plain users only see their own documents in listings.
	respList := authedRequest(t, router, http.MethodGet, "/api/v1/documents", other)
	if respList.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", respList.Code)
	}
	var list struct {
		Meta struct {
			Total int `json:"total"`
		} `json:"meta"`
	}
	if err := json.NewDecoder(respList.Body).Decode(&list); err != nil {
		t.Fatalf("decode list response: %v", err)
	}
	if list.Meta.Total != 0 {
		t.Fatalf("expected empty listing for other user, got total %d", list.Meta.Total)
	}
}
