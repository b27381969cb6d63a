package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, repo Repository, store *fakeStore) *chi.Mux {
	t.Helper()
	svc := newTestService(repo, store)
	// owner 42 is the only listing that exists
	h := NewHandler(svc, "house_for_sale", func(_ context.Context, id int64) (bool, error) {
		return id == 42, nil
	})

	r := chi.NewRouter()
	r.Route("/houses-for-sale/{id}", func(r chi.Router) {
		r.Mount("/images", h.Routes())
	})
	return r
}

func multipartBody(t *testing.T, filename string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if filename != "" {
		fw, err := w.CreateFormFile("image", filename)
		require.NoError(t, err)
		_, err = io.Copy(fw, bytes.NewReader([]byte("fake image bytes")))
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func doUpload(t *testing.T, r http.Handler, filename string, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, filename, fields)
	req := httptest.NewRequest(http.MethodPost, "/houses-for-sale/42/images/", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestUploadCreatesAssetWithSecureURL(t *testing.T) {
	repo := newMemRepo()
	router := newTestRouter(t, repo, newFakeStore())

	rec := doUpload(t, router, "front.jpg", map[string]string{"caption": "front view", "is_main": "true"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var env struct {
		Success bool          `json:"success"`
		Data    AssetResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.True(t, env.Success)
	assert.True(t, env.Data.IsPrimary)
	require.NotNil(t, env.Data.Caption)
	assert.Equal(t, "front view", *env.Data.Caption)
	assert.Contains(t, env.Data.SecureURL, "https://store.test/house_for_sale/42/")
	assert.Contains(t, env.Data.SecureURL, "expires=")
}

func TestUploadWithoutExtensionIsBadRequest(t *testing.T) {
	store := newFakeStore()
	router := newTestRouter(t, newMemRepo(), store)

	rec := doUpload(t, router, "photo", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, store.uploadCalls)
}

func TestUploadMalformedBooleanIsBadRequest(t *testing.T) {
	store := newFakeStore()
	router := newTestRouter(t, newMemRepo(), store)

	// "SI" style values are rejected, not silently coerced
	rec := doUpload(t, router, "a.jpg", map[string]string{"is_main": "SI"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, store.uploadCalls)
}

func TestUploadMissingFileIsBadRequest(t *testing.T) {
	router := newTestRouter(t, newMemRepo(), newFakeStore())

	rec := doUpload(t, router, "", map[string]string{"caption": "no file"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadToUnknownListingIs404(t *testing.T) {
	router := newTestRouter(t, newMemRepo(), newFakeStore())

	body, contentType := multipartBody(t, "a.jpg", nil)
	req := httptest.NewRequest(http.MethodPost, "/houses-for-sale/999/images/", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListReturnsOrderedAssets(t *testing.T) {
	repo := newMemRepo()
	router := newTestRouter(t, repo, newFakeStore())

	rec := doUpload(t, router, "a.jpg", map[string]string{"order": "1"})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = doUpload(t, router, "b.jpg", map[string]string{"order": "0"})
	require.Equal(t, http.StatusCreated, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/houses-for-sale/42/images/?ttl=120", nil)
	out := httptest.NewRecorder()
	router.ServeHTTP(out, req)
	require.Equal(t, http.StatusOK, out.Code)

	var env struct {
		Data []AssetResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(out.Body.Bytes(), &env))
	require.Len(t, env.Data, 2)
	assert.Equal(t, 0, env.Data[0].Order)
	assert.Equal(t, 1, env.Data[1].Order)
	for _, a := range env.Data {
		assert.NotEmpty(t, a.SecureURL)
	}
}

func TestListSignFailureOmitsURLButSucceeds(t *testing.T) {
	repo := newMemRepo()
	store := newFakeStore()
	router := newTestRouter(t, repo, store)

	rec := doUpload(t, router, "a.jpg", nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	store.signErr = fmt.Errorf("credentials expired")
	req := httptest.NewRequest(http.MethodGet, "/houses-for-sale/42/images/", nil)
	out := httptest.NewRecorder()
	router.ServeHTTP(out, req)

	// read path never fails on a signing error
	require.Equal(t, http.StatusOK, out.Code)
	var env struct {
		Data []AssetResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(out.Body.Bytes(), &env))
	require.Len(t, env.Data, 1)
	assert.Empty(t, env.Data[0].SecureURL)
}

func TestSetPrimaryAndDeleteEndpoints(t *testing.T) {
	repo := newMemRepo()
	router := newTestRouter(t, repo, newFakeStore())

	rec := doUpload(t, router, "a.jpg", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var env struct {
		Data AssetResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	id := env.Data.ID

	req := httptest.NewRequest(http.MethodPatch, fmt.Sprintf("/houses-for-sale/42/images/%d/primary", id), nil)
	out := httptest.NewRecorder()
	router.ServeHTTP(out, req)
	assert.Equal(t, http.StatusOK, out.Code)

	// unknown image id
	req = httptest.NewRequest(http.MethodPatch, "/houses-for-sale/42/images/9999/primary", nil)
	out = httptest.NewRecorder()
	router.ServeHTTP(out, req)
	assert.Equal(t, http.StatusNotFound, out.Code)

	req = httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/houses-for-sale/42/images/%d", id), nil)
	out = httptest.NewRecorder()
	router.ServeHTTP(out, req)
	assert.Equal(t, http.StatusOK, out.Code)

	req = httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/houses-for-sale/42/images/%d", id), nil)
	out = httptest.NewRecorder()
	router.ServeHTTP(out, req)
	assert.Equal(t, http.StatusNotFound, out.Code)
}
