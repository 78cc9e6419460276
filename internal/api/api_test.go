package api

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"asset-tracker-backend/config"
	"asset-tracker-backend/internal/db/dbtest"
	"asset-tracker-backend/internal/events"
	"asset-tracker-backend/internal/item"
	"asset-tracker-backend/internal/mw"
	"asset-tracker-backend/internal/notification"
	"asset-tracker-backend/internal/photo"
	"asset-tracker-backend/internal/realtime"
	"asset-tracker-backend/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type harness struct {
	router   *gin.Engine
	store    store.Store
	items    *item.Service
	registry *realtime.Registry
	handler  *Handler
}

func testConfig() *config.Config {
	return &config.Config{
		Server:  config.ServerConfig{UserHeader: "X-User-Id", CacheTTLSeconds: 30},
		Uploads: config.UploadsConfig{MaxBytes: 4 << 20, MaxFormMemory: 1 << 20},
	}
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	log := zap.NewNop()

	s := store.NewGormStore(dbtest.OpenTest(t))
	registry := realtime.NewRegistry(log)
	fanout := notification.NewService(s, registry, nil, log)
	items := item.NewService(s, fanout, events.Noop{}, log)
	photos, err := photo.NewStorage(t.TempDir(), "/uploads", 64)
	require.NoError(t, err)

	h := NewHandler(Deps{
		Store:    s,
		Items:    items,
		Inbox:    notification.NewReadState(s),
		Photos:   photos,
		Registry: registry,
		Log:      log,
	})
	router := NewRouter(h, testConfig(), mw.NewIPRateLimiter(rate.Inf, 1), log)

	return &harness{router: router, store: s, items: items, registry: registry, handler: h}
}

// do sends a request as user (empty for anonymous) and waits for any
// announcement it started.
func (h *harness) do(t *testing.T, method, path, user string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if user != "" {
		req.Header.Set("X-User-Id", user)
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	h.items.Wait()
	return w
}

func (h *harness) doJSON(t *testing.T, method, path, user, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	return h.do(t, method, path, user, r, "application/json")
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

// multipartBody builds a form with the given fields and PNG files under photos.
func multipartBody(t *testing.T, fields map[string][]string, photos int) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mpw := multipart.NewWriter(&buf)
	for name, values := range fields {
		for _, v := range values {
			require.NoError(t, mpw.WriteField(name, v))
		}
	}
	for i := 0; i < photos; i++ {
		fw, err := mpw.CreateFormFile("photos", "photo.png")
		require.NoError(t, err)
		require.NoError(t, png.Encode(fw, testImage()))
	}
	require.NoError(t, mpw.Close())
	return &buf, mpw.FormDataContentType()
}

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 120, 80))
	for x := 0; x < 120; x++ {
		for y := 0; y < 80; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 90, A: 255})
		}
	}
	return img
}
