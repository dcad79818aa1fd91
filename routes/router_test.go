package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"listings-cms/internal/auth"
	"listings-cms/internal/cache"
	"listings-cms/internal/config"
	"listings-cms/internal/store/storetest"
	"listings-cms/middleware"
	"listings-cms/models"
	"listings-cms/services"
	"listings-cms/utils"
)

const (
	testAdmin    = "admin"
	testPassword = "correct horse battery"
)

type memoryAdmins struct {
	mu    sync.Mutex
	users map[string]*models.AdminUser
}

func (m *memoryAdmins) FindByUsername(_ context.Context, username string) (*models.AdminUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[username], nil
}

func (m *memoryAdmins) Insert(_ context.Context, user *models.AdminUser) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.Username] = user
	return nil
}

type memoryTokens struct {
	mu   sync.Mutex
	keys map[string]bool
}

func (m *memoryTokens) Set(_ context.Context, key, _ string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[key] = true
	return nil
}

func (m *memoryTokens) Exists(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.keys[key], nil
}

func (m *memoryTokens) Del(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, key)
	return nil
}

type testServer struct {
	router    *gin.Engine
	cfg       *config.Config
	profiles  *storetest.MemoryRepository[models.Profile]
	extras    *storetest.MemoryRepository[models.ExtraService]
	video     *storetest.MemorySingleton[models.VideoSettings]
	audit     *services.AuditLogger
	mongoDown error
}

func newTestServer(t *testing.T, cacheTTL time.Duration) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		GinMode:            gin.TestMode,
		CORSOrigins:        []string{"*"},
		UploadsDir:         t.TempDir(),
		MaxVideoSize:       1024,
		DefaultPhoneNumber: "917878787878",
		MaxRequestSize:     1 << 20,
		RateLimitReqs:      100,
		RateLimitWindow:    60,
	}

	ts := &testServer{
		cfg:      cfg,
		profiles: storetest.NewMemoryRepository[models.Profile](),
		extras:   storetest.NewMemoryRepository[models.ExtraService](),
		video:    storetest.NewMemorySingleton[models.VideoSettings](),
	}

	opts := services.ListingOptions{Cache: cache.NewMemoryCache(0), TTL: cacheTTL, StaleTTL: time.Hour}
	profiles := services.NewListingService[models.Profile]("profiles", ts.profiles, opts)
	highProfiles := services.NewListingService[models.HighProfileCallGirl]("high_profile_call_girls", storetest.NewMemoryRepository[models.HighProfileCallGirl](), opts)
	svcs := services.NewListingService[models.Service]("services", storetest.NewMemoryRepository[models.Service](), opts)
	extras := services.NewListingService[models.ExtraService]("extra_services", ts.extras, opts)
	finals := services.NewListingService[models.FinalCallGirl]("final_call_girls", storetest.NewMemoryRepository[models.FinalCallGirl](), opts)

	manager, err := auth.NewManager("0123456789abcdef0123456789abcdef", time.Hour, &memoryTokens{keys: map[string]bool{}})
	require.NoError(t, err)
	admin, err := services.NewAdminService(&memoryAdmins{users: map[string]*models.AdminUser{}}, manager, bcrypt.MinCost)
	require.NoError(t, err)
	_, err = admin.CreateAdmin(context.Background(), testAdmin, testPassword)
	require.NoError(t, err)

	ts.audit = services.NewAuditLogger(storetest.NewMemoryAuditStore(), 64)
	ts.audit.Start()
	t.Cleanup(ts.audit.Close)

	ping := func(context.Context) error { return ts.mongoDown }

	ts.router = NewRouter(Dependencies{
		Config:         cfg,
		Profiles:       profiles,
		HighProfiles:   highProfiles,
		Services:       svcs,
		ExtraServices:  extras,
		FinalCallGirls: finals,
		Video: services.NewVideoService(ts.video, services.VideoOptions{
			UploadsDir:   cfg.UploadsDir,
			MaxSize:      cfg.MaxVideoSize,
			DefaultPhone: cfg.DefaultPhoneNumber,
		}),
		Admin:     admin,
		Export:    services.NewExportService(services.ProfilesSheet(profiles), services.ExtraServicesSheet(extras)),
		Audit:     ts.audit,
		MongoPing: ping,
		Checks:    map[string]PingFunc{"mongo": ping},
	})
	return ts
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func (ts *testServer) jsonRequest(method, path, token string, body any) *httptest.ResponseRecorder {
	var r io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return ts.do(req)
}

func (ts *testServer) login(t *testing.T) string {
	t.Helper()
	w := ts.jsonRequest(http.MethodPost, "/api/admin/login", "", models.LoginRequest{Username: testAdmin, Password: testPassword})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp models.LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

var profilePayload = map[string]any{
	"heading":       "A",
	"description":   "d",
	"location":      "Jaipur",
	"contactNumber": "123",
	"images":        []string{"http://x/1.png"},
}

func TestCreateProfileThenGet(t *testing.T) {
	ts := newTestServer(t, time.Minute)
	token := ts.login(t)

	w := ts.jsonRequest(http.MethodPost, "/api/profiles", token, profilePayload)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decodeBody[models.Profile](t, w)
	require.False(t, created.ID.IsZero())
	assert.False(t, created.CreatedAt.IsZero())

	raw := decodeBody[map[string]any](t, w)
	assert.Contains(t, raw, "_id")

	w = ts.jsonRequest(http.MethodGet, "/api/profiles/"+created.ID.Hex(), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decodeBody[models.Profile](t, w)
	assert.Equal(t, "A", got.Heading)
	assert.Equal(t, "d", got.Description)
	assert.Equal(t, "Jaipur", got.Location)
	assert.Equal(t, "123", got.ContactNumber)
	assert.Equal(t, []string{"http://x/1.png"}, got.Images)
}

func TestWriteEndpointsRequireSession(t *testing.T) {
	ts := newTestServer(t, time.Minute)
	id := "64b7f0c2a1b2c3d4e5f60718"

	cases := []struct{ method, path string }{
		{http.MethodPost, "/api/profiles"},
		{http.MethodPut, "/api/profiles/" + id},
		{http.MethodDelete, "/api/profiles/" + id},
		{http.MethodPost, "/api/high-profile-call-girls"},
		{http.MethodPost, "/api/services"},
		{http.MethodDelete, "/api/extra-services/" + id},
		{http.MethodPut, "/api/final-call-girls/" + id},
		{http.MethodPost, "/api/video"},
		{http.MethodGet, "/api/admin/export"},
		{http.MethodPost, "/api/admin/logout"},
	}
	for _, tc := range cases {
		w := ts.jsonRequest(tc.method, tc.path, "", profilePayload)
		assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s", tc.method, tc.path)

		w = ts.jsonRequest(tc.method, tc.path, "forged.token.value", profilePayload)
		assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s with bad token", tc.method, tc.path)
	}
	assert.Zero(t, ts.profiles.Len())
}

func TestMalformedIDsAreRejectedBeforeLookup(t *testing.T) {
	ts := newTestServer(t, time.Minute)
	token := ts.login(t)

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		w := ts.jsonRequest(method, "/api/profiles/not-an-id", token, map[string]any{"heading": "B"})
		require.Equal(t, http.StatusBadRequest, w.Code, method)
		body := decodeBody[utils.ErrorResponse](t, w)
		assert.Equal(t, "invalid_id", body.ErrorCode)
		assert.Equal(t, "Invalid profile ID", body.Message)
	}
	assert.Zero(t, ts.profiles.Calls["find_one"])
	assert.Zero(t, ts.profiles.Calls["update"])
	assert.Zero(t, ts.profiles.Calls["delete"])
}

func TestUnknownIDsReturnNotFound(t *testing.T) {
	ts := newTestServer(t, time.Minute)
	token := ts.login(t)
	path := "/api/profiles/64b7f0c2a1b2c3d4e5f60718"

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		w := ts.jsonRequest(method, path, token, map[string]any{"heading": "B"})
		require.Equal(t, http.StatusNotFound, w.Code, method)
		body := decodeBody[utils.ErrorResponse](t, w)
		assert.Equal(t, "not_found", body.ErrorCode)
		assert.Equal(t, "Profile not found", body.Message)
	}
}

func TestCreateValidation(t *testing.T) {
	ts := newTestServer(t, time.Minute)
	token := ts.login(t)

	w := ts.jsonRequest(http.MethodPost, "/api/profiles", token, map[string]any{"heading": "only heading"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_input", decodeBody[utils.ErrorResponse](t, w).ErrorCode)

	w = ts.jsonRequest(http.MethodPost, "/api/extra-services", token, map[string]any{
		"name": "n", "rate": "1", "contact": "c", "category": "gold",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.jsonRequest(http.MethodPost, "/api/services", token, map[string]any{
		"name": "n", "service": "s", "duration": "1h", "price": -1,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.jsonRequest(http.MethodPost, "/api/services", token, map[string]any{
		"name": "n", "service": "s", "duration": "1h", "price": 0, "unknown": true,
	})
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Zero(t, ts.profiles.Len())
}

func TestUpdateProfile(t *testing.T) {
	ts := newTestServer(t, time.Minute)
	token := ts.login(t)

	created := decodeBody[models.Profile](t, ts.jsonRequest(http.MethodPost, "/api/profiles", token, profilePayload))
	path := "/api/profiles/" + created.ID.Hex()

	w := ts.jsonRequest(http.MethodPut, path, token, map[string]any{"heading": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code, "blanking a required field")

	w = ts.jsonRequest(http.MethodPut, path, token, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code, "empty patch")

	w = ts.jsonRequest(http.MethodPut, path, token, map[string]any{"location": "Udaipur", "images": []string{}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decodeBody[models.Profile](t, w)
	assert.Equal(t, "Udaipur", updated.Location)
	assert.Equal(t, "A", updated.Heading)
	assert.Empty(t, updated.Images)
}

func TestDeleteProfile(t *testing.T) {
	ts := newTestServer(t, time.Minute)
	token := ts.login(t)

	created := decodeBody[models.Profile](t, ts.jsonRequest(http.MethodPost, "/api/profiles", token, profilePayload))
	path := "/api/profiles/" + created.ID.Hex()

	w := ts.jsonRequest(http.MethodDelete, path, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Profile deleted successfully", decodeBody[models.MessageResponse](t, w).Message)

	w = ts.jsonRequest(http.MethodDelete, path, token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteMessagesPerResource(t *testing.T) {
	ts := newTestServer(t, time.Minute)
	token := ts.login(t)

	w := ts.jsonRequest(http.MethodPost, "/api/high-profile-call-girls", token, profilePayload)
	require.Equal(t, http.StatusCreated, w.Code)
	created := decodeBody[models.HighProfileCallGirl](t, w)

	w = ts.jsonRequest(http.MethodDelete, "/api/high-profile-call-girls/"+created.ID.Hex(), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "High profile call girl deleted successfully", decodeBody[models.MessageResponse](t, w).Message)
}

func TestListNewestFirstWithCacheHeader(t *testing.T) {
	ts := newTestServer(t, time.Minute)
	token := ts.login(t)

	for _, heading := range []string{"first", "second", "third"} {
		payload := map[string]any{"heading": heading, "description": "d", "location": "l", "contactNumber": "1"}
		require.Equal(t, http.StatusCreated, ts.jsonRequest(http.MethodPost, "/api/profiles", token, payload).Code)
	}

	w := ts.jsonRequest(http.MethodGet, "/api/profiles", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
	docs := decodeBody[[]models.Profile](t, w)
	require.Len(t, docs, 3)
	assert.Equal(t, "third", docs[0].Heading)
	assert.Equal(t, "first", docs[2].Heading)

	w = ts.jsonRequest(http.MethodGet, "/api/profiles", "", nil)
	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))
	assert.Len(t, decodeBody[[]models.Profile](t, w), 3)
}

func TestEmptyListIsArray(t *testing.T) {
	ts := newTestServer(t, time.Minute)

	w := ts.jsonRequest(http.MethodGet, "/api/final-call-girls", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestListServesStaleSnapshotWhenStoreFails(t *testing.T) {
	ts := newTestServer(t, 0)
	token := ts.login(t)
	require.Equal(t, http.StatusCreated, ts.jsonRequest(http.MethodPost, "/api/profiles", token, profilePayload).Code)

	w := ts.jsonRequest(http.MethodGet, "/api/profiles", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))

	ts.profiles.FailWith(errors.New("server selection timeout"))
	w = ts.jsonRequest(http.MethodGet, "/api/profiles", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "STALE", w.Header().Get("X-Cache"))
	assert.Len(t, decodeBody[[]models.Profile](t, w), 1)
}

func TestListFailureWithoutSnapshot(t *testing.T) {
	ts := newTestServer(t, time.Minute)
	ts.profiles.FailWith(errors.New("server selection timeout"))

	w := ts.jsonRequest(http.MethodGet, "/api/profiles", "", nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	body := decodeBody[utils.ErrorResponse](t, w)
	assert.Equal(t, "Error fetching profiles", body.Message)
	assert.NotContains(t, w.Body.String(), "server selection timeout")
}

func TestExtraServicesCategoryFilter(t *testing.T) {
	ts := newTestServer(t, time.Minute)
	token := ts.login(t)

	for _, cat := range []string{"standard", "vip", "vip"} {
		w := ts.jsonRequest(http.MethodPost, "/api/extra-services", token, map[string]any{
			"name": "n", "rate": "1", "contact": "c", "category": cat,
		})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := ts.jsonRequest(http.MethodGet, "/api/extra-services?category=vip", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	docs := decodeBody[[]models.ExtraService](t, w)
	require.Len(t, docs, 2)
	for _, d := range docs {
		assert.Equal(t, "vip", d.Category)
	}

	w = ts.jsonRequest(http.MethodGet, "/api/extra-services", "", nil)
	assert.Len(t, decodeBody[[]models.ExtraService](t, w), 3)

	w = ts.jsonRequest(http.MethodGet, "/api/extra-services?category=gold", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetVideoDefaults(t *testing.T) {
	ts := newTestServer(t, time.Minute)

	w := ts.jsonRequest(http.MethodGet, "/api/video", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody[map[string]any](t, w)
	assert.Equal(t, true, body["success"])
	data := body["data"].(map[string]any)
	assert.Equal(t, "917878787878", data["phoneNumber"])
	assert.Equal(t, "", data["videoUrl"])
	assert.Contains(t, data, "updatedAt")
	assert.NotContains(t, data, "_id")
}

func TestGetVideoStoreFailure(t *testing.T) {
	ts := newTestServer(t, time.Minute)
	ts.video.FailWith(errors.New("not primary"))

	w := ts.jsonRequest(http.MethodGet, "/api/video", "", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.False(t, ts.video.Exists())
}

func videoRequest(t *testing.T, token, contentType string, content []byte, phone string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if phone != "" {
		require.NoError(t, mw.WriteField("phoneNumber", phone))
	}
	if content != nil {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", `form-data; name="video"; filename="clip"`)
		h.Set("Content-Type", contentType)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/video", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestUploadVideo(t *testing.T) {
	ts := newTestServer(t, time.Minute)
	token := ts.login(t)

	w := ts.do(videoRequest(t, token, "video/mp4", []byte("mp4 data"), "919999999999"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decodeBody[models.VideoSettingsResponse](t, w)
	require.NotNil(t, resp.Data)
	assert.True(t, strings.HasPrefix(resp.Data.VideoURL, "/uploads/video-"))
	assert.True(t, strings.HasSuffix(resp.Data.VideoURL, ".mp4"))
	assert.Equal(t, "919999999999", resp.Data.PhoneNumber)

	w = ts.jsonRequest(http.MethodGet, resp.Data.VideoURL, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "mp4 data", w.Body.String())
}

func TestUploadVideoRejections(t *testing.T) {
	ts := newTestServer(t, time.Minute)
	token := ts.login(t)

	cases := []struct {
		name        string
		contentType string
		content     []byte
		phone       string
		message     string
	}{
		{"no fields", "", nil, "", "Either video file or phone number is required"},
		{"bad type", "video/quicktime", []byte("mov"), "", "Invalid file type. Only MP4, WebM, and OGG videos are allowed."},
		{"too large", "video/webm", bytes.Repeat([]byte("x"), 2048), "911111111111", "File size too large. Maximum size is 1KB."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := ts.do(videoRequest(t, token, tc.contentType, tc.content, tc.phone))
			require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.Equal(t, tc.message, decodeBody[utils.ErrorResponse](t, w).Message)

			w = ts.jsonRequest(http.MethodGet, "/api/video", "", nil)
			data := decodeBody[models.VideoSettingsResponse](t, w).Data
			assert.Equal(t, "", data.VideoURL)
			assert.Equal(t, "917878787878", data.PhoneNumber)
		})
	}
}

func TestUploadVideoOverRequestLimitIsFileTooLarge(t *testing.T) {
	ts := newTestServer(t, time.Minute)
	token := ts.login(t)
	content := bytes.Repeat([]byte("x"), 3<<20)

	declared := videoRequest(t, token, "video/mp4", content, "")
	require.Greater(t, declared.ContentLength, ts.cfg.MaxRequestSize)

	chunked := videoRequest(t, token, "video/mp4", content, "")
	chunked.ContentLength = -1

	for name, req := range map[string]*http.Request{"declared length": declared, "unknown length": chunked} {
		t.Run(name, func(t *testing.T) {
			w := ts.do(req)
			require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			body := decodeBody[utils.ErrorResponse](t, w)
			assert.Equal(t, "File size too large. Maximum size is 1KB.", body.Message)
			assert.False(t, ts.video.Exists())
		})
	}
}

func TestGlobalBodyLimitStillAppliesElsewhere(t *testing.T) {
	ts := newTestServer(t, time.Minute)
	token := ts.login(t)

	payload := map[string]any{
		"heading":       strings.Repeat("h", 2<<20),
		"description":   "d",
		"location":      "Jaipur",
		"contactNumber": "123",
	}
	w := ts.jsonRequest(http.MethodPost, "/api/profiles", token, payload)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "50MB", formatSize(50<<20))
	assert.Equal(t, "1.5MB", formatSize(3<<19))
	assert.Equal(t, "1KB", formatSize(1024))
	assert.Equal(t, "1.5KB", formatSize(1536))
	assert.Equal(t, "100 bytes", formatSize(100))
}

func TestSessionLifecycle(t *testing.T) {
	ts := newTestServer(t, time.Minute)

	w := ts.jsonRequest(http.MethodGet, "/api/admin/session", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decodeBody[models.SessionStatus](t, w).Authenticated)

	w = ts.jsonRequest(http.MethodPost, "/api/admin/login", "", models.LoginRequest{Username: testAdmin, Password: testPassword})
	require.Equal(t, http.StatusOK, w.Code)
	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.SessionCookie {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/session", nil)
	req.AddCookie(cookie)
	w = ts.do(req)
	status := decodeBody[models.SessionStatus](t, w)
	assert.True(t, status.Authenticated)
	assert.Equal(t, testAdmin, status.Username)
	require.NotNil(t, status.ExpiresAt)

	req = httptest.NewRequest(http.MethodPost, "/api/admin/logout", nil)
	req.AddCookie(cookie)
	require.Equal(t, http.StatusOK, ts.do(req).Code)

	req = httptest.NewRequest(http.MethodGet, "/api/admin/session", nil)
	req.AddCookie(cookie)
	assert.False(t, decodeBody[models.SessionStatus](t, ts.do(req)).Authenticated)

	req = httptest.NewRequest(http.MethodDelete, "/api/profiles/64b7f0c2a1b2c3d4e5f60718", nil)
	req.AddCookie(cookie)
	assert.Equal(t, http.StatusUnauthorized, ts.do(req).Code)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	ts := newTestServer(t, time.Minute)

	w := ts.jsonRequest(http.MethodPost, "/api/admin/login", "", models.LoginRequest{Username: testAdmin, Password: "admin123"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.jsonRequest(http.MethodPost, "/api/admin/login", "", map[string]string{"username": testAdmin})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExport(t *testing.T) {
	ts := newTestServer(t, time.Minute)
	token := ts.login(t)
	require.Equal(t, http.StatusCreated, ts.jsonRequest(http.MethodPost, "/api/profiles", token, profilePayload).Code)

	w := ts.jsonRequest(http.MethodGet, "/api/admin/export", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".xlsx")
	// xlsx files are zip archives.
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("PK")))
}

func TestMongoPingAndHealth(t *testing.T) {
	ts := newTestServer(t, time.Minute)

	w := ts.jsonRequest(http.MethodGet, "/api/test", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeBody[map[string]any](t, w)["success"])

	w = ts.jsonRequest(http.MethodGet, "/health", "", nil)
	assert.Equal(t, "healthy", decodeBody[map[string]any](t, w)["status"])

	ts.mongoDown = errors.New("connection refused")

	w = ts.jsonRequest(http.MethodGet, "/api/test", "", nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	body := decodeBody[map[string]any](t, w)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Failed to connect to MongoDB", body["error"])
	assert.Equal(t, "connection refused", body["details"])

	w = ts.jsonRequest(http.MethodGet, "/health", "", nil)
	assert.Equal(t, "degraded", decodeBody[map[string]any](t, w)["status"])
}

func TestRequestIDHeader(t *testing.T) {
	ts := newTestServer(t, time.Minute)

	w := ts.jsonRequest(http.MethodGet, "/health", "", nil)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(middleware.RequestIDHeader, "abc-123")
	assert.Equal(t, "abc-123", ts.do(req).Header().Get(middleware.RequestIDHeader))
}

func TestAdminActionsAreAudited(t *testing.T) {
	ts := newTestServer(t, time.Minute)
	token := ts.login(t)

	w := ts.jsonRequest(http.MethodPost, "/api/profiles", token, profilePayload)
	require.Equal(t, http.StatusCreated, w.Code)

	// Flush the background writer.
	ts.audit.Close()

	w = ts.jsonRequest(http.MethodGet, "/api/admin/audit", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	page := decodeBody[models.AuditPage](t, w)
	require.Len(t, page.Events, 2)
	assert.Equal(t, models.AuditCreate, page.Events[0].Action)
	assert.Equal(t, "profiles", page.Events[0].Resource)
	assert.Equal(t, testAdmin, page.Events[0].Admin)
	assert.Equal(t, models.AuditLogin, page.Events[1].Action)
	assert.Equal(t, "[REDACTED]", page.Events[1].Changes["password"])

	w = ts.jsonRequest(http.MethodGet, "/api/admin/audit?action=login", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(1), decodeBody[models.AuditPage](t, w).Total)

	w = ts.jsonRequest(http.MethodGet, "/api/admin/audit/verify", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	result := decodeBody[models.AuditVerification](t, w)
	assert.True(t, result.Valid)
	assert.Equal(t, 2, result.Events)

	w = ts.jsonRequest(http.MethodGet, "/api/admin/audit", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
