package web

import (
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/jon4hz/pictura/internal/config"
	"github.com/jon4hz/pictura/internal/guard"
	"github.com/stretchr/testify/suite"
)

// swapHandler lets a test replace the front end behind a running listener,
// like a restarted process on the same address.
type swapHandler struct {
	mu sync.RWMutex
	h  http.Handler
}

func (s *swapHandler) set(h http.Handler) {
	s.mu.Lock()
	s.h = h
	s.mu.Unlock()
}

func (s *swapHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	h := s.h
	s.mu.RUnlock()
	h.ServeHTTP(w, r)
}

type ServerTestSuite struct {
	suite.Suite

	api    *fakeAPI
	apiSrv *httptest.Server
	cfg    *config.Config
	front  *swapHandler
	srv    *httptest.Server
	client *http.Client
}

func TestServerTestSuite(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}

func (s *ServerTestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
}

func (s *ServerTestSuite) SetupTest() {
	s.api = newFakeAPI()
	s.apiSrv = httptest.NewServer(s.api.handler())

	s.cfg = &config.Config{
		Listen:        "127.0.0.1:0",
		SessionKey:    "0123456789abcdef0123456789abcdef",
		SessionMaxAge: 3600,
		API:           &config.APIConfig{URL: s.apiSrv.URL, Timeout: 5 * time.Second},
		Gallery:       &config.GalleryConfig{PreviewLimit: 7},
		Cache:         &config.CacheConfig{Type: config.CacheTypeMemory, TTL: time.Minute},
		Images: &config.ImagesConfig{
			CacheDir:        filepath.Join(s.T().TempDir(), "images"),
			MaxWidth:        340,
			MaxHeight:       500,
			Quality:         85,
			MaxAge:          time.Hour,
			CleanupSchedule: "0 */6 * * *",
		},
		Gravatar: &config.GravatarConfig{},
	}

	s.front = &swapHandler{}
	s.front.set(s.newServer().Handler())
	s.srv = httptest.NewServer(s.front)

	jar, err := cookiejar.New(nil)
	s.Require().NoError(err)
	s.client = &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (s *ServerTestSuite) TearDownTest() {
	s.srv.Close()
	s.apiSrv.Close()
}

func (s *ServerTestSuite) newServer() *Server {
	server, err := New(s.cfg, true)
	s.Require().NoError(err)
	return server
}

func (s *ServerTestSuite) get(path string) (int, string, string) {
	resp, err := s.client.Get(s.srv.URL + path)
	s.Require().NoError(err)
	return s.read(resp)
}

func (s *ServerTestSuite) post(path string, form url.Values) (int, string, string) {
	resp, err := s.client.PostForm(s.srv.URL+path, form)
	s.Require().NoError(err)
	return s.read(resp)
}

func (s *ServerTestSuite) read(resp *http.Response) (int, string, string) {
	defer resp.Body.Close() //nolint:errcheck
	body, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	return resp.StatusCode, resp.Header.Get("Location"), string(body)
}

func (s *ServerTestSuite) login(email, password string, admin bool) string {
	form := url.Values{"email": {email}, "password": {password}}
	if admin {
		form.Set("admin", "true")
	}
	status, location, _ := s.post("/login", form)
	s.Require().Equal(http.StatusFound, status)
	return location
}

func (s *ServerTestSuite) TestAnonymousIsSentToLogin() {
	for _, path := range []string{"/", "/profile", "/admin", "/admin/photos"} {
		status, location, _ := s.get(path)
		s.Equal(http.StatusFound, status, path)
		s.Equal("/login", location, path)
	}
}

func (s *ServerTestSuite) TestUnknownPathGoesHome() {
	status, location, _ := s.get("/does/not/exist")
	s.Equal(http.StatusFound, status)
	s.Equal("/", location)
}

func (s *ServerTestSuite) TestLoginShowsOwnGallery() {
	s.Equal("/", s.login("alice@example.com", "secret", false))

	status, _, body := s.get("/")
	s.Equal(http.StatusOK, status)
	s.Contains(body, "Sunrise")
	s.Contains(body, "Harbor")
	s.Contains(body, "Total photos: 2")
	s.Contains(body, "Load More")

	// the login page is not shown to logged in users
	status, location, _ := s.get("/login")
	s.Equal(http.StatusFound, status)
	s.Equal("/", location)
}

func (s *ServerTestSuite) TestLoginFailureShowsServerMessage() {
	status, _, body := s.post("/login", url.Values{"email": {"alice@example.com"}, "password": {"wrong"}})
	s.Equal(http.StatusUnauthorized, status)
	s.Contains(body, "Invalid credentials")
	s.Contains(body, "alice@example.com")
}

func (s *ServerTestSuite) TestAdminGuard() {
	s.login("alice@example.com", "secret", false)

	status, location, _ := s.get("/admin")
	s.Equal(http.StatusFound, status)
	s.Equal("/", location)

	s.post("/logout", nil)
	s.Equal("/admin", s.login("root@example.com", "toor", true))

	status, _, body := s.get("/admin")
	s.Equal(http.StatusOK, status)
	s.Contains(body, "alice@example.com")
	s.Contains(body, "Thumbnail Cleanup")
}

func (s *ServerTestSuite) TestAdminLoginRejectsRegularUser() {
	status, _, body := s.post("/login", url.Values{"email": {"alice@example.com"}, "password": {"secret"}, "admin": {"true"}})
	s.Equal(http.StatusUnauthorized, status)
	s.Contains(body, "Not an admin")
}

func (s *ServerTestSuite) TestLogout() {
	s.login("alice@example.com", "secret", false)

	status, location, _ := s.post("/logout", nil)
	s.Equal(http.StatusFound, status)
	s.Equal("/login", location)

	_, location, _ = s.get("/")
	s.Equal("/login", location)
}

func (s *ServerTestSuite) TestLoadMoreDeduplicates() {
	s.login("alice@example.com", "secret", false)
	s.get("/")

	status, location, _ := s.post("/more", nil)
	s.Equal(http.StatusFound, status)
	s.Equal("/", location)

	_, _, body := s.get("/")
	s.Contains(body, "Forest")
	s.Contains(body, "Total photos: 3")
	s.Equal(1, strings.Count(body, ">Harbor<"))

	// page 3 is empty and ends the list
	s.post("/more", nil)
	_, _, body = s.get("/")
	s.NotContains(body, "Load More")
	s.Contains(body, "Total photos: 3")
	s.Equal(1, s.api.count("GET /photos/me?page=1"))
}

func (s *ServerTestSuite) TestDeletePhotoUpdatesEveryList() {
	s.login("alice@example.com", "secret", false)
	s.get("/")
	s.get("/user/1")

	status, location, _ := s.post("/photos/1/delete", nil)
	s.Equal(http.StatusFound, status)
	s.Equal("/", location)
	s.Equal([]uint64{1}, s.api.deleted)

	_, _, body := s.get("/")
	s.NotContains(body, "Sunrise")
	s.Contains(body, "Photo deleted successfully")

	_, _, body = s.get("/user/1")
	s.NotContains(body, "Sunrise")

	// lists are updated locally, not fetched again
	s.Equal(1, s.api.count("GET /photos/me?page=1"))
	s.Equal(1, s.api.count("GET /photos/user/1?page=1"))
}

func (s *ServerTestSuite) TestExpiredTokenEndsSession() {
	s.login("alice@example.com", "secret", false)
	s.api.revokeAll()

	status, location, _ := s.get("/")
	s.Equal(http.StatusFound, status)
	s.Equal("/login", location)

	status, _, body := s.get("/login")
	s.Equal(http.StatusOK, status)
	s.Contains(body, "Your session has expired")

	_, location, _ = s.get("/profile")
	s.Equal("/login", location)
}

func (s *ServerTestSuite) TestSessionSurvivesRestart() {
	s.login("alice@example.com", "secret", false)

	s.front.set(s.newServer().Handler())

	status, _, body := s.get("/")
	s.Equal(http.StatusOK, status)
	s.Contains(body, "Sunrise")
	s.Contains(body, "Alice")
}

func (s *ServerTestSuite) TestExploreIsPublic() {
	status, _, body := s.get("/explore")
	s.Equal(http.StatusOK, status)
	s.Contains(body, "Alice")
	s.Contains(body, `href="/user/1"`)
	// users without photos are not listed
	s.NotContains(body, `href="/user/2"`)
}

func (s *ServerTestSuite) TestUserGalleryHeader() {
	status, _, body := s.get("/user/1")
	s.Equal(http.StatusOK, status)
	s.Contains(body, "Photos by Alice")
	s.NotContains(body, "Delete")

	_, _, body = s.get("/user/99")
	s.Contains(body, "Photos by User")

	status, location, _ := s.get("/user/abc")
	s.Equal(http.StatusFound, status)
	s.Equal("/explore", location)
}

func (s *ServerTestSuite) TestAdminPhotosAllUsers() {
	s.login("root@example.com", "toor", true)

	status, _, body := s.get("/admin/photos")
	s.Equal(http.StatusOK, status)
	s.Contains(body, "Sunrise")
	s.Contains(body, "By: Alice")

	_, _, body = s.get("/admin/photos?user=1")
	s.Contains(body, "Sunrise")
	s.NotContains(body, "By: Alice")
}

func (s *ServerTestSuite) TestThumbnailRejectsForeignImages() {
	status, _, _ := s.get("/images/thumb?url=" + url.QueryEscape("https://elsewhere.example.com/a.jpg"))
	s.Equal(http.StatusForbidden, status)
}

func (s *ServerTestSuite) TestPasswordConfirmation() {
	s.login("alice@example.com", "secret", false)

	status, location, _ := s.post("/profile", url.Values{"name": {"Alice"}, "password": {"a"}, "confirm_password": {"b"}})
	s.Equal(http.StatusFound, status)
	s.Equal("/profile", location)

	_, _, body := s.get("/profile")
	s.Contains(body, "Passwords do not match")
}

// A session that ends after RequireAuth passed must not break the handlers.
func (s *ServerTestSuite) TestHandlersRedirectWhenSessionEnded() {
	server := s.newServer()
	inst := server.instances.Acquire("", "")
	inst.Session.Initialize(s.T().Context())
	s.Require().Nil(inst.Session.User())

	engine := gin.New()
	engine.Use(sessions.Sessions(sessionName, cookie.NewStore([]byte(s.cfg.SessionKey))))
	engine.Use(func(c *gin.Context) {
		c.Set(instanceKey, inst)
		c.Next()
	})
	engine.GET("/", server.Home)
	engine.GET("/profile", server.Profile)

	for _, path := range []string{"/", "/profile"} {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		s.Equal(http.StatusFound, w.Code, path)
		s.Equal(guard.LoginPath, w.Header().Get("Location"), path)
	}
}
