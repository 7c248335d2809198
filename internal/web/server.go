// Package web serves the browser front end of the gallery.
package web

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/jon4hz/pictura/internal/cache"
	"github.com/jon4hz/pictura/internal/config"
	"github.com/jon4hz/pictura/internal/gravatar"
	"github.com/jon4hz/pictura/internal/imagecache"
	"github.com/jon4hz/pictura/internal/imagehost"
	"github.com/jon4hz/pictura/internal/scheduler"
	"github.com/jon4hz/pictura/internal/static"
)

const (
	sessionName = "pictura_session"

	jobImageCleanup  = "image_cleanup"
	jobInstanceSweep = "instance_sweep"

	sweepInterval = 5 * time.Minute
)

// Server is the web front end.
type Server struct {
	cfg       *config.Config
	ginEngine *gin.Engine
	api       *imagehost.Client
	instances *Instances
	users     *cache.UserDirectory
	images    *imagecache.Cache
	scheduler *scheduler.Scheduler
}

// New wires the web front end. Call Run to serve it.
func New(cfg *config.Config, debug bool) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := gravatar.Validate(cfg.Gravatar); err != nil {
		return nil, fmt.Errorf("invalid gravatar config: %w", err)
	}
	if cfg.Images == nil {
		return nil, fmt.Errorf("images config is required")
	}

	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}

	api := imagehost.New(cfg.API)

	images, err := imagecache.New(cfg.Images, api.BaseURL())
	if err != nil {
		return nil, err
	}

	sched, err := scheduler.New()
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:       cfg,
		ginEngine: gin.New(),
		api:       api,
		instances: NewInstances(api, time.Duration(cfg.SessionMaxAge)*time.Second),
		users:     cache.NewUserDirectory(cfg.Cache),
		images:    images,
		scheduler: sched,
	}

	if err := s.setupJobs(); err != nil {
		return nil, err
	}
	if err := s.setupRoutes(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Server) setupJobs() error {
	if err := s.scheduler.AddCronJob(jobImageCleanup, "Thumbnail Cleanup", s.cfg.Images.CleanupSchedule, func(context.Context) error {
		removed, err := s.images.Cleanup(s.images.MaxAge())
		if err != nil {
			return err
		}
		log.Info("Removed old thumbnails", "count", removed)
		return nil
	}, false); err != nil {
		return err
	}

	return s.scheduler.AddIntervalJob(jobInstanceSweep, "Session Sweep", sweepInterval, func(context.Context) error {
		if removed := s.instances.Sweep(); removed > 0 {
			log.Debug("Dropped idle sessions", "count", removed, "remaining", s.instances.Count())
		}
		return nil
	})
}

func (s *Server) setupSession() {
	// the second key encrypts the cookie, it holds the bearer token
	encKey := sha256.Sum256([]byte(s.cfg.SessionKey))
	store := cookie.NewStore([]byte(s.cfg.SessionKey), encKey[:])
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   s.cfg.SessionMaxAge,
		HttpOnly: true,
		Secure:   s.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	s.ginEngine.Use(sessions.Sessions(sessionName, store))
}

func (s *Server) setupRoutes() error {
	tmpl, err := static.Templates(s.templateFuncs())
	if err != nil {
		return err
	}
	s.ginEngine.SetHTMLTemplate(tmpl)

	s.ginEngine.Use(gin.Recovery(), requestLogger())
	s.ginEngine.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{imagecache.RoutePath})))
	s.ginEngine.StaticFS("/static", static.Assets())
	s.ginEngine.GET(imagecache.RoutePath, s.Thumbnail)

	s.setupSession()
	s.ginEngine.Use(s.bindInstance())

	s.ginEngine.GET("/login", s.LoginPage)
	s.ginEngine.POST("/login", s.Login)
	s.ginEngine.GET("/register", s.RegisterPage)
	s.ginEngine.POST("/register", s.Register)
	s.ginEngine.POST("/logout", s.Logout)

	s.ginEngine.GET("/explore", s.Explore)
	s.ginEngine.POST("/explore/more", s.ExploreMore)
	s.ginEngine.GET("/user/:id", s.UserGallery)
	s.ginEngine.POST("/user/:id/more", s.UserGalleryMore)

	protected := s.ginEngine.Group("/")
	protected.Use(s.RequireAuth())
	protected.GET("/", s.Home)
	protected.POST("/more", s.HomeMore)
	protected.GET("/profile", s.Profile)
	protected.POST("/profile", s.UpdateProfile)
	protected.POST("/profile/picture", s.UpdateProfilePicture)
	protected.POST("/photos", s.UploadPhoto)
	protected.POST("/photos/:id/delete", s.DeletePhoto)

	admin := s.ginEngine.Group("/admin")
	admin.Use(s.RequireAuth(), s.RequireAdmin())
	admin.GET("", s.Admin)
	admin.POST("/users", s.CreateUser)
	admin.POST("/users/:id", s.UpdateUser)
	admin.POST("/users/:id/delete", s.DeleteUser)
	admin.GET("/photos", s.AdminPhotos)
	admin.POST("/photos/more", s.AdminPhotosMore)
	admin.POST("/jobs/:id/run", s.RunJob)

	s.ginEngine.NoRoute(func(c *gin.Context) {
		s.redirect(c, "/")
	})
	return nil
}

// Handler returns the HTTP handler of the front end.
func (s *Server) Handler() http.Handler {
	return s.ginEngine
}

// Run serves the front end until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.scheduler.Start()
	defer func() {
		if err := s.scheduler.Stop(); err != nil {
			log.Error("Failed to stop scheduler", "error", err)
		}
	}()

	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.ginEngine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting web server", "listen", s.cfg.Listen, "api", s.api.BaseURL())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down web server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("Request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
