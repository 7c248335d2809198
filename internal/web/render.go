package web

import (
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/jon4hz/pictura/internal/gallery"
	"github.com/jon4hz/pictura/internal/gravatar"
	"github.com/jon4hz/pictura/internal/guard"
	"github.com/jon4hz/pictura/internal/imagecache"
	"github.com/jon4hz/pictura/internal/imagehost"
	"github.com/mergestat/timediff"
)

const (
	sessionInstanceKey = "instance_id"
	sessionTokenKey    = "token"

	flashError   = "error"
	flashSuccess = "success"
)

type flash struct {
	Kind    string
	Message string
}

// grid is the data of the shared photo grid.
type grid struct {
	Photos     []imagehost.Photo
	ShowUser   bool
	Deletable  bool
	HasMore    bool
	MoreAction string
}

func (s *Server) templateFuncs() template.FuncMap {
	return template.FuncMap{
		"thumb": func(path string) string {
			return imagecache.URL(s.api.AssetURL(path))
		},
		"timeago": func(t time.Time) string {
			return timediff.TimeDiff(t)
		},
		"comma": func(n int) string {
			return humanize.Comma(int64(n))
		},
	}
}

func (s *Server) avatar(user *imagehost.User) string {
	if user == nil {
		return ""
	}
	return gravatar.Avatar(user.ProfilePicture, user.Email, s.cfg.Gravatar, s.api.AssetURL)
}

// render writes a page. The page data is extended with the session user and pending flashes.
func (s *Server) render(c *gin.Context, status int, name string, data gin.H) {
	inst := instanceFrom(c)
	if data == nil {
		data = gin.H{}
	}

	user := inst.Session.User()
	data["User"] = user
	data["IsAdmin"] = user.IsAdmin()
	data["Avatar"] = s.avatar(user)

	flashes := s.flashes(c)
	if msg, ok := data["Error"].(string); ok && msg != "" {
		flashes = append(flashes, flash{Kind: flashError, Message: msg})
	}
	data["Flashes"] = flashes

	s.persist(c, inst)
	c.HTML(status, name, data)
}

// redirect saves the session and redirects with 302.
func (s *Server) redirect(c *gin.Context, location string) {
	s.persist(c, instanceFrom(c))
	c.Redirect(http.StatusFound, location)
}

// persist writes the instance id and its current token into the session cookie,
// so a new instance can pick the session up after a restart.
func (s *Server) persist(c *gin.Context, inst *Instance) {
	sess := sessions.Default(c)
	sess.Set(sessionInstanceKey, inst.ID)
	if token := inst.Token(); token != "" {
		sess.Set(sessionTokenKey, token)
	} else {
		sess.Delete(sessionTokenKey)
	}
	if err := sess.Save(); err != nil {
		log.Error("Failed to save session", "error", err)
	}
}

func (s *Server) flash(c *gin.Context, kind, message string) {
	sessions.Default(c).AddFlash(message, kind)
}

func (s *Server) flashes(c *gin.Context) []flash {
	sess := sessions.Default(c)
	var out []flash
	for _, kind := range []string{flashError, flashSuccess} {
		for _, msg := range sess.Flashes(kind) {
			if m, ok := msg.(string); ok {
				out = append(out, flash{Kind: kind, Message: m})
			}
		}
	}
	return out
}

// expired handles an unauthorized API response: the session ends and the browser goes to login.
// It reports whether err was unauthorized.
func (s *Server) expired(c *gin.Context, inst *Instance, err error) bool {
	if !inst.Session.HandleError(err) {
		return false
	}
	inst.Reset()
	s.flash(c, flashError, "Your session has expired, please log in again")
	s.redirect(c, guard.LoginPath)
	c.Abort()
	return true
}

// fail reacts to a failed form action and sends the browser back to location.
func (s *Server) fail(c *gin.Context, inst *Instance, err error, fallback, location string) {
	if s.expired(c, inst, err) {
		return
	}
	log.Debug("Action failed", "path", c.Request.URL.Path, "error", err)
	s.flash(c, flashError, imagehost.Message(err, fallback))
	s.redirect(c, location)
}

// loadError turns a failed list load into a view message. Stale results are not errors.
func loadError(err error, fallback string) string {
	if err == nil || errors.Is(err, gallery.ErrStale) {
		return ""
	}
	return imagehost.Message(err, fallback)
}
