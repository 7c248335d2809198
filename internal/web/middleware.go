package web

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/jon4hz/pictura/internal/guard"
	"github.com/jon4hz/pictura/internal/imagehost"
)

const instanceKey = "instance"

// initWait is how long a request waits for a restored session before the loading view is shown.
const initWait = 3 * time.Second

// bindInstance attaches the instance of the browser to the request
// and starts restoring its session on first use.
func (s *Server) bindInstance() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := sessions.Default(c)
		id, _ := sess.Get(sessionInstanceKey).(string)
		token, _ := sess.Get(sessionTokenKey).(string)

		inst := s.instances.Acquire(id, token)
		c.Set(instanceKey, inst)

		// restoring must not be cut short by a browser that gives up on the request
		ctx := context.WithoutCancel(c.Request.Context())
		done := make(chan struct{})
		go func() {
			inst.Session.Initialize(ctx)
			close(done)
		}()

		timer := time.NewTimer(initWait)
		defer timer.Stop()
		select {
		case <-done:
		case <-timer.C:
		case <-c.Request.Context().Done():
		}

		c.Next()
	}
}

func instanceFrom(c *gin.Context) *Instance {
	return c.MustGet(instanceKey).(*Instance)
}

// viewer returns the logged in user. The session can end between RequireAuth and
// the handler, in which case the browser is sent to the login view.
func (s *Server) viewer(c *gin.Context, inst *Instance) (*imagehost.User, bool) {
	user := inst.Session.User()
	if user == nil {
		s.redirect(c, guard.LoginPath)
		c.Abort()
		return nil, false
	}
	return user, true
}

// RequireAuth only lets logged in users through.
func (s *Server) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.enforce(c, guard.Authenticated)
	}
}

// RequireAdmin only lets admins through. It expects RequireAuth to run first.
func (s *Server) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.enforce(c, guard.Admin)
	}
}

func (s *Server) enforce(c *gin.Context, check func(guard.Session) guard.Outcome) {
	inst := instanceFrom(c)
	switch outcome := check(inst.Session); outcome {
	case guard.Render:
		c.Next()
	case guard.Pending:
		s.render(c, http.StatusServiceUnavailable, "loading.html", gin.H{"Title": "Loading"})
		c.Abort()
	default:
		s.redirect(c, outcome.Location())
		c.Abort()
	}
}
