package web

import (
	"context"
	"net/http"
	"strconv"

	"github.com/ccoveille/go-safecast"
	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/jon4hz/pictura/internal/gallery"
	"github.com/jon4hz/pictura/internal/guard"
	"github.com/jon4hz/pictura/internal/imagehost"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

const loadFallback = "Failed to load photos. Please try again later."

type exploreEntry struct {
	UserID uint64
	Name   string
	Photos []imagehost.Photo
}

// show selects scope on p. A scope whose first page failed is requested again.
func show[T any](ctx context.Context, p *gallery.Pager[uint64, T, uint64], scope uint64) error {
	if current, ok := p.Scope(); ok && current == scope && p.Page() == 0 && p.Err() != nil {
		return p.Reload(ctx)
	}
	return p.SetScope(ctx, scope)
}

// loadFailed turns a failed list load into a view message.
// done is true if the session expired and the response was already written.
func (s *Server) loadFailed(c *gin.Context, inst *Instance, err error) (msg string, done bool) {
	if err == nil {
		return "", false
	}
	if s.expired(c, inst, err) {
		return "", true
	}
	msg = loadError(err, loadFallback)
	if msg != "" {
		log.Debug("Failed to load photos", "path", c.Request.URL.Path, "error", err)
	}
	return msg, false
}

// more loads the next page of a list and sends the browser back to the list.
func (s *Server) more(c *gin.Context, load func(context.Context) error, location string) {
	inst := instanceFrom(c)
	msg, done := s.loadFailed(c, inst, load(c.Request.Context()))
	if done {
		return
	}
	if msg != "" {
		s.flash(c, flashError, msg)
	}
	s.redirect(c, location)
}

// Home shows the gallery of the logged in user.
func (s *Server) Home(c *gin.Context) {
	inst := instanceFrom(c)
	user, ok := s.viewer(c, inst)
	if !ok {
		return
	}

	msg, done := s.loadFailed(c, inst, show(c.Request.Context(), inst.OwnGallery, user.ID))
	if done {
		return
	}

	s.render(c, http.StatusOK, "home.html", gin.H{
		"Title": "My Photos",
		"Error": msg,
		"Grid": grid{
			Photos:     inst.OwnGallery.Items(),
			Deletable:  true,
			HasMore:    inst.OwnGallery.HasMore(),
			MoreAction: "/more",
		},
	})
}

// HomeMore loads the next page of the own gallery.
func (s *Server) HomeMore(c *gin.Context) {
	s.more(c, instanceFrom(c).OwnGallery.LoadMore, guard.HomePath)
}

// Explore shows the newest photos grouped by user.
func (s *Server) Explore(c *gin.Context) {
	inst := instanceFrom(c)

	msg, done := s.loadFailed(c, inst, show(c.Request.Context(), inst.Explore, 0))
	if done {
		return
	}

	limit := s.cfg.Gallery.PreviewLimit
	entries := lo.FilterMap(inst.Explore.Items(), func(up imagehost.UserPhotos, _ int) (exploreEntry, bool) {
		photos := up.Preview(limit)
		return exploreEntry{
			UserID: up.User.ID,
			Name:   up.User.DisplayName(),
			Photos: photos,
		}, len(photos) > 0
	})

	s.render(c, http.StatusOK, "explore.html", gin.H{
		"Title":   "Explore",
		"Error":   msg,
		"Entries": entries,
		"HasMore": inst.Explore.HasMore(),
	})
}

// ExploreMore loads the next page of the explore feed.
func (s *Server) ExploreMore(c *gin.Context) {
	s.more(c, instanceFrom(c).Explore.LoadMore, "/explore")
}

// UserGallery shows the photos of a single user.
func (s *Server) UserGallery(c *gin.Context) {
	inst := instanceFrom(c)
	id, err := parseID(c.Param("id"))
	if err != nil {
		s.flash(c, flashError, "Invalid user")
		s.redirect(c, "/explore")
		return
	}

	ctx := c.Request.Context()
	name := "User"

	var g errgroup.Group
	g.Go(func() error {
		user, err := s.users.Lookup(ctx, id, inst.API.GetUser)
		if err != nil {
			log.Debug("Failed to load gallery owner", "id", id, "error", err)
			return nil
		}
		name = user.DisplayName()
		return nil
	})
	g.Go(func() error {
		return show(ctx, inst.UserGallery, id)
	})

	msg, done := s.loadFailed(c, inst, g.Wait())
	if done {
		return
	}

	viewer := inst.Session.User()
	s.render(c, http.StatusOK, "user.html", gin.H{
		"Title":    name,
		"Error":    msg,
		"UserName": name,
		"Grid": grid{
			Photos:     inst.UserGallery.Items(),
			Deletable:  viewer != nil && viewer.ID == id,
			HasMore:    inst.UserGallery.HasMore(),
			MoreAction: "/user/" + strconv.FormatUint(id, 10) + "/more",
		},
	})
}

// UserGalleryMore loads the next page of a user gallery.
func (s *Server) UserGalleryMore(c *gin.Context) {
	inst := instanceFrom(c)
	id, err := parseID(c.Param("id"))
	if err != nil {
		s.redirect(c, "/explore")
		return
	}
	location := "/user/" + strconv.FormatUint(id, 10)

	// a stale form for another user must not page the current one
	if scope, ok := inst.UserGallery.Scope(); !ok || scope != id {
		s.redirect(c, location)
		return
	}
	s.more(c, inst.UserGallery.LoadMore, location)
}

// parseID parses a positive numeric id.
func parseID(param string) (uint64, error) {
	n, err := strconv.ParseInt(param, 10, 64)
	if err != nil {
		return 0, err
	}
	id, err := safecast.ToUint64(n)
	if err != nil {
		return 0, err
	}
	if id == 0 {
		return 0, strconv.ErrRange
	}
	return id, nil
}
