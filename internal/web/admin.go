package web

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/jon4hz/pictura/internal/guard"
	"github.com/jon4hz/pictura/internal/imagehost"
	"golang.org/x/sync/errgroup"
)

const (
	adminPath       = "/admin"
	adminPhotosPath = "/admin/photos"

	usersFallback = "Failed to load users. Please try again later."
)

// Admin shows the user management panel and the housekeeping jobs.
func (s *Server) Admin(c *gin.Context) {
	inst := instanceFrom(c)
	ctx := c.Request.Context()

	var msg string
	users, err := inst.API.ListUsers(ctx)
	if err != nil {
		if s.expired(c, inst, err) {
			return
		}
		log.Error("Failed to list users", "error", err)
		msg = imagehost.Message(err, usersFallback)
	} else {
		s.users.PutAll(ctx, users)
	}

	s.render(c, http.StatusOK, "admin.html", gin.H{
		"Title":      "Admin",
		"Error":      msg,
		"Users":      users,
		"Jobs":       s.scheduler.Jobs(),
		"CacheStats": s.users.Stats(),
	})
}

// CreateUser creates a user or admin account through the admin register endpoint.
func (s *Server) CreateUser(c *gin.Context) {
	inst := instanceFrom(c)
	asAdmin := c.PostForm("admin") == "true"
	reg := imagehost.Registration{
		Name:     strings.TrimSpace(c.PostForm("name")),
		Email:    strings.TrimSpace(c.PostForm("email")),
		Password: c.PostForm("password"),
		Role:     imagehost.RoleUser,
	}
	if asAdmin {
		reg.Role = imagehost.RoleAdmin
	}

	if !inst.Session.Register(c.Request.Context(), reg, true) {
		if inst.Session.User() == nil {
			// the register call was rejected with our token
			inst.Reset()
			s.flash(c, flashError, "Your session has expired, please log in again")
			s.redirect(c, guard.LoginPath)
			return
		}
		s.flash(c, flashError, inst.Session.Err())
		s.redirect(c, adminPath)
		return
	}

	if asAdmin {
		s.flash(c, flashSuccess, "Admin created successfully")
	} else {
		s.flash(c, flashSuccess, "User created successfully")
	}
	s.redirect(c, adminPath)
}

// UpdateUser changes name, email and role of an account.
func (s *Server) UpdateUser(c *gin.Context) {
	inst := instanceFrom(c)
	ctx := c.Request.Context()

	id, err := parseID(c.Param("id"))
	if err != nil {
		s.flash(c, flashError, "Invalid user")
		s.redirect(c, adminPath)
		return
	}

	update := imagehost.UserUpdate{
		Name:  strings.TrimSpace(c.PostForm("name")),
		Email: strings.TrimSpace(c.PostForm("email")),
		Role:  imagehost.Role(c.PostForm("role")),
	}
	if update.Role != imagehost.RoleUser && update.Role != imagehost.RoleAdmin {
		s.flash(c, flashError, "Invalid role")
		s.redirect(c, adminPath)
		return
	}

	if err := inst.API.UpdateUser(ctx, id, update); err != nil {
		s.fail(c, inst, err, "Failed to update user", adminPath)
		return
	}
	s.users.Forget(ctx, id)

	if self := inst.Session.User(); self != nil && self.ID == id {
		if err := inst.Session.Refresh(ctx); err != nil && s.expired(c, inst, err) {
			return
		}
	}

	s.flash(c, flashSuccess, "User updated successfully")
	// an admin who demoted themselves can't see the panel anymore
	if !inst.Session.IsAdmin() {
		s.redirect(c, guard.HomePath)
		return
	}
	s.redirect(c, adminPath)
}

// DeleteUser deletes an account.
func (s *Server) DeleteUser(c *gin.Context) {
	inst := instanceFrom(c)
	ctx := c.Request.Context()

	id, err := parseID(c.Param("id"))
	if err != nil {
		s.flash(c, flashError, "Invalid user")
		s.redirect(c, adminPath)
		return
	}

	if err := inst.API.DeleteUser(ctx, id); err != nil {
		s.fail(c, inst, err, "Failed to delete user", adminPath)
		return
	}
	s.users.Forget(ctx, id)

	s.flash(c, flashSuccess, "User deleted successfully")
	s.redirect(c, adminPath)
}

// AdminPhotos browses the photos of one user, or of everyone.
func (s *Server) AdminPhotos(c *gin.Context) {
	inst := instanceFrom(c)
	ctx := c.Request.Context()

	var selected uint64
	if q := c.Query("user"); q != "" {
		id, err := parseID(q)
		if err != nil {
			s.flash(c, flashError, "Invalid user")
			s.redirect(c, adminPhotosPath)
			return
		}
		selected = id
	}

	var (
		users    []imagehost.User
		usersErr error
		g        errgroup.Group
	)
	g.Go(func() error {
		users, usersErr = inst.API.ListUsers(ctx)
		return nil
	})
	g.Go(func() error {
		return show(ctx, inst.AdminPhotos, selected)
	})
	photosErr := g.Wait()

	if s.expired(c, inst, errors.Join(usersErr, photosErr)) {
		return
	}

	var msg string
	if usersErr != nil {
		log.Error("Failed to list users", "error", usersErr)
		msg = imagehost.Message(usersErr, usersFallback)
	} else {
		s.users.PutAll(ctx, users)
	}
	if photosMsg, _ := s.loadFailed(c, inst, photosErr); photosMsg != "" {
		msg = photosMsg
	}

	s.render(c, http.StatusOK, "admin_photos.html", gin.H{
		"Title":    "All photos",
		"Error":    msg,
		"Users":    users,
		"Selected": selected,
		"Grid": grid{
			Photos:     inst.AdminPhotos.Items(),
			ShowUser:   selected == 0,
			HasMore:    inst.AdminPhotos.HasMore(),
			MoreAction: adminPhotosPath + "/more",
		},
	})
}

// AdminPhotosMore loads the next page of the admin photo list.
func (s *Server) AdminPhotosMore(c *gin.Context) {
	inst := instanceFrom(c)
	location := adminPhotosPath
	if scope, ok := inst.AdminPhotos.Scope(); ok && scope != 0 {
		location += "?user=" + strconv.FormatUint(scope, 10)
	}
	s.more(c, inst.AdminPhotos.LoadMore, location)
}

// RunJob triggers a housekeeping job.
func (s *Server) RunJob(c *gin.Context) {
	id := c.Param("id")
	if err := s.scheduler.RunNow(id); err != nil {
		log.Error("Failed to run job", "id", id, "error", err)
		s.flash(c, flashError, "Failed to run job")
	} else {
		s.flash(c, flashSuccess, "Job started")
	}
	s.redirect(c, adminPath)
}

// Thumbnail serves the scaled copy of an image hosted by the API.
func (s *Server) Thumbnail(c *gin.Context) {
	if err := s.images.Serve(c.Request.Context(), c.Query("url"), c.Writer, c.Request); err != nil {
		log.Debug("Failed to serve thumbnail", "error", err)
	}
}
