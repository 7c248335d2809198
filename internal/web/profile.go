package web

import (
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/jon4hz/pictura/internal/guard"
	"github.com/jon4hz/pictura/internal/imagehost"
)

const profilePath = "/profile"

// Profile shows the profile forms and the own photos.
func (s *Server) Profile(c *gin.Context) {
	inst := instanceFrom(c)
	user, ok := s.viewer(c, inst)
	if !ok {
		return
	}

	msg, done := s.loadFailed(c, inst, show(c.Request.Context(), inst.OwnGallery, user.ID))
	if done {
		return
	}

	s.render(c, http.StatusOK, "profile.html", gin.H{
		"Title": "Profile",
		"Error": msg,
		"Grid": grid{
			Photos:     inst.OwnGallery.Items(),
			Deletable:  true,
			HasMore:    inst.OwnGallery.HasMore(),
			MoreAction: "/more",
		},
	})
}

// UpdateProfile changes name, email and optionally the password.
func (s *Server) UpdateProfile(c *gin.Context) {
	inst := instanceFrom(c)
	ctx := c.Request.Context()

	update := imagehost.ProfileUpdate{
		Name:     strings.TrimSpace(c.PostForm("name")),
		Email:    strings.TrimSpace(c.PostForm("email")),
		Password: c.PostForm("password"),
	}
	if update.Password != c.PostForm("confirm_password") {
		s.flash(c, flashError, "Passwords do not match")
		s.redirect(c, profilePath)
		return
	}

	if err := inst.API.UpdateProfile(ctx, update); err != nil {
		s.fail(c, inst, err, "Failed to update profile", profilePath)
		return
	}
	s.afterProfileChange(c, inst, "Profile updated successfully")
}

// UpdateProfilePicture uploads a new profile picture.
func (s *Server) UpdateProfilePicture(c *gin.Context) {
	inst := instanceFrom(c)

	upload, closeFn, err := formUpload(c, "profilePicture")
	if err != nil {
		s.flash(c, flashError, "Please select a profile picture")
		s.redirect(c, profilePath)
		return
	}
	defer closeFn()

	if err := inst.API.UpdateProfilePicture(c.Request.Context(), upload); err != nil {
		s.fail(c, inst, err, "Failed to update profile picture", profilePath)
		return
	}
	s.afterProfileChange(c, inst, "Profile picture updated successfully")
}

func (s *Server) afterProfileChange(c *gin.Context, inst *Instance, message string) {
	ctx := c.Request.Context()
	if user := inst.Session.User(); user != nil {
		s.users.Forget(ctx, user.ID)
	}
	if err := inst.Session.Refresh(ctx); err != nil {
		if s.expired(c, inst, err) {
			return
		}
		log.Warn("Failed to refresh profile", "error", err)
	}
	s.flash(c, flashSuccess, message)
	s.redirect(c, profilePath)
}

// UploadPhoto uploads a photo and reloads the own gallery.
func (s *Server) UploadPhoto(c *gin.Context) {
	inst := instanceFrom(c)
	ctx := c.Request.Context()

	upload, closeFn, err := formUpload(c, "photo")
	if err != nil {
		s.flash(c, flashError, "Please select a file to upload")
		s.redirect(c, profilePath)
		return
	}
	defer closeFn()
	upload.Title = strings.TrimSpace(c.PostForm("title"))
	upload.Description = strings.TrimSpace(c.PostForm("description"))

	if err := inst.API.UploadPhoto(ctx, upload); err != nil {
		s.fail(c, inst, err, "Failed to upload photo", profilePath)
		return
	}

	s.flash(c, flashSuccess, "Photo uploaded successfully")
	msg, done := s.loadFailed(c, inst, inst.OwnGallery.Reload(ctx))
	if done {
		return
	}
	if msg != "" {
		s.flash(c, flashError, msg)
	}
	s.redirect(c, profilePath)
}

// DeletePhoto deletes an own photo and drops it from every list of the instance.
func (s *Server) DeletePhoto(c *gin.Context) {
	inst := instanceFrom(c)
	location := back(c, guard.HomePath)

	id, err := parseID(c.Param("id"))
	if err != nil {
		s.flash(c, flashError, "Invalid photo")
		s.redirect(c, location)
		return
	}

	if err := inst.API.DeletePhoto(c.Request.Context(), id); err != nil {
		s.fail(c, inst, err, "Failed to delete photo. Please try again.", location)
		return
	}

	removed := inst.RemovePhoto(id)
	log.Debug("Deleted photo", "id", id, "lists", removed)
	s.flash(c, flashSuccess, "Photo deleted successfully")
	s.redirect(c, location)
}

// formUpload opens the uploaded file of field.
func formUpload(c *gin.Context, field string) (imagehost.Upload, func(), error) {
	header, err := c.FormFile(field)
	if err != nil {
		return imagehost.Upload{}, nil, err
	}
	f, err := header.Open()
	if err != nil {
		return imagehost.Upload{}, nil, err
	}
	return imagehost.Upload{Filename: header.Filename, Content: f}, closer(f), nil
}

func closer(f multipart.File) func() {
	return func() {
		if err := f.Close(); err != nil {
			log.Debug("Failed to close upload", "error", err)
		}
	}
}

// back returns the local page the request came from, or fallback.
func back(c *gin.Context, fallback string) string {
	ref, err := url.Parse(c.Request.Referer())
	if err != nil || ref.Path == "" || strings.HasPrefix(ref.Path, "//") {
		return fallback
	}
	if ref.Host != "" && ref.Host != c.Request.Host {
		return fallback
	}
	return ref.RequestURI()
}
