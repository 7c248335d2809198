package web

import (
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/jon4hz/pictura/internal/guard"
	"github.com/jon4hz/pictura/internal/imagehost"
)

// LoginPage shows the login form. Logged in users go home.
func (s *Server) LoginPage(c *gin.Context) {
	if instanceFrom(c).Session.User() != nil {
		s.redirect(c, guard.HomePath)
		return
	}
	s.render(c, http.StatusOK, "login.html", gin.H{"Title": "Login"})
}

// Login authenticates with the regular or the admin endpoint.
func (s *Server) Login(c *gin.Context) {
	inst := instanceFrom(c)
	email := strings.TrimSpace(c.PostForm("email"))
	asAdmin := c.PostForm("admin") == "true"

	if !inst.Session.Login(c.Request.Context(), email, c.PostForm("password"), asAdmin) {
		s.render(c, http.StatusUnauthorized, "login.html", gin.H{
			"Title": "Login",
			"Email": email,
			"Admin": asAdmin,
			"Error": inst.Session.Err(),
		})
		return
	}

	// lists loaded for the previous user are not valid anymore
	inst.Reset()
	log.Info("User logged in", "email", email, "admin", inst.Session.IsAdmin())

	if inst.Session.IsAdmin() {
		s.redirect(c, "/admin")
		return
	}
	s.redirect(c, guard.HomePath)
}

// RegisterPage shows the registration form.
func (s *Server) RegisterPage(c *gin.Context) {
	if instanceFrom(c).Session.User() != nil {
		s.redirect(c, guard.HomePath)
		return
	}
	s.render(c, http.StatusOK, "register.html", gin.H{"Title": "Register"})
}

// Register creates an account and logs the browser in as it.
func (s *Server) Register(c *gin.Context) {
	inst := instanceFrom(c)
	reg := imagehost.Registration{
		Name:     strings.TrimSpace(c.PostForm("name")),
		Email:    strings.TrimSpace(c.PostForm("email")),
		Password: c.PostForm("password"),
	}

	if !inst.Session.Register(c.Request.Context(), reg, false) {
		s.render(c, http.StatusBadRequest, "register.html", gin.H{
			"Title": "Register",
			"Name":  reg.Name,
			"Email": reg.Email,
			"Error": inst.Session.Err(),
		})
		return
	}

	inst.Reset()
	s.flash(c, flashSuccess, "Registration successful")
	s.redirect(c, guard.HomePath)
}

// Logout ends the session of the browser.
func (s *Server) Logout(c *gin.Context) {
	inst := instanceFrom(c)
	if err := inst.Session.Logout(); err != nil {
		log.Error("Failed to logout", "error", err)
	}
	inst.Reset()
	s.redirect(c, guard.LoginPath)
}
