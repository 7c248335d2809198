// Package guard decides whether a protected view may be rendered for the current session.
package guard

import (
	"github.com/jon4hz/pictura/internal/imagehost"
	"github.com/jon4hz/pictura/internal/session"
)

const (
	LoginPath = "/login"
	HomePath  = "/"
)

// Outcome is what a view should do.
type Outcome int

const (
	// Render the protected view.
	Render Outcome = iota
	// Pending means the session is still initializing; render nothing protected yet.
	Pending
	// RedirectLogin sends an anonymous visitor to the login view.
	RedirectLogin
	// RedirectHome sends a non-admin user to the home view.
	RedirectHome
)

func (o Outcome) String() string {
	switch o {
	case Render:
		return "render"
	case Pending:
		return "pending"
	case RedirectLogin:
		return "redirect-login"
	case RedirectHome:
		return "redirect-home"
	default:
		return "unknown"
	}
}

// Location returns the redirect target of o, or "" if o is not a redirect.
func (o Outcome) Location() string {
	switch o {
	case RedirectLogin:
		return LoginPath
	case RedirectHome:
		return HomePath
	default:
		return ""
	}
}

// Session is the view of the session store the guards need.
type Session interface {
	State() session.State
	User() *imagehost.User
}

// Authenticated requires a logged in user.
func Authenticated(s Session) Outcome {
	if s.State() != session.Ready {
		return Pending
	}
	if s.User() == nil {
		return RedirectLogin
	}
	return Render
}

// Admin requires a logged in user with the admin role.
func Admin(s Session) Outcome {
	if s.State() != session.Ready {
		return Pending
	}
	user := s.User()
	switch {
	case user == nil:
		return RedirectLogin
	case !user.IsAdmin():
		return RedirectHome
	default:
		return Render
	}
}
