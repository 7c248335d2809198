package imagehost

import (
	"io"
	"time"

	"github.com/samber/lo"
)

// Role is the role of a user account.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User is a user account as returned by the API.
type User struct {
	ID             uint64 `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	Role           Role   `json:"role"`
	ProfilePicture string `json:"profile_picture,omitempty"`
}

// IsAdmin reports whether the user has the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// DisplayName returns the name of the user, falling back to the email address.
func (u *User) DisplayName() string {
	switch {
	case u == nil:
		return ""
	case u.Name != "":
		return u.Name
	case u.Email != "":
		return u.Email
	default:
		return "User"
	}
}

// Photo is an uploaded photo.
type Photo struct {
	ID          uint64    `json:"id"`
	UserID      uint64    `json:"user_id"`
	UserName    string    `json:"user_name,omitempty"`
	URL         string    `json:"url"`
	Title       string    `json:"title,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// UserPhotos is one entry of the explore feed: a user and their top photos.
type UserPhotos struct {
	User   User    `json:"user"`
	Photos []Photo `json:"photos"`
}

// Preview returns up to limit photos with unique ids and a non-empty URL, in feed order.
func (up UserPhotos) Preview(limit int) []Photo {
	photos := lo.UniqBy(up.Photos, func(p Photo) uint64 { return p.ID })
	photos = lo.Filter(photos, func(p Photo, _ int) bool { return p.URL != "" })
	if limit > 0 && len(photos) > limit {
		photos = photos[:limit]
	}
	return photos
}

// Credentials is the body of the login endpoints.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration is the body of the register endpoints and of user creation.
type Registration struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     Role   `json:"role,omitempty"`
}

// AuthToken is the response of the login and register endpoints.
type AuthToken struct {
	Token string `json:"token"`
}

// ProfileUpdate holds the editable fields of the caller's own profile.
// An empty password keeps the current one.
type ProfileUpdate struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password,omitempty"`
}

// UserUpdate holds the fields an admin can change on another account.
type UserUpdate struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Role  Role   `json:"role,omitempty"`
}

// Upload is a file sent as part of a multipart request.
type Upload struct {
	Filename    string
	Content     io.Reader
	Title       string
	Description string
}

// explorePage is the envelope of the explore feed.
type explorePage struct {
	Data *[]UserPhotos `json:"data"`
}

// errorBody is the error payload the API sends on failures.
type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}
