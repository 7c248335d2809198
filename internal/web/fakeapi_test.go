package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jon4hz/pictura/internal/imagehost"
)

// fakeAPI is an in-memory image hosting API.
type fakeAPI struct {
	mu        sync.Mutex
	users     map[uint64]*imagehost.User
	passwords map[string]string // email -> password
	tokens    map[string]uint64 // token -> user id
	photos    map[uint64][][]imagehost.Photo
	explore   [][]imagehost.UserPhotos
	requests  map[string]int
	deleted   []uint64
}

var created = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func photo(id, userID uint64, title string) imagehost.Photo {
	return imagehost.Photo{
		ID:        id,
		UserID:    userID,
		URL:       "/uploads/" + strconv.FormatUint(id, 10) + ".jpg",
		Title:     title,
		CreatedAt: created,
	}
}

func newFakeAPI() *fakeAPI {
	alice := &imagehost.User{ID: 1, Name: "Alice", Email: "alice@example.com", Role: imagehost.RoleUser}
	root := &imagehost.User{ID: 2, Name: "Root", Email: "root@example.com", Role: imagehost.RoleAdmin}

	sunrise := photo(1, 1, "Sunrise")
	harbor := photo(2, 1, "Harbor")
	forest := photo(3, 1, "Forest")

	return &fakeAPI{
		users:     map[uint64]*imagehost.User{1: alice, 2: root},
		passwords: map[string]string{alice.Email: "secret", root.Email: "toor"},
		tokens:    map[string]uint64{},
		photos: map[uint64][][]imagehost.Photo{
			1: {{sunrise, harbor}, {harbor, forest}},
		},
		explore: [][]imagehost.UserPhotos{
			{{User: *alice, Photos: []imagehost.Photo{sunrise, harbor}}, {User: *root}},
		},
		requests: map[string]int{},
	}
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", f.login(false))
	mux.HandleFunc("POST /auth/login/admin", f.login(true))
	mux.HandleFunc("GET /users/me/profile", f.authed(func(w http.ResponseWriter, _ *http.Request, user *imagehost.User) {
		writeJSON(w, http.StatusOK, user)
	}))
	mux.HandleFunc("GET /users", f.authed(func(w http.ResponseWriter, _ *http.Request, user *imagehost.User) {
		if !user.IsAdmin() {
			writeJSON(w, http.StatusForbidden, map[string]string{"message": "Forbidden"})
			return
		}
		users := make([]imagehost.User, 0, len(f.users))
		for id := uint64(1); id <= uint64(len(f.users)); id++ {
			if u, ok := f.users[id]; ok {
				users = append(users, *u)
			}
		}
		writeJSON(w, http.StatusOK, users)
	}))
	mux.HandleFunc("GET /users/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		id, _ := strconv.ParseUint(r.PathValue("id"), 10, 64)
		f.mu.Lock()
		defer f.mu.Unlock()
		user, ok := f.users[id]
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "User not found"})
			return
		}
		writeJSON(w, http.StatusOK, user)
	})
	mux.HandleFunc("GET /photos/me", f.authed(func(w http.ResponseWriter, r *http.Request, user *imagehost.User) {
		writeJSON(w, http.StatusOK, pageOf(f.photos[user.ID], r))
	}))
	mux.HandleFunc("GET /photos/user/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		id, _ := strconv.ParseUint(r.PathValue("id"), 10, 64)
		f.mu.Lock()
		defer f.mu.Unlock()
		writeJSON(w, http.StatusOK, pageOf(f.photos[id], r))
	})
	mux.HandleFunc("GET /photos", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		f.mu.Lock()
		defer f.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"data": pageOf(f.explore, r)})
	})
	mux.HandleFunc("DELETE /photos/{id}", f.authed(func(w http.ResponseWriter, r *http.Request, _ *imagehost.User) {
		id, _ := strconv.ParseUint(r.PathValue("id"), 10, 64)
		f.deleted = append(f.deleted, id)
		w.WriteHeader(http.StatusNoContent)
	}))
	return mux
}

func (f *fakeAPI) record(r *http.Request) {
	f.mu.Lock()
	f.requests[r.Method+" "+r.URL.RequestURI()]++
	f.mu.Unlock()
}

// count returns how often a request was made, e.g. "GET /photos/me?page=1".
func (f *fakeAPI) count(request string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[request]
}

func (f *fakeAPI) revokeAll() {
	f.mu.Lock()
	f.tokens = map[string]uint64{}
	f.mu.Unlock()
}

func (f *fakeAPI) login(admin bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		var creds imagehost.Credentials
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid data format"})
			return
		}

		f.mu.Lock()
		defer f.mu.Unlock()
		if pw, ok := f.passwords[creds.Email]; !ok || pw != creds.Password {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid credentials"})
			return
		}
		var user *imagehost.User
		for _, u := range f.users {
			if u.Email == creds.Email {
				user = u
			}
		}
		if admin && !user.IsAdmin() {
			writeJSON(w, http.StatusForbidden, map[string]string{"message": "Not an admin"})
			return
		}
		token := "token-" + strconv.FormatUint(user.ID, 10)
		f.tokens[token] = user.ID
		writeJSON(w, http.StatusOK, imagehost.AuthToken{Token: token})
	}
}

func (f *fakeAPI) authed(next func(http.ResponseWriter, *http.Request, *imagehost.User)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")

		f.mu.Lock()
		defer f.mu.Unlock()
		id, ok := f.tokens[token]
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Unauthorized"})
			return
		}
		next(w, r, f.users[id])
	}
}

func pageOf[T any](pages [][]T, r *http.Request) []T {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 || page > len(pages) {
		return []T{}
	}
	return pages[page-1]
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
