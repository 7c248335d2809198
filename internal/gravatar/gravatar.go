// Package gravatar resolves the avatar shown for a user.
package gravatar

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/jon4hz/pictura/internal/config"
	"github.com/samber/lo"
)

const baseURL = "https://www.gravatar.com/avatar/"

var (
	defaultImages = []string{"404", "mp", "identicon", "monsterid", "wavatar", "retro", "robohash", "blank"}
	ratings       = []string{"g", "pg", "r", "x"}
)

// URL returns the Gravatar URL for email.
// Returns an empty string if Gravatar is disabled or email is empty.
func URL(email string, cfg *config.GravatarConfig) string {
	if cfg == nil || !cfg.Enabled {
		return ""
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return ""
	}

	hash := sha256.Sum256([]byte(email))
	u := baseURL + hex.EncodeToString(hash[:])

	params := url.Values{}
	if cfg.DefaultImage != "" {
		params.Set("d", cfg.DefaultImage)
	}
	if cfg.Rating != "" {
		params.Set("r", cfg.Rating)
	}
	if cfg.Size > 0 {
		params.Set("s", strconv.Itoa(cfg.Size))
	}
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

// Avatar returns the uploaded profile picture (made absolute with asset) if there is one,
// otherwise the Gravatar of email.
func Avatar(profilePicture, email string, cfg *config.GravatarConfig, asset func(string) string) string {
	if profilePicture != "" {
		if asset == nil {
			return profilePicture
		}
		return asset(profilePicture)
	}
	return URL(email, cfg)
}

// Validate checks the Gravatar options. A disabled config is always valid.
func Validate(cfg *config.GravatarConfig) error {
	if cfg == nil || !cfg.Enabled {
		return nil
	}
	var errs []error
	if cfg.DefaultImage != "" && !lo.Contains(defaultImages, cfg.DefaultImage) {
		errs = append(errs, fmt.Errorf("invalid gravatar default image %q", cfg.DefaultImage))
	}
	if cfg.Rating != "" && !lo.Contains(ratings, cfg.Rating) {
		errs = append(errs, fmt.Errorf("invalid gravatar rating %q", cfg.Rating))
	}
	if cfg.Size != 0 && (cfg.Size < 1 || cfg.Size > 2048) {
		errs = append(errs, fmt.Errorf("gravatar size must be between 1 and 2048, got %d", cfg.Size))
	}
	return errors.Join(errs...)
}
