package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"
)

type CacheType string

const (
	CacheTypeMemory CacheType = "memory"
	CacheTypeRedis  CacheType = "redis"
)

// Config holds the configuration for the pictura front end and its dependencies.
type Config struct {
	// Listen is the address the web front end will listen on.
	Listen string `yaml:"listen" mapstructure:"listen"`
	// ServerURL is the public base URL of the web front end.
	ServerURL string `yaml:"server_url" mapstructure:"server_url"`
	// SessionKey is the key used to sign the session cookie.
	SessionKey string `yaml:"session_key" mapstructure:"session_key"`
	// SessionMaxAge is the maximum age of a session in seconds.
	SessionMaxAge int `yaml:"session_max_age" mapstructure:"session_max_age"`
	// SecureCookies marks the session cookie as secure (https only).
	SecureCookies bool `yaml:"secure_cookies" mapstructure:"secure_cookies"`
	// TokenFile is where the command line front end keeps its bearer token.
	TokenFile string `yaml:"token_file" mapstructure:"token_file"`

	// API holds the configuration for the remote image hosting API.
	API *APIConfig `yaml:"api" mapstructure:"api"`
	// Gallery holds the presentation settings of the gallery views.
	Gallery *GalleryConfig `yaml:"gallery" mapstructure:"gallery"`
	// Cache holds the cache engine configuration.
	Cache *CacheConfig `yaml:"cache" mapstructure:"cache"`
	// Images holds the thumbnail cache configuration.
	Images *ImagesConfig `yaml:"images" mapstructure:"images"`
	// Gravatar holds the configuration for Gravatar profile pictures.
	Gravatar *GravatarConfig `yaml:"gravatar" mapstructure:"gravatar"`
}

// APIConfig holds the configuration for the remote image hosting API.
type APIConfig struct {
	// URL is the base URL of the API. Image assets are served relative to it.
	URL string `yaml:"url" mapstructure:"url"`
	// Timeout is the timeout of a single request. Zero disables the timeout.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// GalleryConfig holds the presentation settings of the gallery views.
type GalleryConfig struct {
	// PreviewLimit is the number of photos shown per user on the explore feed.
	PreviewLimit int `yaml:"preview_limit" mapstructure:"preview_limit"`
}

// CacheConfig holds the cache engine configuration.
type CacheConfig struct {
	// Type is the cache engine, either "memory" or "redis".
	Type CacheType `yaml:"type" mapstructure:"type"`
	// RedisURL is the address of the redis server.
	RedisURL string `yaml:"redis_url" mapstructure:"redis_url"`
	// TTL is how long user directory entries stay cached.
	TTL time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// ImagesConfig holds the thumbnail cache configuration.
type ImagesConfig struct {
	// CacheDir is the directory scaled thumbnails are written to.
	CacheDir string `yaml:"cache_dir" mapstructure:"cache_dir"`
	// MaxWidth is the maximum width of a thumbnail.
	MaxWidth int `yaml:"max_width" mapstructure:"max_width"`
	// MaxHeight is the maximum height of a thumbnail.
	MaxHeight int `yaml:"max_height" mapstructure:"max_height"`
	// Quality is the JPEG quality (1-100).
	Quality int `yaml:"quality" mapstructure:"quality"`
	// MaxAge is the age after which cached thumbnails are removed.
	MaxAge time.Duration `yaml:"max_age" mapstructure:"max_age"`
	// CleanupSchedule is the cron schedule of the thumbnail cleanup job.
	CleanupSchedule string `yaml:"cleanup_schedule" mapstructure:"cleanup_schedule"`
}

// GravatarConfig holds the configuration for Gravatar profile pictures.
type GravatarConfig struct {
	// Enabled indicates whether Gravatar support is enabled.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// DefaultImage is the default image to use when no Gravatar is found.
	// Valid values: "404", "mp", "identicon", "monsterid", "wavatar", "retro", "robohash", "blank"
	DefaultImage string `yaml:"default_image" mapstructure:"default_image"`
	// Rating is the maximum rating for Gravatar images.
	// Valid values: "g", "pg", "r", "x"
	Rating string `yaml:"rating" mapstructure:"rating"`
	// Size is the size of the Gravatar image in pixels (1-2048).
	Size int `yaml:"size" mapstructure:"size"`
}

// Load reads the configuration from the specified path and returns a Config struct.
// If path is empty, it will use default search paths for config files.
// A missing config file is not an error, defaults and environment variables are used instead.
func Load(path string) (*Config, error) {
	v := viper.New()

	bindNestedEnv(v)
	setDefaults(v)

	v.SetConfigType("yaml")
	v.SetEnvPrefix("PICTURA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var configFileFound bool
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.pictura")
		v.AddConfigPath("/etc/pictura")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		configFileFound = true
	}

	if configFileFound {
		log.Debug("Using config file", "file", v.ConfigFileUsed())
		log.Debug("Environment variables with the PICTURA_ prefix override config file values")
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	sanitizeConfig(&c)

	if err := validateConfig(&c); err != nil {
		return nil, err
	}

	return &c, nil
}

// setDefaults sets default values for the configuration.
func setDefaults(v *viper.Viper) {
	v.SetDefault("listen", "0.0.0.0:3003")
	v.SetDefault("server_url", "http://localhost:3003")
	v.SetDefault("session_key", "")
	v.SetDefault("session_max_age", 172800) // 48 hour
	v.SetDefault("secure_cookies", false)
	v.SetDefault("token_file", defaultTokenFile())

	// API defaults
	v.SetDefault("api.url", "https://image-hosting.kuncipintu.my.id")
	v.SetDefault("api.timeout", 30*time.Second)

	// Gallery defaults
	v.SetDefault("gallery.preview_limit", 7)

	// Cache defaults
	v.SetDefault("cache.type", CacheTypeMemory)
	v.SetDefault("cache.ttl", 10*time.Minute)

	// Images defaults
	v.SetDefault("images.cache_dir", "./data/cache/images")
	v.SetDefault("images.max_width", 340)
	v.SetDefault("images.max_height", 500)
	v.SetDefault("images.quality", 85)
	v.SetDefault("images.max_age", 7*24*time.Hour)
	v.SetDefault("images.cleanup_schedule", "0 */6 * * *")

	// Gravatar defaults
	v.SetDefault("gravatar.enabled", false)
	v.SetDefault("gravatar.default_image", "identicon")
	v.SetDefault("gravatar.rating", "g")
	v.SetDefault("gravatar.size", 80)
}

// the auto env function from viper only works for keys that viper already knows about.
// Keys without a default have to be bound manually.
func bindNestedEnv(v *viper.Viper) {
	v.MustBindEnv("cache.redis_url", "PICTURA_CACHE_REDIS_URL")
}

func defaultTokenFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".pictura-token"
	}
	return filepath.Join(dir, "pictura", "token")
}

// sanitizeConfig sanitizes the configuration values.
func sanitizeConfig(c *Config) {
	if c == nil {
		return
	}

	c.Listen = strings.TrimSpace(c.Listen)

	if c.API != nil {
		c.API.URL = urlSanitize(c.API.URL)
	}

	if c.ServerURL != "" {
		c.ServerURL = urlSanitize(c.ServerURL)
	}

	if c.Cache != nil {
		c.Cache.RedisURL = strings.TrimSpace(c.Cache.RedisURL)
	}
}

func urlSanitize(url string) string {
	return strings.TrimSuffix(strings.TrimSpace(url), "/")
}

// validateConfig validates the configuration.
func validateConfig(c *Config) error {
	if c == nil {
		return fmt.Errorf("missing pictura config")
	}

	if c.API == nil || c.API.URL == "" {
		return fmt.Errorf("api URL is required")
	}
	u, err := url.Parse(c.API.URL)
	if err != nil {
		return fmt.Errorf("invalid api URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("api URL must use http or https, got %q", u.Scheme)
	}
	if c.API.Timeout < 0 {
		return fmt.Errorf("api timeout must not be negative")
	}

	if c.SessionMaxAge <= 0 {
		return fmt.Errorf("session max age must be positive")
	}

	if c.Gallery == nil {
		c.Gallery = &GalleryConfig{PreviewLimit: 7}
	}
	if c.Gallery.PreviewLimit <= 0 {
		return fmt.Errorf("gallery preview limit must be positive")
	}

	if c.Cache != nil {
		switch c.Cache.Type {
		case CacheTypeMemory:
		case CacheTypeRedis:
			if c.Cache.RedisURL == "" {
				return fmt.Errorf("redis URL is required when the redis cache is used")
			}
		default:
			return fmt.Errorf("unknown cache type %q", c.Cache.Type)
		}
	}

	if c.Images != nil {
		if c.Images.MaxWidth <= 0 || c.Images.MaxHeight <= 0 {
			return fmt.Errorf("image max width and height must be positive")
		}
		if c.Images.Quality < 1 || c.Images.Quality > 100 {
			return fmt.Errorf("image quality must be between 1 and 100")
		}
	}

	return nil
}

// Validate checks the settings only the web front end needs.
func (c *Config) Validate() error {
	if c.SessionKey == "" {
		return fmt.Errorf("session key is required to serve the web front end")
	}
	if len(c.SessionKey) < 32 {
		log.Warn("session key is shorter than 32 bytes, consider using a longer key")
	}
	return nil
}
