package config

// Config holds the application configuration.
type Config struct {
	Players  []Player `yaml:"players" validate:"required,min=1,dive"`
	Logger   Logger   `yaml:"logger"`
	Server   Server   `yaml:"server"`
	Database Database `yaml:"database"`
	Sync     Sync     `yaml:"sync"`
	Telegram Telegram `yaml:"telegram"`
}

// Player holds the connection parameters for one remote player. The set
// of meaningful fields depends on Type; a Player is immutable once a
// driver has been constructed from it.
type Player struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	Type string `yaml:"type" validate:"required,oneof=vlc spotify"`

	// Local control endpoint (type: vlc).
	Host     string `yaml:"host,omitempty"`
	Port     int    `yaml:"port,omitempty"`
	Password string `yaml:"password,omitempty"`

	// Cloud API (type: spotify).
	ClientID     string `yaml:"client_id,omitempty"`
	ClientSecret string `yaml:"client_secret,omitempty"`
	RedirectURI  string `yaml:"redirect_uri,omitempty"`

	// WebHelperURL is the companion local discovery endpoint used for
	// basic transport and status while the cloud API is unauthenticated.
	WebHelperURL string `yaml:"web_helper_url,omitempty"`

	// AuthCode is the authorization code most recently obtained through
	// the interactive flow. Cached bearer tokens are honored only while
	// their issuing code matches this value.
	AuthCode string `yaml:"auth_code,omitempty"`

	// AutoConnect connects the player at startup.
	AutoConnect bool `yaml:"auto_connect"`
}

// Logger holds the configuration for the app logging.
type Logger struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Server holds the configuration for the Fiber server.
type Server struct {
	PrintRoutes bool   `yaml:"show_routes"`
	Port        uint32 `yaml:"port"`
}

// Database holds the configuration for the durable key-value store.
type Database struct {
	Path string `yaml:"path" validate:"required"`
}

// Sync holds the configuration for the status synchronizer.
type Sync struct {
	IntervalSeconds int  `yaml:"interval_seconds"`
	WatchConfig     bool `yaml:"watch_config"`
}

// Telegram holds the configuration for the Telegram control surface.
type Telegram struct {
	Enabled      bool     `yaml:"enabled"`
	Token        string   `yaml:"token"`
	AllowedUsers []string `yaml:"allowedUsers"`
}
