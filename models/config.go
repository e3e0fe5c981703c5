package models

// TwitterConfig represents the "twitter" section of config.yaml.
type TwitterConfig struct {
	BaseURL      string `json:"baseUrl" mapstructure:"baseUrl"`           // Link prefix used in notifications
	MirrorURL    string `json:"mirrorUrl" mapstructure:"mirrorUrl"`       // Nitter-style mirror the fetcher scrapes
	DBPath       string `json:"dbPath" mapstructure:"dbPath"`             // SQLite database location
	PollInterval int    `json:"pollInterval" mapstructure:"pollInterval"` // Seconds between poll cycles
	Pacing       int    `json:"pacing" mapstructure:"pacing"`             // Seconds between task launches within a cycle
	FetchTimeout int    `json:"fetchTimeout" mapstructure:"fetchTimeout"` // Per-request timeout in seconds
}

// CommandsConfig represents the "commands" section of config.yaml.
type CommandsConfig struct {
	Auth AuthConfig `json:"auth" mapstructure:"auth"`
}

// AuthConfig holds the permission lists used by utils.Auth.
type AuthConfig struct {
	Developers  []string `json:"developers" mapstructure:"developers"`
	AdminsRoles []string `json:"admins_roles" mapstructure:"admins_roles"`
	Guest       []string `json:"guest" mapstructure:"guest"`
}
