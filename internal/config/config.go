package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Default emoji markers. The verify emoji is the admin certification signal;
// the certified and error emoji are bot-reserved presentation markers.
const (
	DefaultVerifyEmoji    = "ballot_box_with_check"
	DefaultCertifiedEmoji = "white_check_mark"
	DefaultErrorEmoji     = "x"
)

// Duration is a time.Duration that unmarshals from YAML duration strings
// like "10s" or "1m30s".
type Duration time.Duration

// UnmarshalYAML implements the yaml.Unmarshaler interface.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}

	*d = Duration(parsed)

	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// DatabaseConfig locates the game record store.
type DatabaseConfig struct {
	// Path is the SQLite database file path.
	Path string `yaml:"path"`
}

// LedgerConfig configures the external ledger publisher.
type LedgerConfig struct {
	// WebhookURL is the endpoint receiving ledger row operations. Empty
	// selects the log-only publisher.
	WebhookURL string `yaml:"webhook_url"`

	// Timeout bounds each webhook request.
	Timeout Duration `yaml:"timeout"`
}

// LoggingConfig configures the daemon's log output.
type LoggingConfig struct {
	// Dir is the rotating log file directory. Empty disables file
	// logging.
	Dir string `yaml:"dir"`

	// Level is the log level name.
	Level string `yaml:"level"`

	// MaxFiles is the number of rotated files to keep.
	MaxFiles int `yaml:"max_files"`

	// MaxFileSizeMB is the rotation threshold in megabytes.
	MaxFileSizeMB int `yaml:"max_file_size_mb"`
}

// Config is the static, process-wide configuration, loaded once at startup
// and never mutated at runtime.
type Config struct {
	// ChannelName is the only channel whose events are processed.
	ChannelName string `yaml:"channel_name"`

	// ScoreCommands are the recognized score-command tokens.
	ScoreCommands []string `yaml:"score_commands"`

	// VerifyEmoji is the admin-only certification emoji.
	VerifyEmoji string `yaml:"verify_emoji"`

	// CertifiedEmoji is the bot-reserved certified marker.
	CertifiedEmoji string `yaml:"certified_emoji"`

	// ErrorEmoji is the bot-reserved error marker.
	ErrorEmoji string `yaml:"error_emoji"`

	// Admins may certify validated reports.
	Admins []string `yaml:"admins"`

	// BigAdmins additionally force-validate with any reaction and file
	// reports under relaxed parsing rules.
	BigAdmins []string `yaml:"big_admins"`

	// MinReportFields is the minimum participant count for non big-admin
	// reports.
	MinReportFields int `yaml:"min_report_fields"`

	// NowPlaying is an optional presence string set at startup.
	NowPlaying string `yaml:"now_playing"`

	// BotUserID is the bot's own user id on the chat platform.
	BotUserID string `yaml:"bot_user_id"`

	Database DatabaseConfig `yaml:"database"`
	Ledger   LedgerConfig   `yaml:"ledger"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// DefaultConfig returns a Config with every default filled in. Loaded files
// overlay these values.
func DefaultConfig() *Config {
	return &Config{
		ChannelName:     "match-reports",
		ScoreCommands:   []string{"!score"},
		VerifyEmoji:     DefaultVerifyEmoji,
		CertifiedEmoji:  DefaultCertifiedEmoji,
		ErrorEmoji:      DefaultErrorEmoji,
		MinReportFields: 2,
		BotUserID:       "matchledger-bot",
		Database: DatabaseConfig{
			Path: defaultDBPath(),
		},
		Ledger: LedgerConfig{
			Timeout: Duration(10 * time.Second),
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// defaultDBPath places the database under the user's home directory,
// falling back to the working directory when home is unknown.
func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "matchledger.db"
	}

	return filepath.Join(home, ".matchledger", "matchledger.db")
}

// Load reads a YAML config file over the defaults and validates the result.
// An empty path returns the validated defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the invariants the rest of the daemon assumes.
func (c *Config) Validate() error {
	if c.ChannelName == "" {
		return fmt.Errorf("config: channel_name is required")
	}
	if len(c.ScoreCommands) == 0 {
		return fmt.Errorf("config: at least one score command is " +
			"required")
	}
	if c.VerifyEmoji == "" || c.CertifiedEmoji == "" || c.ErrorEmoji == "" {
		return fmt.Errorf("config: verify, certified and error emoji " +
			"must all be set")
	}
	if c.VerifyEmoji == c.CertifiedEmoji ||
		c.VerifyEmoji == c.ErrorEmoji ||
		c.CertifiedEmoji == c.ErrorEmoji {

		return fmt.Errorf("config: verify, certified and error emoji " +
			"must be distinct")
	}
	if c.MinReportFields < 1 {
		return fmt.Errorf("config: min_report_fields must be at least 1")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("config: database.path is required")
	}
	if c.Ledger.Timeout <= 0 {
		return fmt.Errorf("config: ledger.timeout must be positive")
	}

	return nil
}
