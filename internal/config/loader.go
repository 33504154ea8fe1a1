package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Axelpuff/schedassist/internal/application"
)

// Config captures environment driven configuration values for the assistant
// service.
type Config struct {
	HTTPPort int

	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string

	CalendarBaseURL string
	CalendarICSFeed string

	SQLiteDSN string

	ClarifyThreshold int
	JanitorSpec      string
	Retention        time.Duration

	PreferencesFile string
	Preferences     application.Preferences
}

// Load parses configuration values from the current process environment.
//
// The loader applies defaults for optional fields while validating required
// values, and reports every missing or malformed entry in one error instead
// of stopping at the first.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:         8080,
		GeminiModel:      "gemini-2.0-flash",
		GeminiBaseURL:    "https://generativelanguage.googleapis.com",
		ClarifyThreshold: application.DefaultClarifyThreshold,
		JanitorSpec:      "@every 1h",
		Retention:        24 * time.Hour,
		Preferences: application.Preferences{
			SleepTargetHours: 7,
			SleepStart:       "22:00",
			WakeUp:           "07:00",
		},
	}

	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("SCHEDASSIST_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "SCHEDASSIST_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if key := strings.TrimSpace(os.Getenv("SCHEDASSIST_GEMINI_API_KEY")); key == "" {
		missing = append(missing, "SCHEDASSIST_GEMINI_API_KEY")
	} else {
		cfg.GeminiAPIKey = key
	}
	if model := strings.TrimSpace(os.Getenv("SCHEDASSIST_GEMINI_MODEL")); model != "" {
		cfg.GeminiModel = model
	}
	if base := strings.TrimSpace(os.Getenv("SCHEDASSIST_GEMINI_BASE_URL")); base != "" {
		cfg.GeminiBaseURL = base
	}

	cfg.CalendarBaseURL = strings.TrimSpace(os.Getenv("SCHEDASSIST_CALENDAR_BASE_URL"))
	cfg.CalendarICSFeed = strings.TrimSpace(os.Getenv("SCHEDASSIST_CALENDAR_ICS_FEED"))
	if cfg.CalendarBaseURL == "" && cfg.CalendarICSFeed == "" {
		missing = append(missing, "SCHEDASSIST_CALENDAR_BASE_URL")
	}

	cfg.SQLiteDSN = strings.TrimSpace(os.Getenv("SCHEDASSIST_SQLITE_DSN"))

	if value := strings.TrimSpace(os.Getenv("SCHEDASSIST_CLARIFY_THRESHOLD")); value != "" {
		threshold, err := strconv.Atoi(value)
		if err != nil || threshold <= 0 {
			invalid = append(invalid, "SCHEDASSIST_CLARIFY_THRESHOLD")
		} else {
			cfg.ClarifyThreshold = threshold
		}
	}

	if spec := strings.TrimSpace(os.Getenv("SCHEDASSIST_JANITOR_SPEC")); spec != "" {
		cfg.JanitorSpec = spec
	}
	if value := strings.TrimSpace(os.Getenv("SCHEDASSIST_RETENTION")); value != "" {
		retention, err := time.ParseDuration(value)
		if err != nil || retention <= 0 {
			invalid = append(invalid, "SCHEDASSIST_RETENTION")
		} else {
			cfg.Retention = retention
		}
	}

	cfg.PreferencesFile = strings.TrimSpace(os.Getenv("SCHEDASSIST_PREFERENCES_FILE"))
	if cfg.PreferencesFile != "" {
		preferences, err := loadPreferences(cfg.PreferencesFile, cfg.Preferences)
		if err != nil {
			invalid = append(invalid, "SCHEDASSIST_PREFERENCES_FILE")
		} else {
			cfg.Preferences = preferences
		}
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables are not set: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("environment variables contain invalid values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

// loadPreferences merges a YAML preferences file over the built-in defaults.
func loadPreferences(path string, defaults application.Preferences) (application.Preferences, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return application.Preferences{}, err
	}
	preferences := defaults
	if err := yaml.Unmarshal(data, &preferences); err != nil {
		return application.Preferences{}, err
	}
	if preferences.SleepTargetHours <= 0 || preferences.SleepTargetHours > 12 {
		return application.Preferences{}, fmt.Errorf("config: sleep_target_hours out of range")
	}
	return preferences, nil
}
