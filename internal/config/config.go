package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Workspace WorkspaceConfig
	Webhook   WebhookConfig
	Directory DirectoryConfig
	Org       OrgConfig
	Usage     UsageConfig
	Log       LogConfig
}

type ServerConfig struct {
	Host        string
	Port        int
	MaxInflight int
}

// WorkspaceConfig holds the messaging platform app registration.
type WorkspaceConfig struct {
	BaseURL       string
	AppID         string
	AppSecret     string
	WebhookSecret string
}

type WebhookConfig struct {
	VerifySignatures bool
}

// DirectoryConfig points at the profiles directory service.
type DirectoryConfig struct {
	Host     string
	User     string
	Password string
	PageSize int
}

// OrgConfig controls how shared expert cards are branded in a space.
type OrgConfig struct {
	Name      string
	AvatarURL string
}

type UsageConfig struct {
	URL        string
	Author     string
	Datacenter string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        3000,
			MaxInflight: 64,
		},
		Workspace: WorkspaceConfig{
			BaseURL: "https://api.watsonwork.ibm.com",
		},
		Webhook: WebhookConfig{
			VerifySignatures: true,
		},
		Directory: DirectoryConfig{
			Host:     "https://apps.na.collabserv.com",
			PageSize: 30,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// DefaultEnvFile is the dotenv file consulted when no other path is given.
const DefaultEnvFile = "my.env"

// Load reads configuration from the JSON file backend, the dotenv file at
// envFile, environment variables and the local secrets file, in increasing
// order of precedence (secrets only fill values that are still empty).
//
// Environment variables (EXPERTFINDER_*) override backend values. Variables
// from envFile never override variables already present in the process.
func Load(envFile string) (Config, error) {
	if err := loadEnvFile(envFile); err != nil {
		return Config{}, err
	}
	return loadWith(newPlatformBackend(), secretsFile{})
}

// secretReader abstracts the secrets fallback for testing.
type secretReader interface {
	Get(service, account string) (string, error)
}

func loadWith(b ConfigBackend, secrets secretReader) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)
	applySecrets(&cfg, secrets)

	cfg.Workspace.BaseURL = strings.TrimRight(cfg.Workspace.BaseURL, "/")
	cfg.Directory.Host = strings.TrimRight(cfg.Directory.Host, "/")
	return cfg, nil
}

func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading env file %s: %w", path, err)
	}
	return nil
}

// RequireWorkspace reports the first missing setting needed to talk to the
// messaging platform and to accept its webhooks.
func (c Config) RequireWorkspace() error {
	return requireKeys(c, "workspace.app_id", "workspace.app_secret", "workspace.webhook_secret")
}

// RequireDirectory reports the first missing setting needed to query the
// profiles directory.
func (c Config) RequireDirectory() error {
	return requireKeys(c, "directory.host", "directory.user", "directory.password")
}

func requireKeys(cfg Config, keys ...string) error {
	for _, key := range keys {
		s, ok := specByKey(key)
		if !ok {
			return fmt.Errorf("unknown config key: %q", key)
		}
		if v, _ := s.extract(cfg).(string); v == "" {
			return fmt.Errorf("missing required config: %s. Set it via environment variable %s%s",
				key, s.env, secretHint(s))
		}
	}
	return nil
}

func secretHint(s keySpec) string {
	if !s.secret {
		return " or `expertfinder config set`"
	}
	return " or the secrets file " + secretsFilePath()
}
