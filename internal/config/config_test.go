package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// mockSecrets is a test double for the secrets store.
type mockSecrets struct {
	values map[string]string
	err    error
	set    map[string]string
}

func (m *mockSecrets) Get(service, account string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	v, ok := m.values[account]
	if !ok {
		return "", errors.New("not found")
	}
	return v, nil
}

func (m *mockSecrets) Set(service, account, value string) error {
	if m.set == nil {
		m.set = make(map[string]string)
	}
	m.set[account] = value
	return nil
}

func writeTempConfig(t *testing.T, content string) *fileBackend {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return newFileBackend(path)
}

// clearEnv blanks every EXPERTFINDER_* variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, s := range specs {
		t.Setenv(s.env, "")
	}
}

func TestDefaults(t *testing.T) {
	clearEnv(t)
	b := writeTempConfig(t, `{}`)

	cfg, err := loadWith(b, &mockSecrets{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 3000 {
		t.Errorf("Server.Port = %d, want 3000", cfg.Server.Port)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, "0.0.0.0")
	}
	if cfg.Server.MaxInflight != 64 {
		t.Errorf("Server.MaxInflight = %d, want 64", cfg.Server.MaxInflight)
	}
	if cfg.Workspace.BaseURL != "https://api.watsonwork.ibm.com" {
		t.Errorf("Workspace.BaseURL = %q", cfg.Workspace.BaseURL)
	}
	if !cfg.Webhook.VerifySignatures {
		t.Error("Webhook.VerifySignatures = false, want true")
	}
	if cfg.Directory.Host != "https://apps.na.collabserv.com" {
		t.Errorf("Directory.Host = %q", cfg.Directory.Host)
	}
	if cfg.Directory.PageSize != 30 {
		t.Errorf("Directory.PageSize = %d, want 30", cfg.Directory.PageSize)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "info")
	}
}

func TestBackendValues(t *testing.T) {
	clearEnv(t)
	b := writeTempConfig(t, `{
		"server.port": 8080,
		"workspace.app_id": "app-123",
		"webhook.verify_signatures": false,
		"directory.host": "https://profiles.example.com/",
		"directory.page_size": "50",
		"org.name": "Example Corp"
	}`)

	cfg, err := loadWith(b, &mockSecrets{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Workspace.AppID != "app-123" {
		t.Errorf("Workspace.AppID = %q", cfg.Workspace.AppID)
	}
	if cfg.Webhook.VerifySignatures {
		t.Error("Webhook.VerifySignatures = true, want false")
	}
	if cfg.Directory.Host != "https://profiles.example.com" {
		t.Errorf("Directory.Host = %q, want trailing slash trimmed", cfg.Directory.Host)
	}
	if cfg.Directory.PageSize != 50 {
		t.Errorf("Directory.PageSize = %d, want 50", cfg.Directory.PageSize)
	}
	if cfg.Org.Name != "Example Corp" {
		t.Errorf("Org.Name = %q", cfg.Org.Name)
	}
}

func TestSecretsIgnoredInBackend(t *testing.T) {
	clearEnv(t)
	b := writeTempConfig(t, `{"workspace.app_secret": "leaked"}`)

	cfg, err := loadWith(b, &mockSecrets{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Workspace.AppSecret != "" {
		t.Errorf("AppSecret = %q, want secrets never read from the config file", cfg.Workspace.AppSecret)
	}
}

func TestEnvOverride(t *testing.T) {
	clearEnv(t)
	b := writeTempConfig(t, `{"workspace.app_id": "file-id", "server.port": 4000}`)

	t.Setenv("EXPERTFINDER_APP_ID", "env-id")
	t.Setenv("EXPERTFINDER_SERVER_PORT", "5000")
	t.Setenv("EXPERTFINDER_WEBHOOK_VERIFY_SIGNATURES", "false")

	cfg, err := loadWith(b, &mockSecrets{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Workspace.AppID != "env-id" {
		t.Errorf("AppID = %q, want %q", cfg.Workspace.AppID, "env-id")
	}
	if cfg.Server.Port != 5000 {
		t.Errorf("Server.Port = %d, want 5000", cfg.Server.Port)
	}
	if cfg.Webhook.VerifySignatures {
		t.Error("VerifySignatures = true, want false from env")
	}
}

func TestInvalidEnvIntKeepsDefault(t *testing.T) {
	clearEnv(t)
	b := writeTempConfig(t, `{}`)
	t.Setenv("EXPERTFINDER_SERVER_PORT", "not-a-port")

	cfg, err := loadWith(b, &mockSecrets{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 3000 {
		t.Errorf("Server.Port = %d, want default 3000", cfg.Server.Port)
	}
}

func TestSecretsFallback(t *testing.T) {
	clearEnv(t)
	b := writeTempConfig(t, `{}`)
	t.Setenv("EXPERTFINDER_APP_SECRET", "env-secret")

	secrets := &mockSecrets{values: map[string]string{
		"workspace.app_secret":     "file-secret",
		"workspace.webhook_secret": "hook-secret",
		"directory.password":       "dir-pass",
	}}
	cfg, err := loadWith(b, secrets)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Workspace.AppSecret != "env-secret" {
		t.Errorf("AppSecret = %q, want env to win over secrets file", cfg.Workspace.AppSecret)
	}
	if cfg.Workspace.WebhookSecret != "hook-secret" {
		t.Errorf("WebhookSecret = %q, want %q", cfg.Workspace.WebhookSecret, "hook-secret")
	}
	if cfg.Directory.Password != "dir-pass" {
		t.Errorf("Directory.Password = %q, want %q", cfg.Directory.Password, "dir-pass")
	}
}

func TestRequireWorkspace(t *testing.T) {
	cfg := defaults()
	cfg.Workspace.AppID = "app"
	cfg.Workspace.AppSecret = "secret"

	err := cfg.RequireWorkspace()
	if err == nil {
		t.Fatal("expected error for missing webhook secret, got nil")
	}
	if !strings.Contains(err.Error(), "missing required config") {
		t.Errorf("error = %q, want it to mention missing required config", err)
	}
	if !strings.Contains(err.Error(), "EXPERTFINDER_WEBHOOK_SECRET") {
		t.Errorf("error = %q, want it to name the env var", err)
	}

	cfg.Workspace.WebhookSecret = "hook"
	if err := cfg.RequireWorkspace(); err != nil {
		t.Errorf("RequireWorkspace() = %v, want nil", err)
	}
}

func TestRequireDirectory(t *testing.T) {
	cfg := defaults()
	cfg.Directory.User = "bot@example.com"

	if err := cfg.RequireDirectory(); err == nil {
		t.Fatal("expected error for missing directory password, got nil")
	}

	cfg.Directory.Password = "pw"
	if err := cfg.RequireDirectory(); err != nil {
		t.Errorf("RequireDirectory() = %v, want nil", err)
	}
}

func TestLoadEnvFileDoesNotOverride(t *testing.T) {
	const fromFile = "EXPERTFINDER_TEST_ONLY_FROM_FILE"
	const present = "EXPERTFINDER_TEST_ALREADY_SET"
	t.Cleanup(func() { os.Unsetenv(fromFile) })
	t.Setenv(present, "process")

	path := filepath.Join(t.TempDir(), "my.env")
	content := fromFile + "=file\n" + present + "=file\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := loadEnvFile(path); err != nil {
		t.Fatalf("loadEnvFile: %v", err)
	}
	if got := os.Getenv(fromFile); got != "file" {
		t.Errorf("%s = %q, want %q", fromFile, got, "file")
	}
	if got := os.Getenv(present); got != "process" {
		t.Errorf("%s = %q, want process env to win", present, got)
	}
}

func TestLoadEnvFileMissingIsNotAnError(t *testing.T) {
	if err := loadEnvFile(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Errorf("loadEnvFile(missing) = %v, want nil", err)
	}
}

func TestSetKey(t *testing.T) {
	b := writeTempConfig(t, `{}`)
	secrets := &mockSecrets{}

	if err := setKeyWith(b, secrets, "server.port", "9000"); err != nil {
		t.Fatalf("setKeyWith(server.port): %v", err)
	}
	if v, ok, _ := b.GetInt("server.port"); !ok || v != 9000 {
		t.Errorf("server.port = %d (ok=%v), want 9000", v, ok)
	}

	if err := setKeyWith(b, secrets, "workspace.app_secret", "s3cret"); err != nil {
		t.Fatalf("setKeyWith(secret): %v", err)
	}
	if secrets.set["workspace.app_secret"] != "s3cret" {
		t.Errorf("secret not written to secrets store: %v", secrets.set)
	}
	if _, ok, _ := b.GetString("workspace.app_secret"); ok {
		t.Error("secret leaked into the config file backend")
	}

	if err := setKeyWith(b, secrets, "webhook.verify_signatures", "maybe"); err == nil {
		t.Error("expected error for invalid boolean, got nil")
	}
	if err := setKeyWith(b, secrets, "no.such.key", "x"); err == nil {
		t.Error("expected error for unknown key, got nil")
	}
}

func TestFileBackend_IntSurvivesReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	b := newFileBackend(path)

	if err := b.SetInt("server.port", 9000); err != nil {
		t.Fatalf("SetInt: %v", err)
	}
	if v, ok, err := b.GetInt("server.port"); err != nil || !ok || v != 9000 {
		t.Errorf("same process: GetInt = %d, %v, %v; want 9000", v, ok, err)
	}

	reloaded := newFileBackend(path)
	if v, ok, err := reloaded.GetInt("server.port"); err != nil || !ok || v != 9000 {
		t.Errorf("after reload: GetInt = %d, %v, %v; want 9000", v, ok, err)
	}
	if s, _, _ := reloaded.GetString("server.port"); s != "9000" {
		t.Errorf("after reload: GetString = %q, want %q", s, "9000")
	}
}

func TestFileBackend_RejectsFractionalInt(t *testing.T) {
	b := writeTempConfig(t, `{"server.port": 80.5}`)
	if _, ok, err := b.GetInt("server.port"); !ok || err == nil {
		t.Errorf("GetInt(80.5) ok=%v err=%v, want a present key with an error", ok, err)
	}
}

func TestShowAllMasksSecrets(t *testing.T) {
	cfg := defaults()
	cfg.Workspace.AppSecret = "visible?"

	for _, k := range ShowAll(cfg) {
		if k.Key == "workspace.app_secret" && k.Value != "********" {
			t.Errorf("app_secret shown as %q, want masked", k.Value)
		}
		if k.Key == "workspace.webhook_secret" && k.Value != "(unset)" {
			t.Errorf("webhook_secret shown as %q, want (unset)", k.Value)
		}
	}
}

func TestSecretsFileRoundTrip(t *testing.T) {
	f := secretsFile{path: filepath.Join(t.TempDir(), "nested", "secrets.json")}

	if err := f.Set(secretsService, "directory.password", "pw"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := f.Get(secretsService, "directory.password")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "pw" {
		t.Errorf("Get = %q, want %q", got, "pw")
	}
	if _, err := f.Get(secretsService, "missing"); err == nil {
		t.Error("expected error for missing account, got nil")
	}
}

func TestSecretsFile_SetKeepsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.json")
	corrupt := []byte(`{"expertfinder": {"directory.password": `)
	if err := os.WriteFile(path, corrupt, 0o600); err != nil {
		t.Fatal(err)
	}

	f := secretsFile{path: path}
	err := f.Set(secretsService, "workspace.app_secret", "s3cret")
	if err == nil || !strings.Contains(err.Error(), "parsing secrets file") {
		t.Fatalf("Set on a corrupt file: err = %v, want a parse error", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(corrupt) {
		t.Errorf("secrets file rewritten to %q, want it left untouched", got)
	}
}
