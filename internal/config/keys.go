package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

// secretsService is the service name secrets are filed under.
const secretsService = "expertfinder"

var specs = []keySpec{
	{
		key: "server.host", typ: kString, env: "EXPERTFINDER_SERVER_HOST",
		apply:   func(cfg *Config, v any) { cfg.Server.Host = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.Host },
	},
	{
		key: "server.port", typ: kInt, env: "EXPERTFINDER_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.max_inflight", typ: kInt, env: "EXPERTFINDER_SERVER_MAX_INFLIGHT",
		apply:   func(cfg *Config, v any) { cfg.Server.MaxInflight = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.MaxInflight },
	},
	{
		key: "workspace.base_url", typ: kString, env: "EXPERTFINDER_WORKSPACE_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Workspace.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Workspace.BaseURL },
	},
	{
		key: "workspace.app_id", typ: kString, env: "EXPERTFINDER_APP_ID",
		apply:   func(cfg *Config, v any) { cfg.Workspace.AppID = v.(string) },
		extract: func(cfg Config) any { return cfg.Workspace.AppID },
	},
	{
		key: "workspace.app_secret", typ: kString, env: "EXPERTFINDER_APP_SECRET",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Workspace.AppSecret = v.(string) },
		extract: func(cfg Config) any { return cfg.Workspace.AppSecret },
	},
	{
		key: "workspace.webhook_secret", typ: kString, env: "EXPERTFINDER_WEBHOOK_SECRET",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Workspace.WebhookSecret = v.(string) },
		extract: func(cfg Config) any { return cfg.Workspace.WebhookSecret },
	},
	{
		key: "webhook.verify_signatures", typ: kBool, env: "EXPERTFINDER_WEBHOOK_VERIFY_SIGNATURES",
		apply:   func(cfg *Config, v any) { cfg.Webhook.VerifySignatures = v.(bool) },
		extract: func(cfg Config) any { return cfg.Webhook.VerifySignatures },
	},
	{
		key: "directory.host", typ: kString, env: "EXPERTFINDER_DIRECTORY_HOST",
		apply:   func(cfg *Config, v any) { cfg.Directory.Host = v.(string) },
		extract: func(cfg Config) any { return cfg.Directory.Host },
	},
	{
		key: "directory.user", typ: kString, env: "EXPERTFINDER_DIRECTORY_USER",
		apply:   func(cfg *Config, v any) { cfg.Directory.User = v.(string) },
		extract: func(cfg Config) any { return cfg.Directory.User },
	},
	{
		key: "directory.password", typ: kString, env: "EXPERTFINDER_DIRECTORY_PASSWORD",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Directory.Password = v.(string) },
		extract: func(cfg Config) any { return cfg.Directory.Password },
	},
	{
		key: "directory.page_size", typ: kInt, env: "EXPERTFINDER_DIRECTORY_PAGE_SIZE",
		apply:   func(cfg *Config, v any) { cfg.Directory.PageSize = v.(int) },
		extract: func(cfg Config) any { return cfg.Directory.PageSize },
	},
	{
		key: "org.name", typ: kString, env: "EXPERTFINDER_ORG_NAME",
		apply:   func(cfg *Config, v any) { cfg.Org.Name = v.(string) },
		extract: func(cfg Config) any { return cfg.Org.Name },
	},
	{
		key: "org.avatar_url", typ: kString, env: "EXPERTFINDER_ORG_AVATAR_URL",
		apply:   func(cfg *Config, v any) { cfg.Org.AvatarURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Org.AvatarURL },
	},
	{
		key: "usage.url", typ: kString, env: "EXPERTFINDER_USAGE_URL",
		apply:   func(cfg *Config, v any) { cfg.Usage.URL = v.(string) },
		extract: func(cfg Config) any { return cfg.Usage.URL },
	},
	{
		key: "usage.author", typ: kString, env: "EXPERTFINDER_USAGE_AUTHOR",
		apply:   func(cfg *Config, v any) { cfg.Usage.Author = v.(string) },
		extract: func(cfg Config) any { return cfg.Usage.Author },
	},
	{
		key: "usage.datacenter", typ: kString, env: "EXPERTFINDER_USAGE_DATACENTER",
		apply:   func(cfg *Config, v any) { cfg.Usage.Datacenter = v.(string) },
		extract: func(cfg Config) any { return cfg.Usage.Datacenter },
	},
	{
		key: "log.level", typ: kString, env: "EXPERTFINDER_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func specByKey(key string) (keySpec, bool) {
	for _, s := range specs {
		if s.key == key {
			return s, true
		}
	}
	return keySpec{}, false
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kBool:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				if bv, err := strconv.ParseBool(v); err == nil {
					s.apply(cfg, bv)
				} else {
					fmt.Fprintf(os.Stderr, "[WARN] could not parse bool from config key %s=%q: %v. Using default value.\n", s.key, v, err)
				}
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kBool:
			if b, err := strconv.ParseBool(raw); err == nil {
				s.apply(cfg, b)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse bool from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}

// applySecrets fills secret keys that are still empty from the secrets store.
// The account name is the config key.
func applySecrets(cfg *Config, secrets secretReader) {
	for _, s := range specs {
		if !s.secret {
			continue
		}
		if v, _ := s.extract(*cfg).(string); v != "" {
			continue
		}
		if v, err := secrets.Get(secretsService, s.key); err == nil && v != "" {
			s.apply(cfg, v)
		}
	}
}
