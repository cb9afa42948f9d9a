package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	ServiceID string
	HTTPPort  int

	DatabaseURL string
	RedisURL    string
	MaxDBConns  int32

	KafkaBrokers                []string
	KafkaTopicPreferenceCreated string
	KafkaTopicPreferenceUpdated string

	MailchimpBaseURL string
	MailchimpAPIKey  string
	MailchimpListID  string

	SearchUsersURL   string
	AuthURL          string
	AuthAudience     string
	AuthClientID     string
	AuthClientSecret string
	TokenCacheTTL    time.Duration

	JWTSecret     string
	Subscriptions []string
}

type configFile struct {
	Service struct {
		ID       string `yaml:"id"`
		HTTPPort int    `yaml:"http_port"`
	} `yaml:"service"`
	Dependencies struct {
		PostgresURL                 string   `yaml:"postgres_url"`
		RedisURL                    string   `yaml:"redis_url"`
		KafkaBrokers                []string `yaml:"kafka_brokers"`
		KafkaTopicPreferenceCreated string   `yaml:"kafka_topic_preference_created"`
		KafkaTopicPreferenceUpdated string   `yaml:"kafka_topic_preference_updated"`
		MailchimpBaseURL            string   `yaml:"mailchimp_base_url"`
		MailchimpListID             string   `yaml:"mailchimp_list_id"`
		SearchUsersURL              string   `yaml:"search_users_url"`
		AuthURL                     string   `yaml:"auth_url"`
		AuthAudience                string   `yaml:"auth_audience"`
	} `yaml:"dependencies"`
	Preferences struct {
		Subscriptions []string `yaml:"subscriptions"`
	} `yaml:"preferences"`
}

func LoadConfig(path string) (Config, error) {
	cfg := Config{
		ServiceID:                   "email-preferences-service",
		HTTPPort:                    8080,
		MaxDBConns:                  20,
		KafkaTopicPreferenceCreated: "preference.created",
		KafkaTopicPreferenceUpdated: "preference.updated",
		TokenCacheTTL:               80 * time.Minute,
		Subscriptions: []string{
			"Dev Newsletter",
			"Design Newsletter",
			"Data Science Newsletter",
		},
	}

	raw, err := os.ReadFile(path)
	if err == nil {
		var f configFile
		if unmarshalErr := yaml.Unmarshal(raw, &f); unmarshalErr != nil {
			return Config{}, fmt.Errorf("parse config file: %w", unmarshalErr)
		}
		if f.Service.ID != "" {
			cfg.ServiceID = f.Service.ID
		}
		if f.Service.HTTPPort > 0 {
			cfg.HTTPPort = f.Service.HTTPPort
		}
		if f.Dependencies.PostgresURL != "" {
			cfg.DatabaseURL = f.Dependencies.PostgresURL
		}
		if f.Dependencies.RedisURL != "" {
			cfg.RedisURL = f.Dependencies.RedisURL
		}
		if len(f.Dependencies.KafkaBrokers) > 0 {
			cfg.KafkaBrokers = trimNonEmpty(f.Dependencies.KafkaBrokers)
		}
		if f.Dependencies.KafkaTopicPreferenceCreated != "" {
			cfg.KafkaTopicPreferenceCreated = f.Dependencies.KafkaTopicPreferenceCreated
		}
		if f.Dependencies.KafkaTopicPreferenceUpdated != "" {
			cfg.KafkaTopicPreferenceUpdated = f.Dependencies.KafkaTopicPreferenceUpdated
		}
		if f.Dependencies.MailchimpBaseURL != "" {
			cfg.MailchimpBaseURL = f.Dependencies.MailchimpBaseURL
		}
		if f.Dependencies.MailchimpListID != "" {
			cfg.MailchimpListID = f.Dependencies.MailchimpListID
		}
		if f.Dependencies.SearchUsersURL != "" {
			cfg.SearchUsersURL = f.Dependencies.SearchUsersURL
		}
		if f.Dependencies.AuthURL != "" {
			cfg.AuthURL = f.Dependencies.AuthURL
		}
		if f.Dependencies.AuthAudience != "" {
			cfg.AuthAudience = f.Dependencies.AuthAudience
		}
		if len(f.Preferences.Subscriptions) > 0 {
			cfg.Subscriptions = trimNonEmpty(f.Preferences.Subscriptions)
		}
	}

	cfg.DatabaseURL = envOrDefault("DB_URL", envOrDefault("POSTGRES_URL", cfg.DatabaseURL))
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.KafkaBrokers = envCSV("KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.KafkaTopicPreferenceCreated = envOrDefault("KAFKA_TOPIC_PREFERENCE_CREATED", cfg.KafkaTopicPreferenceCreated)
	cfg.KafkaTopicPreferenceUpdated = envOrDefault("KAFKA_TOPIC_PREFERENCE_UPDATED", cfg.KafkaTopicPreferenceUpdated)
	cfg.MailchimpBaseURL = envOrDefault("MAILCHIMP_API_BASE_URL", cfg.MailchimpBaseURL)
	cfg.MailchimpAPIKey = envOrDefault("MAILCHIMP_API_KEY", cfg.MailchimpAPIKey)
	cfg.MailchimpListID = envOrDefault("MAILCHIMP_LIST_ID", cfg.MailchimpListID)
	cfg.SearchUsersURL = envOrDefault("SEARCH_USERS_URL", cfg.SearchUsersURL)
	cfg.AuthURL = envOrDefault("AUTH0_URL", cfg.AuthURL)
	cfg.AuthAudience = envOrDefault("AUTH0_AUDIENCE", cfg.AuthAudience)
	cfg.AuthClientID = envOrDefault("AUTH0_CLIENT_ID", cfg.AuthClientID)
	cfg.AuthClientSecret = envOrDefault("AUTH0_CLIENT_SECRET", cfg.AuthClientSecret)
	cfg.JWTSecret = envOrDefault("JWT_SECRET", cfg.JWTSecret)
	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.MaxDBConns = int32(envInt("DB_MAX_CONNS", int(cfg.MaxDBConns)))
	cfg.TokenCacheTTL = time.Duration(envInt("TOKEN_CACHE_SECONDS", int(cfg.TokenCacheTTL.Seconds()))) * time.Second

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("missing DB_URL/POSTGRES_URL")
	}
	if cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("missing REDIS_URL")
	}
	if cfg.MailchimpBaseURL == "" || cfg.MailchimpListID == "" {
		return Config{}, fmt.Errorf("missing MAILCHIMP_API_BASE_URL/MAILCHIMP_LIST_ID")
	}
	if cfg.SearchUsersURL == "" {
		return Config{}, fmt.Errorf("missing SEARCH_USERS_URL")
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("missing JWT_SECRET")
	}
	return cfg, nil
}

func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envCSV(name string, fallback []string) []string {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	return trimNonEmpty(strings.Split(raw, ","))
}

func trimNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
