package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

const defaultExternalHTTPTimeout = 90 * time.Second
const defaultExternalHTTPTimeoutSeconds = int(defaultExternalHTTPTimeout / time.Second)

const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderWorkersAI = "workersai"
	ProviderNone      = "none"
)

type Config struct {
	ListenAddr                 string `yaml:"listen_addr"`
	DBPath                     string `yaml:"db_path"`
	ReportOutputDir            string `yaml:"report_output_dir"`
	ExternalHTTPTimeoutSeconds int    `yaml:"external_http_timeout_seconds"`

	LLMProvider         string `yaml:"llm_provider"`
	LLMModel            string `yaml:"llm_model"`
	AnthropicAPIKey     string `yaml:"anthropic_api_key"`
	OpenAIAPIKey        string `yaml:"openai_api_key"`
	OpenAIBaseURL       string `yaml:"openai_base_url"`
	CloudflareAccountID string `yaml:"cloudflare_account_id"`
	CloudflareAPIToken  string `yaml:"cloudflare_api_token"`

	DigestSchedule string `yaml:"digest_schedule"`
	Timezone       string `yaml:"timezone"`

	GitHubToken          string   `yaml:"github_token"`
	GitHubAPIURL         string   `yaml:"github_api_url"`
	GitHubOrg            string   `yaml:"github_org"`
	GitHubRepos          []string `yaml:"github_repos"`
	GitHubFeedbackLabel  string   `yaml:"github_feedback_label"`
	GitHubImportSchedule string   `yaml:"github_import_schedule"`

	SlackBotToken  string `yaml:"slack_bot_token"`
	SlackChannelID string `yaml:"slack_channel_id"`
	DashboardURL   string `yaml:"dashboard_url"`

	Location *time.Location `yaml:"-"` // computed from Timezone, not from YAML
}

func LoadConfig() Config {
	var cfg Config

	if err := godotenv.Load(); err == nil {
		log.Printf("Loaded environment from .env")
	}

	configPath := "config.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Fatalf("Error parsing %s: %v", configPath, err)
		}
		log.Printf("Loaded config from %s", configPath)
	}

	envOverride(&cfg.ListenAddr, "LISTEN_ADDR")
	envOverride(&cfg.DBPath, "DB_PATH")
	envOverride(&cfg.ReportOutputDir, "REPORT_OUTPUT_DIR")
	envOverrideInt(&cfg.ExternalHTTPTimeoutSeconds, "EXTERNAL_HTTP_TIMEOUT_SECONDS")
	envOverride(&cfg.LLMProvider, "LLM_PROVIDER")
	envOverride(&cfg.LLMModel, "LLM_MODEL")
	envOverride(&cfg.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	envOverride(&cfg.OpenAIAPIKey, "OPENAI_API_KEY")
	envOverride(&cfg.OpenAIBaseURL, "OPENAI_BASE_URL")
	envOverride(&cfg.CloudflareAccountID, "CLOUDFLARE_ACCOUNT_ID")
	envOverride(&cfg.CloudflareAPIToken, "CLOUDFLARE_API_TOKEN")
	envOverride(&cfg.DigestSchedule, "DIGEST_SCHEDULE")
	envOverride(&cfg.Timezone, "TIMEZONE")
	envOverride(&cfg.GitHubToken, "GITHUB_TOKEN")
	envOverride(&cfg.GitHubAPIURL, "GITHUB_API_URL")
	envOverride(&cfg.GitHubOrg, "GITHUB_ORG")
	if repos := os.Getenv("GITHUB_REPOS"); repos != "" {
		cfg.GitHubRepos = nil
		for _, r := range strings.Split(repos, ",") {
			r = strings.TrimSpace(r)
			if r != "" {
				cfg.GitHubRepos = append(cfg.GitHubRepos, r)
			}
		}
	}
	envOverride(&cfg.GitHubFeedbackLabel, "GITHUB_FEEDBACK_LABEL")
	envOverride(&cfg.GitHubImportSchedule, "GITHUB_IMPORT_SCHEDULE")
	envOverride(&cfg.SlackBotToken, "SLACK_BOT_TOKEN")
	envOverride(&cfg.SlackChannelID, "SLACK_CHANNEL_ID")
	envOverride(&cfg.DashboardURL, "DASHBOARD_URL")

	applyDefaults(&cfg)

	switch cfg.LLMProvider {
	case ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			log.Fatalf("anthropic_api_key is required when llm_provider=anthropic")
		}
	case ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			log.Fatalf("openai_api_key is required when llm_provider=openai")
		}
	case ProviderWorkersAI:
		if cfg.CloudflareAccountID == "" || cfg.CloudflareAPIToken == "" {
			log.Fatalf("cloudflare_account_id and cloudflare_api_token are required when llm_provider=workersai")
		}
	case ProviderNone:
		log.Printf("WARNING: llm_provider=none, every classification uses the keyword fallback")
	default:
		log.Fatalf("llm_provider must be 'anthropic', 'openai', 'workersai' or 'none', got '%s'", cfg.LLMProvider)
	}

	if strings.EqualFold(cfg.Timezone, "Local") {
		cfg.Location = time.Local
	} else {
		loc, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			log.Fatalf("invalid timezone '%s': %v", cfg.Timezone, err)
		}
		cfg.Location = loc
	}

	if strings.EqualFold(cfg.DigestSchedule, "off") {
		cfg.DigestSchedule = ""
	}
	if cfg.DigestSchedule != "" {
		if _, err := ParseSchedule(cfg.DigestSchedule); err != nil {
			log.Fatalf("invalid digest_schedule '%s': %v", cfg.DigestSchedule, err)
		}
	}
	if strings.EqualFold(cfg.GitHubImportSchedule, "off") {
		cfg.GitHubImportSchedule = ""
	}
	if cfg.GitHubImportSchedule != "" {
		if _, err := ParseSchedule(cfg.GitHubImportSchedule); err != nil {
			log.Fatalf("invalid github_import_schedule '%s': %v", cfg.GitHubImportSchedule, err)
		}
	}
	if cfg.GitHubToken != "" && cfg.GitHubOrg == "" && len(cfg.GitHubRepos) == 0 {
		log.Fatalf("github_token is set but neither github_org nor github_repos is configured")
	}
	if cfg.ExternalHTTPTimeoutSeconds < 5 {
		log.Fatalf("invalid external_http_timeout_seconds '%d': must be >= 5", cfg.ExternalHTTPTimeoutSeconds)
	}
	if cfg.SlackBotToken != "" && cfg.SlackChannelID == "" {
		log.Printf("WARNING: slack_bot_token is set but slack_channel_id is empty, Slack posting disabled")
	}

	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8787"
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "./feedback.db"
	}
	if cfg.ReportOutputDir == "" {
		cfg.ReportOutputDir = "./reports"
	}
	if cfg.ExternalHTTPTimeoutSeconds == 0 {
		cfg.ExternalHTTPTimeoutSeconds = defaultExternalHTTPTimeoutSeconds
	}
	if cfg.LLMProvider == "" {
		cfg.LLMProvider = ProviderWorkersAI
	}
	cfg.LLMProvider = strings.ToLower(strings.TrimSpace(cfg.LLMProvider))
	if cfg.DigestSchedule == "" {
		cfg.DigestSchedule = "0 9 * * *"
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "UTC"
	}
	if cfg.GitHubAPIURL == "" {
		cfg.GitHubAPIURL = "https://api.github.com"
	}
	if cfg.GitHubFeedbackLabel == "" {
		cfg.GitHubFeedbackLabel = "feedback"
	}
	if cfg.DashboardURL == "" {
		cfg.DashboardURL = "https://your-dashboard-url.com"
	}
}

// ParseSchedule parses a standard 5-field cron expression
// (minute hour day-of-month month day-of-week).
func ParseSchedule(expr string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	return parser.Parse(strings.TrimSpace(expr))
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}

func (c Config) SlackConfigured() bool {
	return c.SlackBotToken != "" && c.SlackChannelID != ""
}

func (c Config) GitHubConfigured() bool {
	return c.GitHubToken != "" && (c.GitHubOrg != "" || len(c.GitHubRepos) > 0)
}

func (c Config) LLMEnabled() bool {
	return c.LLMProvider != ProviderNone
}
