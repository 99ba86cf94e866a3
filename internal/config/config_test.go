package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shu-bamma/anime-ai-digest/internal/domain"
	"github.com/shu-bamma/anime-ai-digest/internal/scoring"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(configPathEnv, "")
	t.Setenv(databaseDSNEnv, "")
	t.Setenv(githubTokenEnv, "")

	cfg := Load()

	if cfg.Digest.WindowHours != 72 || cfg.Digest.MaxItems != 50 || cfg.Digest.MinItems != 5 {
		t.Errorf("digest defaults = %+v", cfg.Digest)
	}
	if cfg.Selection.MinPerCategory != 3 || cfg.Selection.MaxPerSource != 8 {
		t.Errorf("selection defaults = %+v", cfg.Selection)
	}
	if len(cfg.Sources) == 0 {
		t.Fatal("no default sources")
	}
	if cfg.Scheduler.CronExpression != "0 7 * * 3" {
		t.Errorf("cron = %q", cfg.Scheduler.CronExpression)
	}
	if err := cfg.Scoring.Weights.Validate(); err != nil {
		t.Errorf("default weights invalid: %v", err)
	}
}

func TestLoadMergesYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `
logging:
  level: warn
  format: json
digest:
  title: Weekly Anime AI
  minItems: 3
scheduler:
  cronExpression: "0 9 * * 1"
sources:
  - id: only_source
    category: models
    fetcher: feed
    url: https://example.com/feed.atom
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(configPathEnv, path)
	t.Setenv(githubTokenEnv, "")

	cfg := Load()

	if cfg.Logging.Level != "warn" || cfg.Logging.Format != "json" {
		t.Errorf("logging = %+v", cfg.Logging)
	}
	if cfg.Digest.Title != "Weekly Anime AI" {
		t.Errorf("title = %q", cfg.Digest.Title)
	}
	if cfg.Digest.MinItems != 3 {
		t.Errorf("minItems = %d", cfg.Digest.MinItems)
	}
	if cfg.Digest.MaxItems != 50 {
		t.Errorf("maxItems should keep default, got %d", cfg.Digest.MaxItems)
	}
	if cfg.Scheduler.CronExpression != "0 9 * * 1" {
		t.Errorf("cron = %q", cfg.Scheduler.CronExpression)
	}
	if len(cfg.Sources) != 1 || cfg.Sources[0].ID != "only_source" {
		t.Errorf("sources = %+v", cfg.Sources)
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	t.Setenv(configPathEnv, "")
	t.Setenv(databaseDSNEnv, "postgres://env:env@db:5432/digest")
	t.Setenv(resendAPIKeyEnv, "re_env")
	t.Setenv(recipientsEnv, "a@example.com, b@example.com,")
	t.Setenv(githubTokenEnv, "ghp_test")

	cfg := Load()

	if cfg.Database.DSN != "postgres://env:env@db:5432/digest" {
		t.Errorf("dsn = %q", cfg.Database.DSN)
	}
	if cfg.Email.APIKey != "re_env" {
		t.Errorf("resend key = %q", cfg.Email.APIKey)
	}
	if len(cfg.Email.Recipients) != 2 {
		t.Errorf("recipients = %v", cfg.Email.Recipients)
	}

	tokened := 0
	for _, src := range cfg.Sources {
		if src.Options["token"] == "ghp_test" {
			tokened++
		}
	}
	if tokened != 2 {
		t.Errorf("github sources with token = %d, want 2", tokened)
	}
}

func TestLoadRevertsInvalidWeights(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `
scoring:
  weights:
    recency: 0.9
    engagement: 0.9
    keyword: 0.9
    sourcePriority: 0.9
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(configPathEnv, path)
	t.Setenv(githubTokenEnv, "")

	cfg := Load()
	if cfg.Scoring.Weights != scoring.DefaultWeights() {
		t.Errorf("weights = %+v, want defaults", cfg.Scoring.Weights)
	}
}

func TestCategoryPriorities(t *testing.T) {
	t.Parallel()

	s := ScoringConfig{Priorities: map[string]float64{"models": 1.0, "legal": 0.5}}
	got := s.CategoryPriorities()
	if got[domain.CategoryModels] != 1.0 || got[domain.CategoryLegal] != 0.5 {
		t.Errorf("priorities = %v", got)
	}
}

func TestSourceIsEnabled(t *testing.T) {
	t.Parallel()

	off := false
	if (SourceConfig{}).IsEnabled() != true {
		t.Error("missing flag should mean enabled")
	}
	if (SourceConfig{Enabled: &off}).IsEnabled() {
		t.Error("explicit false should disable")
	}
}
