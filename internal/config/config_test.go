package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Database.Path != "data/blogwatch.db" {
		t.Fatalf("unexpected database path %q", cfg.Database.Path)
	}
	if cfg.Scheduler.CronExpression != "0 */2 * * *" {
		t.Fatalf("unexpected cron expression %q", cfg.Scheduler.CronExpression)
	}
	if cfg.Scheduler.LogRetentionDays != 30 {
		t.Fatalf("unexpected retention %d", cfg.Scheduler.LogRetentionDays)
	}
	if cfg.Pipeline.MinEnrichLength != 200 {
		t.Fatalf("unexpected enrich floor %d", cfg.Pipeline.MinEnrichLength)
	}
	if cfg.Enrichment.MaxContentLength != 15000 {
		t.Fatalf("unexpected content cap %d", cfg.Enrichment.MaxContentLength)
	}
	if len(cfg.Enrichment.Candidates) != 3 {
		t.Fatalf("expected 3 default candidates, got %d", len(cfg.Enrichment.Candidates))
	}
	if cfg.Enrichment.Candidates[0].Provider != "anthropic" {
		t.Fatalf("unexpected first candidate provider %q", cfg.Enrichment.Candidates[0].Provider)
	}
	if len(cfg.Sources) == 0 {
		t.Fatal("expected default sources to be seeded")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_PATH", "/tmp/override.db")
	t.Setenv("ANTHROPIC_API_KEY", "anthropic-key")
	t.Setenv("SMTP_PORT", "2525")
	t.Setenv("TWILIO_ACCOUNT_SID", "AC123")

	cfg := Load()

	if cfg.Database.Path != "/tmp/override.db" {
		t.Fatalf("database path not overridden: %q", cfg.Database.Path)
	}
	if cfg.Enrichment.Anthropic.APIKey != "anthropic-key" {
		t.Fatal("anthropic key not overridden")
	}
	if cfg.Email.Port != 2525 {
		t.Fatalf("smtp port not overridden: %d", cfg.Email.Port)
	}
	if cfg.Twilio.AccountSID != "AC123" {
		t.Fatal("twilio sid not overridden")
	}
}

func TestLoadInvalidPortKeepsDefault(t *testing.T) {
	t.Setenv("SMTP_PORT", "not-a-port")

	cfg := Load()

	if cfg.Email.Port != 587 {
		t.Fatalf("expected default port 587, got %d", cfg.Email.Port)
	}
}

func TestLoadYAMLFileMerge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := []byte(`
scheduler:
  cronExpression: "15 * * * *"
  timezone: "Europe/Berlin"
pipeline:
  minEnrichLength: 350
enrichment:
  candidates:
    - provider: openai
      model: gpt-4o
sources:
  - name: "Custom Blog"
    url: "https://custom.example.com"
    strategy: "link-discovery"
`)
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("BLOGWATCH_CONFIG", path)

	cfg := Load()

	if cfg.Scheduler.CronExpression != "15 * * * *" {
		t.Fatalf("file cron not applied: %q", cfg.Scheduler.CronExpression)
	}
	if cfg.Scheduler.Location().String() != "Europe/Berlin" {
		t.Fatalf("timezone not bound: %s", cfg.Scheduler.Location())
	}
	if cfg.Pipeline.MinEnrichLength != 350 {
		t.Fatalf("file enrich floor not applied: %d", cfg.Pipeline.MinEnrichLength)
	}
	if len(cfg.Enrichment.Candidates) != 1 || cfg.Enrichment.Candidates[0].Model != "gpt-4o" {
		t.Fatalf("file candidates not applied: %+v", cfg.Enrichment.Candidates)
	}
	if len(cfg.Sources) != 1 || cfg.Sources[0].Name != "Custom Blog" {
		t.Fatalf("file sources not applied: %+v", cfg.Sources)
	}

	// Untouched settings keep their defaults.
	if cfg.Scheduler.CleanupExpression != "0 3 * * *" {
		t.Fatalf("cleanup expression lost: %q", cfg.Scheduler.CleanupExpression)
	}
}

func TestLoadMissingFileFallsBack(t *testing.T) {
	t.Setenv("BLOGWATCH_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))

	cfg := Load()

	if cfg.Scheduler.CronExpression != "0 */2 * * *" {
		t.Fatalf("defaults lost on missing file: %q", cfg.Scheduler.CronExpression)
	}
}
