package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// initTemplate is written by 'reqcheck init'.
const initTemplate = `# reqcheck configuration
name: %s
version: "1.0"

provider:
  name: anthropic                 # anthropic or openai (any OpenAI-compatible endpoint)
  model: claude-sonnet-4-20250514
  api_key: ${ANTHROPIC_API_KEY}
  # base_url: https://openrouter.ai/api/v1
  # temperature: 0.2
  # max_tokens: 4096
  # timeout: 6m

defaults:
  max_retries: 10                 # total attempts per agent
  backoff: 20s                    # pause after a failed attempt
  backoff_strategy: fixed         # fixed or exponential
  # max_backoff: 2m
  # backoff_jitter: 0.1           # randomize each pause by up to ±10%%
  # timeout: 30m                  # whole run

logging:
  level: info                     # debug, info, warn, error
  format: text                    # text or json
  # file: .reqcheck/agent_calls.log
  # metrics_file: .reqcheck/metrics.jsonl

state:
  driver: sqlite                  # sqlite, postgres, memory
  path: .reqcheck/state.db        # file path, or DSN for postgres

pipeline:
  error_strategy: fail-fast       # fail-fast or continue
  code_analysis: false
  # output: report.md

# Per-role overrides. Known roles: %s
# roles:
#   summarizer:
#     name: Digest
#     max_retries: 3

hooks:
  enabled: false
  hooks: []
  #  - name: notify
  #    type: webhook
  #    url: https://example.com/hook
  #    events: [pipeline.completed, pipeline.failed]
`

// InitTemplate renders a commented configuration for a new project.
func InitTemplate(name string, roleIDs []string) string {
	if name == "" {
		name = "reqcheck"
	}
	return fmt.Sprintf(initTemplate, name, strings.Join(roleIDs, ", "))
}

// WriteInit writes dir/reqcheck.yaml. An existing file is kept unless force.
func WriteInit(dir, name string, roleIDs []string, force bool) (string, error) {
	path := filepath.Join(dir, FileName)
	if _, err := os.Stat(path); err == nil && !force {
		return path, fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return path, fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(InitTemplate(name, roleIDs)), 0644); err != nil {
		return path, fmt.Errorf("failed to write config: %w", err)
	}
	return path, nil
}

// Redacted returns a copy safe to print.
func (c *Config) Redacted() *Config {
	cp := *c
	if cp.Provider.APIKey != "" {
		cp.Provider.APIKey = "********"
	}
	if cp.State.Driver == "postgres" && cp.State.Path != "" {
		cp.State.Path = "********"
	}
	return &cp
}

// Marshal renders the configuration as YAML.
func Marshal(c *Config) ([]byte, error) {
	return yaml.Marshal(c)
}
