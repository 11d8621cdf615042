package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig is the YAML overrides file structure. Pointer fields distinguish
// "absent" from zero values; anything set here is applied on top of the
// defaults and below the environment.
type fileConfig struct {
	HTTPPort         *string  `yaml:"http_port"`
	MaxPlannerTurns  *int     `yaml:"max_planner_turns"`
	MaxStageRetries  *int     `yaml:"max_stage_retries"`
	MaxRCARetries    *int     `yaml:"max_rca_retries"`
	PipelineTimeoutS *int     `yaml:"pipeline_timeout_s"`
	PlannerTimeoutS  *int     `yaml:"planner_timeout_s"`
	UserReplyTimeoutS *int    `yaml:"user_reply_timeout_s"`
	StageTimeoutS    *int     `yaml:"stage_timeout_s"`
	ValidatorTimeoutS *int    `yaml:"validator_timeout_s"`
	PollIntervalS    *int     `yaml:"poll_interval_s"`
	PendingQueueSize *int     `yaml:"pending_queue_size"`
	FailOnLintErrors *bool    `yaml:"fail_on_lint_errors"`
	LinterEndpoint   *string  `yaml:"linter_endpoint"`
	RunnerEndpoint   *string  `yaml:"runner_endpoint"`
	ArtifactBucket   *string  `yaml:"artifact_bucket"`
	LLMModel         *string  `yaml:"llm_model"`
	CORSOrigins      []string `yaml:"cors_origins"`
}

// Load builds the configuration: defaults, then the optional YAML overrides
// file named by CONFIG_FILE, then environment variables.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := applyFile(cfg, path); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}

	setString(&cfg.HTTPPort, fc.HTTPPort)
	setInt(&cfg.MaxPlannerTurns, fc.MaxPlannerTurns)
	setInt(&cfg.MaxStageRetries, fc.MaxStageRetries)
	setInt(&cfg.MaxRCARetries, fc.MaxRCARetries)
	setSeconds(&cfg.PipelineTimeout, fc.PipelineTimeoutS)
	setSeconds(&cfg.PlannerTimeout, fc.PlannerTimeoutS)
	setSeconds(&cfg.UserReplyTimeout, fc.UserReplyTimeoutS)
	setSeconds(&cfg.StageTimeout, fc.StageTimeoutS)
	setSeconds(&cfg.ValidatorTimeout, fc.ValidatorTimeoutS)
	setSeconds(&cfg.PollInterval, fc.PollIntervalS)
	setInt(&cfg.PendingQueueSize, fc.PendingQueueSize)
	if fc.FailOnLintErrors != nil {
		cfg.FailOnLintErrors = *fc.FailOnLintErrors
	}
	setString(&cfg.LinterEndpoint, fc.LinterEndpoint)
	setString(&cfg.RunnerEndpoint, fc.RunnerEndpoint)
	setString(&cfg.ArtifactBucket, fc.ArtifactBucket)
	setString(&cfg.LLMModel, fc.LLMModel)
	if len(fc.CORSOrigins) > 0 {
		cfg.CORSOrigins = fc.CORSOrigins
	}
	return nil
}

func applyEnv(cfg *Config) error {
	cfg.HTTPPort = getEnv("HTTP_PORT", cfg.HTTPPort)
	cfg.LinterEndpoint = getEnv("LINTER_ENDPOINT", cfg.LinterEndpoint)
	cfg.RunnerEndpoint = getEnv("RUNNER_ENDPOINT", cfg.RunnerEndpoint)
	cfg.ArtifactBucket = getEnv("ARTIFACT_BUCKET", cfg.ArtifactBucket)
	cfg.LLMCredential = getEnv("LLM_CREDENTIAL", cfg.LLMCredential)
	cfg.LLMModel = getEnv("LLM_MODEL", cfg.LLMModel)

	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		origins := strings.Split(v, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		cfg.CORSOrigins = origins
	}

	var err error
	if cfg.MaxPlannerTurns, err = getEnvInt("MAX_PLANNER_TURNS", cfg.MaxPlannerTurns); err != nil {
		return err
	}
	if cfg.MaxStageRetries, err = getEnvInt("MAX_STAGE_RETRIES", cfg.MaxStageRetries); err != nil {
		return err
	}
	if cfg.MaxRCARetries, err = getEnvInt("MAX_RCA_RETRIES", cfg.MaxRCARetries); err != nil {
		return err
	}
	if cfg.PendingQueueSize, err = getEnvInt("PENDING_QUEUE_SIZE", cfg.PendingQueueSize); err != nil {
		return err
	}
	if cfg.PipelineTimeout, err = getEnvSeconds("PIPELINE_TIMEOUT_S", cfg.PipelineTimeout); err != nil {
		return err
	}
	if cfg.PlannerTimeout, err = getEnvSeconds("PLANNER_TIMEOUT_S", cfg.PlannerTimeout); err != nil {
		return err
	}
	if cfg.UserReplyTimeout, err = getEnvSeconds("USER_REPLY_TIMEOUT_S", cfg.UserReplyTimeout); err != nil {
		return err
	}
	if cfg.StageTimeout, err = getEnvSeconds("STAGE_TIMEOUT_S", cfg.StageTimeout); err != nil {
		return err
	}
	if cfg.ValidatorTimeout, err = getEnvSeconds("VALIDATOR_TIMEOUT_S", cfg.ValidatorTimeout); err != nil {
		return err
	}
	if cfg.PollInterval, err = getEnvSeconds("POLL_INTERVAL_S", cfg.PollInterval); err != nil {
		return err
	}
	if cfg.FailOnLintErrors, err = getEnvBool("FAIL_ON_LINT_ERRORS", cfg.FailOnLintErrors); err != nil {
		return err
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q is not an integer", key, v)
	}
	return n, nil
}

func getEnvSeconds(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q is not an integer number of seconds", key, v)
	}
	return time.Duration(n) * time.Second, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %q is not a boolean", key, v)
	}
	return b, nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setSeconds(dst *time.Duration, src *int) {
	if src != nil {
		*dst = time.Duration(*src) * time.Second
	}
}
