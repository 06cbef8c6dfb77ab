package config

// ProviderType identifies an LLM provider.
type ProviderType string

const (
	ProviderOpenAI     ProviderType = "openai"
	ProviderOpenRouter ProviderType = "openrouter"
)

// Config is the top-level taskintake configuration, corresponding to .taskintake.yml.
type Config struct {
	Port           int          `yaml:"port" koanf:"port"`
	DataDir        string       `yaml:"data_dir" koanf:"data_dir"`
	AllowAll       bool         `yaml:"allow_all_origins" koanf:"allow_all_origins"`
	Provider       ProviderType `yaml:"provider" koanf:"provider"`
	Model          string       `yaml:"model" koanf:"model"`
	WhisperModel   string       `yaml:"whisper_model" koanf:"whisper_model"`
	RequestsPerMin int          `yaml:"requests_per_min" koanf:"requests_per_min"`
	Audio          AudioConfig  `yaml:"audio" koanf:"audio"`
	Quota          QuotaConfig  `yaml:"quota" koanf:"quota"`
}

// AudioConfig holds the ceilings applied to voice input.
type AudioConfig struct {
	MaxBytes   int64   `yaml:"max_bytes" koanf:"max_bytes"`
	MaxSeconds float64 `yaml:"max_seconds" koanf:"max_seconds"`
}

// QuotaConfig holds per-user AI call allowances.
type QuotaConfig struct {
	DailyLimit   int `yaml:"daily_limit" koanf:"daily_limit"`
	MonthlyLimit int `yaml:"monthly_limit" koanf:"monthly_limit"`
}
