package config

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Port:           8080,
		DataDir:        "data",
		Provider:       ProviderOpenAI,
		Model:          "gpt-4o-mini",
		WhisperModel:   "whisper-1",
		RequestsPerMin: 60,
		Audio: AudioConfig{
			MaxBytes:   10 << 20, // 10 MiB decoded audio
			MaxSeconds: 120,
		},
		Quota: QuotaConfig{
			DailyLimit:   50,
			MonthlyLimit: 500,
		},
	}
}
