package config

import (
	"fmt"
	"strconv"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to the given path.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to taskintake! Let's configure your service.")
	fmt.Println()

	cfg := DefaultConfig()

	providerPrompt := promptui.Select{
		Label: "Select LLM provider",
		Items: []string{"openai", "openrouter"},
	}
	_, providerStr, err := providerPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("provider selection: %w", err)
	}
	cfg.Provider = ProviderType(providerStr)

	modelPrompt := promptui.Prompt{
		Label:   "Completion model",
		Default: cfg.Model,
	}
	model, err := modelPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("model: %w", err)
	}
	cfg.Model = model

	portPrompt := promptui.Prompt{
		Label:   "HTTP port",
		Default: strconv.Itoa(cfg.Port),
		Validate: func(s string) error {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 || n > 65535 {
				return fmt.Errorf("enter a port between 1 and 65535")
			}
			return nil
		},
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("port: %w", err)
	}
	cfg.Port, _ = strconv.Atoi(portStr)

	dailyPrompt := promptui.Prompt{
		Label:   "Daily AI calls per user",
		Default: strconv.Itoa(cfg.Quota.DailyLimit),
		Validate: func(s string) error {
			if _, err := strconv.Atoi(s); err != nil {
				return fmt.Errorf("enter a number")
			}
			return nil
		},
	}
	dailyStr, err := dailyPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("daily quota: %w", err)
	}
	cfg.Quota.DailyLimit, _ = strconv.Atoi(dailyStr)

	monthlyPrompt := promptui.Prompt{
		Label:   "Monthly AI calls per user",
		Default: strconv.Itoa(cfg.Quota.MonthlyLimit),
		Validate: func(s string) error {
			if _, err := strconv.Atoi(s); err != nil {
				return fmt.Errorf("enter a number")
			}
			return nil
		},
	}
	monthlyStr, err := monthlyPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("monthly quota: %w", err)
	}
	cfg.Quota.MonthlyLimit, _ = strconv.Atoi(monthlyStr)

	dataDirPrompt := promptui.Prompt{
		Label:   "Data directory (SQLite database)",
		Default: cfg.DataDir,
	}
	dataDir, err := dataDirPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}
	cfg.DataDir = dataDir

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Save(path); err != nil {
		return nil, err
	}

	fmt.Println()
	fmt.Printf("Configuration saved to %s\n", path)
	fmt.Printf("Remember to set %s before starting the server.\n", APIKeyEnvVar(cfg.Provider))
	return cfg, nil
}
