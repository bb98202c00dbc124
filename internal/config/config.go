package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env         string        `mapstructure:"ENV"`
	Port        string        `mapstructure:"PORT"`
	DatabaseURL string        `mapstructure:"DATABASE_URL"`
	AdminKey    string        `mapstructure:"ADMIN_KEY"`
	CORSAllowed string        `mapstructure:"CORS_ALLOWED_ORIGINS"`
	LogLevel    string        `mapstructure:"LOG_LEVEL"`
	HTTPTimeout time.Duration `mapstructure:"HTTP_TIMEOUT"`

	EHRBaseURL      string `mapstructure:"EHR_BASE_URL"`
	EHRClientID     string `mapstructure:"EHR_CLIENT_ID"`
	EHRClientSecret string `mapstructure:"EHR_CLIENT_SECRET"`
	EHRScope        string `mapstructure:"EHR_SCOPE"`

	WFMBaseURL string `mapstructure:"WFM_BASE_URL"`
	WFMAPIKey  string `mapstructure:"WFM_API_KEY"`

	HRBaseURL  string `mapstructure:"HR_BASE_URL"`
	HRAPIToken string `mapstructure:"HR_API_TOKEN"`

	// SyncItemDelay paces per-item external calls inside a sync pass.
	SyncItemDelay    time.Duration `mapstructure:"SYNC_ITEM_DELAY"`
	SchedulerEnabled bool          `mapstructure:"SCHEDULER_ENABLED"`
}

func Load() (Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	_ = v.ReadInConfig()

	v.SetDefault("ENV", "dev")
	v.SetDefault("PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("HTTP_TIMEOUT", "15s")
	v.SetDefault("EHR_SCOPE", "system/*.read")
	v.SetDefault("SYNC_ITEM_DELAY", "100ms")
	v.SetDefault("SCHEDULER_ENABLED", true)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
