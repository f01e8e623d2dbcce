package v1

import (
	"github.com/mhs-association/membership-backend/shared/utils"
)

// AppConfig holds application-level configuration read from the environment.
type AppConfig struct {
	Port           string
	Debug          bool
	UploadDir      string
	MaxUploadBytes int64
}

// NewAppConfig creates an application configuration from environment variables.
func NewAppConfig() *AppConfig {
	return &AppConfig{
		Port:           utils.GetEnvOrDefault("PORT", "8080"),
		Debug:          utils.GetEnvBoolOrDefault("DEBUG", false),
		UploadDir:      utils.GetEnvOrDefault("UPLOAD_DIR", "./uploads"),
		MaxUploadBytes: int64(utils.GetEnvIntOrDefault("MAX_UPLOAD_BYTES", 5*1024*1024)),
	}
}
