package v1

import (
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mhs-association/membership-backend/shared/utils"
	"github.com/mhs-association/membership-backend/v1/models"
)

// DatabaseConfig holds database connection configuration. Driver selects
// between an embedded sqlite file (the default) and postgres.
type DatabaseConfig struct {
	Driver   string
	Path     string
	Host     string
	Port     string
	Username string
	Password string
	Database string
	SSLMode  string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// NewDatabaseConfig creates a database configuration from environment variables.
func NewDatabaseConfig() *DatabaseConfig {
	return &DatabaseConfig{
		Driver:   utils.GetEnvOrDefault("DB_DRIVER", "sqlite"),
		Path:     utils.GetEnvOrDefault("DB_PATH", "./membership.db"),
		Host:     utils.GetEnvOrDefault("DB_HOSTNAME", "localhost"),
		Port:     utils.GetEnvOrDefault("DB_PORT", "5432"),
		Username: utils.GetEnvOrDefault("DB_USERNAME", "postgres"),
		Password: utils.GetEnvOrDefault("DB_PASSWORD", "password"),
		Database: utils.GetEnvOrDefault("DB_DATABASENAME", "membership"),
		SSLMode:  utils.GetEnvOrDefault("DB_SSLMODE", "require"),

		MaxOpenConns:    utils.GetEnvIntOrDefault("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    utils.GetEnvIntOrDefault("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 30 * time.Minute,
	}
}

// ConnectGormDB establishes a GORM database connection and configures the
// underlying connection pool.
func ConnectGormDB(config *DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch config.Driver {
	case "postgres":
		dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			config.Host, config.Port, config.Username, config.Password, config.Database, config.SSLMode)
		dialector = postgres.Open(dsn)
	case "sqlite", "":
		dialector = sqlite.Open(config.Path)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", config.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(config.MaxOpenConns)
	sqlDB.SetMaxIdleConns(config.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(config.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	slog.Info("Database connection established", "driver", config.Driver)
	return db, nil
}

// MigrateDB runs schema migrations for all application tables.
func MigrateDB(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Member{},
		&models.FamilyMember{},
		&models.Session{},
		&models.AttendanceRecord{},
	); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}
	return nil
}

// EnsureDefaultAdmin seeds the built-in admin account on first start so a
// fresh database is immediately usable. Existing accounts are never touched.
func EnsureDefaultAdmin(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.Member{}).
		Where("email = ?", models.DefaultAdminEmail).
		Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check for default admin: %w", err)
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(models.DefaultAdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash default admin password: %w", err)
	}

	admin := &models.Member{
		MemberNumber:   models.DefaultAdminMemberNumber,
		FirstName:      "System",
		Surname:        "Administrator",
		Email:          models.DefaultAdminEmail,
		PasswordHash:   string(hash),
		MembershipType: models.MembershipTypeSolo,
		ExpiryDate:     time.Date(2030, 12, 31, 0, 0, 0, 0, time.UTC),
		Status:         models.StatusActive,
		PhotoURL:       "https://ui-avatars.com/api/?name=System+Administrator&background=059669&color=fff",
		IsAdmin:        true,
	}
	if err := db.Create(admin).Error; err != nil {
		return fmt.Errorf("failed to seed default admin: %w", err)
	}

	slog.Info("Seeded default admin account", "memberNumber", admin.MemberNumber)
	return nil
}
