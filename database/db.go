package database

import (
	"fmt"
	"log"
	"os"

	"verwaltung-backend/models"

	"github.com/joho/godotenv"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

// Connect opens the database from DB_DRIVER / DB_DSN. A .env file is loaded
// when present so local development works without exported variables.
func Connect() {
	_ = godotenv.Load()

	driver := os.Getenv("DB_DRIVER")
	if driver == "" {
		driver = "postgres"
	}
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		dsn = fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=5432 sslmode=disable",
			os.Getenv("DB_HOST"), os.Getenv("DB_USER"), os.Getenv("DB_PASSWORD"), os.Getenv("DB_NAME"))
	}

	db, err := Open(driver, dsn)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	DB = db
}

// Open connects by driver/dsn. Supported: "postgres" | "mysql".
func Open(driver, dsn string) (*gorm.DB, error) {
	// TranslateError turns driver-specific unique violations into
	// gorm.ErrDuplicatedKey, which the error handler and the idempotency
	// store depend on.
	cfg := &gorm.Config{TranslateError: true}

	switch driver {
	case "postgres":
		return gorm.Open(postgres.Open(dsn), cfg)
	case "mysql":
		return gorm.Open(mysql.Open(dsn), cfg)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
}

// AutoMigrate creates/updates all tables.
func AutoMigrate() {
	if err := DB.AutoMigrate(
		&models.Tenant{}, &models.User{},
		&models.Group{}, &models.UserGroup{}, &models.GroupPermission{},
		&models.Tool{}, &models.ToolAction{},
		&models.APIKey{}, &models.APIKeyToolAction{},
		&models.IdempotencyRecord{},
		&models.OutboxJob{},
		&models.WebhookSubscription{}, &models.WebhookDelivery{},
	); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}
}
