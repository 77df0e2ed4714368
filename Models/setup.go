package Models

import (
	"fmt"
	"os"

	"github.com/glebarez/sqlite"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func ConnectDataBase() {

	err := godotenv.Load(".env")

	if err != nil {
		logrus.Fatalf("Error loading .env file")
	}

	DbHost := os.Getenv("DB_HOST")
	DbUser := os.Getenv("DB_USER")
	DbPassword := os.Getenv("DB_PASSWORD")
	DbName := os.Getenv("DB_NAME")
	DbPort := os.Getenv("DB_PORT")

	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable", DbHost, DbUser, DbPassword, DbName, DbPort)
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})

	if err != nil {
		logrus.Fatalf("connection error: %v", err)
	}
	logrus.Info("Connected to the database")

	migrate(DB)
}

// ConnectTestDataBase opens an isolated in-memory database with the same
// schema. Tests pass the returned handle around instead of touching the
// global DB.
func ConnectTestDataBase() (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	// Every sqlite :memory: connection is its own database; a single pooled
	// connection keeps concurrent callers on the same one.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	migrate(db)
	return db, nil
}

func migrate(db *gorm.DB) {
	// Models with no dependencies first
	db.AutoMigrate(&User{})
	db.AutoMigrate(&DeviceToken{})
	db.AutoMigrate(&Patient{})
	db.AutoMigrate(&Provider{})

	// Then the ledger tables: packs before the appointments that reference them
	db.AutoMigrate(&CreditPack{})
	db.AutoMigrate(&Appointment{})
}
