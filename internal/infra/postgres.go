package infra

import (
	"log"
	"os"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"modeh/internal/models/db_models"
)

func InitPostgresql() *gorm.DB {
	dsn := os.Getenv("POSTGRES_URL")

	// TranslateError turns driver unique-violation errors into
	// gorm.ErrDuplicatedKey, which the ledger relies on for
	// duplicate-correlation and duplicate-wallet detection.
	connectionPool, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		log.Printf("Error connecting to database: %v", err)
		log.Fatal("Error connecting to database")
	}

	if err := migrate(connectionPool); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	return connectionPool
}

func migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&db_models.Plan{},
		&db_models.Subscription{},
		&db_models.Purchase{},
		&db_models.Quiz{},
		&db_models.Question{},
		&db_models.Battle{},
		&db_models.BattleQuestion{},
		&db_models.Tournament{},
		&db_models.PaymentTransaction{},
		&db_models.SettlementRecord{},
		&db_models.Wallet{},
	)
}

func ClosePostgresql(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		log.Printf("Error getting database instance: %v", err)
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Printf("Error closing database connection: %v", err)
	} else {
		log.Println("PostgreSQL database connection closed successfully")
	}
}
