package database

import (
	"log"
	"os"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func Init() *gorm.DB {
	dsn := os.Getenv("DATABASE_URL")
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		// Map driver unique-violation errors to gorm.ErrDuplicatedKey so the
		// payment reference retry loop can match on them.
		TranslateError: true,
	})
	if err != nil {
		log.Fatal("failed to connect database:", err)
	}
	return db
}
