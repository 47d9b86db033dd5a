package db

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open opens (creating if necessary) the SQLite history database at path
// and migrates the schema. Foreign keys are enabled so the cascade from
// conversations to messages holds even outside the service layer.
func Open(path string) (*gorm.DB, error) {
	dsn := path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite database %s: %w", path, err)
	}

	if err := gdb.AutoMigrate(&Conversation{}, &Message{}); err != nil {
		return nil, fmt.Errorf("migrate history schema: %w", err)
	}

	return gdb, nil
}
