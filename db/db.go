package db

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"zapdesk/config"
	"zapdesk/models"

	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/postgres"
	_ "github.com/jinzhu/gorm/dialects/sqlite"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Connect abre conexão com DB (sqlite3 por padrão) e faz automigrate quando habilitado.
func Connect(conf config.Configuration) (*gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
	)

	if conf.Database == "postgres" {
		zap.S().Info("Utilizando conexão com o postgresql...")
		path := "host=" + conf.DbHost + " port=" + conf.DbPort
		path += " user=" + conf.DbUser + " dbname=" + conf.DbName
		path += " password=" + conf.DbPass
		db, err = gorm.Open("postgres", path)
	} else {
		zap.S().Info("Utilizando conexão com o sqlite3...")
		if dir := filepath.Dir(conf.DbPath); dir != "" {
			_ = os.MkdirAll(dir, 0o755)
		}
		db, err = gorm.Open("sqlite3", conf.DbPath)
	}

	if err != nil {
		zap.L().Error("Got error when connect database", zap.Error(err))
		return nil, err
	}

	db.SetLogger(gormLogger{})
	db.LogMode(conf.LogMode != "production")

	if conf.AutoMigrate {
		if err := Migrate(db); err != nil {
			return nil, err
		}
	}

	return db, nil
}

// Migrate cria/atualiza as tabelas do console.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.Tables...).Error; err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	return nil
}

// IsUniqueViolation reconhece violação de unique index nos dois drivers suportados.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

type gormLogger struct{}

func (gormLogger) Print(v ...interface{}) {
	zap.S().Debug(gorm.LogFormatter(v...)...)
}
