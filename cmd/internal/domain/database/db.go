package database

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"time"

	"appointly/cmd/internal/domain/entity"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func Init(driver, dsn string) (*gorm.DB, error) {
	dialector, err := dialectorFor(driver, dsn)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: newLogger(os.Stdout),
	})
	if err != nil {
		return nil, err
	}

	if err = Migrate(db); err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if dialector.Name() == "sqlite" {
		// SQLite has a single writer; one connection also serializes the
		// check-and-insert transactions.
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
	} else {
		sqlDB.SetMaxOpenConns(20)
		sqlDB.SetMaxIdleConns(5)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

// newLogger logs slow queries and errors. Missing rows are not errors for the
// repositories, which report them as nil results.
func newLogger(w io.Writer) logger.Interface {
	return logger.New(stdlog.New(w, "\r\n", stdlog.LstdFlags), logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  true,
	})
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&entity.User{},
		&entity.Tag{},
		&entity.Organization{},
		&entity.Appointment{},
		&entity.AppointmentTag{},
		&entity.AppointmentHistory{},
		&entity.DeletedAppointment{},
		&entity.ContactDayLock{},
		&entity.Automation{},
		&entity.AutomationExecution{},
	)
}

// MigrateContacts creates the contacts table of an organization.
func MigrateContacts(db *gorm.DB, org *entity.Organization) error {
	return db.Table(org.ContactsTable()).AutoMigrate(&entity.Contact{})
}

func dialectorFor(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case "sqlite", "":
		return sqlite.Open(dsn), nil
	case "postgres":
		return postgres.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}
