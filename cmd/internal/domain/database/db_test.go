package database

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"
)

func TestNewLogger_SkipsRecordNotFound(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf)
	query := func() (string, int64) { return "SELECT * FROM users WHERE id = 1", 0 }

	l.Trace(context.Background(), time.Now(), query, gorm.ErrRecordNotFound)
	if buf.Len() != 0 {
		t.Errorf("missing row should not be logged, got %q", buf.String())
	}

	l.Trace(context.Background(), time.Now(), query, errors.New("disk I/O error"))
	if !bytes.Contains(buf.Bytes(), []byte("disk I/O error")) {
		t.Errorf("query errors should be logged, got %q", buf.String())
	}
}

func TestInit_UnsupportedDriver(t *testing.T) {
	if _, err := Init("mysql", ""); err == nil {
		t.Error("expected an error for an unsupported driver")
	}
}
