package db

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/tradedesk-backend/pkg/logger"
)

func captureQueryLogger(slow time.Duration) (gormlogger.Interface, *bytes.Buffer) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.DebugLevel, Output: &buf})
	return newQueryLogger(logg, slow), &buf
}

func statement() (string, int64) { return `SELECT * FROM "skus" WHERE id = 1`, 1 }

func TestQueryLoggerSkipsFastAndNotFound(t *testing.T) {
	ql, buf := captureQueryLogger(time.Second)
	ctx := context.Background()

	ql.Trace(ctx, time.Now(), statement, nil)
	ql.Trace(ctx, time.Now(), statement, gorm.ErrRecordNotFound)
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %s", buf.String())
	}
}

func TestQueryLoggerReportsSlowAndFailed(t *testing.T) {
	ql, buf := captureQueryLogger(10 * time.Millisecond)
	ctx := context.Background()

	ql.Trace(ctx, time.Now().Add(-time.Second), statement, nil)
	if out := buf.String(); !strings.Contains(out, "db.slow_query") || !strings.Contains(out, `"rows":1`) {
		t.Fatalf("slow query not logged: %s", out)
	}

	buf.Reset()
	ql.Trace(ctx, time.Now(), statement, errors.New("relation \"skus\" does not exist"))
	if out := buf.String(); !strings.Contains(out, "db.query_failed") || !strings.Contains(out, "skus") {
		t.Fatalf("failed query not logged: %s", out)
	}
}

func TestQueryLoggerSilentMode(t *testing.T) {
	ql, buf := captureQueryLogger(time.Millisecond)
	ql.LogMode(gormlogger.Silent).Trace(context.Background(), time.Now().Add(-time.Second), statement, errors.New("boom"))
	if buf.Len() != 0 {
		t.Fatalf("silent mode logged: %s", buf.String())
	}
}

func TestNewQueryLoggerWithoutLogger(t *testing.T) {
	if newQueryLogger(nil, 0) != gormlogger.Discard {
		t.Fatal("nil logger should fall back to gorm's discard logger")
	}
}
