package gorm

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/tigerroll/worklist/pkg/worklist/support/util/logger"
)

// slowQueryThreshold is the duration above which a query is logged as a warning.
const slowQueryThreshold = 200 * time.Millisecond

// GormLogger forwards GORM's log output to the worklist logger.
// SQL traces are emitted at DEBUG; errors other than ErrRecordNotFound at ERROR.
type GormLogger struct {
	level gormlogger.LogLevel
}

// NewGormLogger returns a logger whose level follows the worklist log level.
func NewGormLogger() *GormLogger {
	level := gormlogger.Warn
	switch logger.GetLogLevel() {
	case logger.LevelDebug:
		level = gormlogger.Info
	case logger.LevelError:
		level = gormlogger.Error
	case logger.LevelFatal:
		level = gormlogger.Silent
	}
	return &GormLogger{level: level}
}

// LogMode returns a copy with the given level.
func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	return &GormLogger{level: level}
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= gormlogger.Info {
		logger.Infof("gorm: "+msg, data...)
	}
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= gormlogger.Warn {
		logger.Warnf("gorm: "+msg, data...)
	}
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= gormlogger.Error {
		logger.Errorf("gorm: "+msg, data...)
	}
}

// Trace logs one executed statement.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.level >= gormlogger.Error:
		sql, rows := fc()
		logger.Errorf("gorm: %v [%s] rows=%d %s", err, elapsed, rows, sql)
	case elapsed > slowQueryThreshold && l.level >= gormlogger.Warn:
		sql, rows := fc()
		logger.Warnf("gorm: slow query [%s] rows=%d %s", elapsed, rows, sql)
	case l.level >= gormlogger.Info:
		sql, rows := fc()
		logger.Debugf("gorm: [%s] rows=%d %s", elapsed, rows, sql)
	}
}

var _ gormlogger.Interface = (*GormLogger)(nil)
