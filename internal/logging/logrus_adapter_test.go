package logging

import (
	"bytes"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogrusAdapter(t *testing.T) {
	tests := []struct {
		name        string
		level       string
		format      string
		expectLevel logrus.Level
	}{
		{name: "debug level with text format", level: "debug", format: "text", expectLevel: logrus.DebugLevel},
		{name: "info level with json format", level: "info", format: "json", expectLevel: logrus.InfoLevel},
		{name: "upper case level", level: "WARN", format: "text", expectLevel: logrus.WarnLevel},
		{name: "invalid level defaults to info", level: "invalid", format: "text", expectLevel: logrus.InfoLevel},
		{name: "empty level uses default", level: "", format: "text", expectLevel: logrus.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := NewLogrusAdapter(tt.level, tt.format)
			adapter, ok := logger.(*LogrusAdapter)
			require.True(t, ok, "logger should be a LogrusAdapter")
			assert.Equal(t, tt.expectLevel, adapter.logger.Level)

			if tt.format == "json" {
				_, ok := adapter.logger.Formatter.(*logrus.JSONFormatter)
				assert.True(t, ok, "formatter should be JSONFormatter")
			} else {
				_, ok := adapter.logger.Formatter.(*logrus.TextFormatter)
				assert.True(t, ok, "formatter should be TextFormatter")
			}
		})
	}
}

func TestSetAllLogLevels(t *testing.T) {
	original := logrus.GetLevel()
	defer SetAllLogLevels(original)

	SetAllLogLevels(logrus.DebugLevel)
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())

	adapter := NewLogrusAdapter("", "text").(*LogrusAdapter)
	assert.Equal(t, logrus.DebugLevel, adapter.logger.Level)
}

func newBufferedAdapter(level logrus.Level) (Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	logrusLogger := logrus.New()
	logrusLogger.SetOutput(&buf)
	logrusLogger.SetLevel(level)
	logrusLogger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	return NewLogrusAdapterFromLogger(logrusLogger), &buf
}

func TestLogrusAdapter_LoggingMethods(t *testing.T) {
	tests := []struct {
		name    string
		logFunc func(Logger, string, ...Field)
		message string
	}{
		{name: "debug", logFunc: func(l Logger, m string, f ...Field) { l.Debug(m, f...) }, message: "debug message"},
		{name: "info", logFunc: func(l Logger, m string, f ...Field) { l.Info(m, f...) }, message: "info message"},
		{name: "warn", logFunc: func(l Logger, m string, f ...Field) { l.Warn(m, f...) }, message: "warn message"},
		{name: "error", logFunc: func(l Logger, m string, f ...Field) { l.Error(m, f...) }, message: "error message"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, buf := newBufferedAdapter(logrus.DebugLevel)
			tt.logFunc(logger, tt.message, F(FieldMapping, "Nubank Padrão"))

			output := buf.String()
			assert.Contains(t, output, tt.message)
			assert.Contains(t, output, FieldMapping)
		})
	}
}

func TestLogrusAdapter_ChainedCalls(t *testing.T) {
	logger, buf := newBufferedAdapter(logrus.InfoLevel)

	logger.
		WithField(FieldUser, "u-1").
		WithFields(F(FieldLine, 7)).
		WithError(errors.New("boom")).
		Error("row failed")

	output := buf.String()
	assert.Contains(t, output, "row failed")
	assert.Contains(t, output, "u-1")
	assert.Contains(t, output, "line=7")
	assert.Contains(t, output, "boom")
}

func TestNewLogrusAdapterFromLogger_Nil(t *testing.T) {
	adapter, ok := NewLogrusAdapterFromLogger(nil).(*LogrusAdapter)
	require.True(t, ok)
	assert.NotNil(t, adapter.logger)
}

func TestConvertFields(t *testing.T) {
	fields := convertFields([]Field{F("a", "x"), F("b", 42)})
	assert.Len(t, fields, 2)
	assert.Equal(t, 42, fields["b"])
	assert.Len(t, convertFields(nil), 0)
}

func TestMockLogger_DerivedLoggersShareEntries(t *testing.T) {
	mock := NewMockLogger()
	mock.WithField(FieldTier, "external").WithError(errors.New("timeout")).Warn("classifier failed")
	mock.Info("done")

	entries := mock.GetEntries()
	require.Len(t, entries, 2)
	assert.Equal(t, "WARN", entries[0].Level)
	assert.Equal(t, []Field{F(FieldTier, "external")}, entries[0].Fields)
	assert.EqualError(t, entries[0].Error, "timeout")
	assert.True(t, mock.HasEntry("INFO", "done"))
	assert.Len(t, mock.GetEntriesByLevel("WARN"), 1)

	mock.Clear()
	assert.Empty(t, mock.GetEntries())
}

func TestMockLogger_ZeroValueUsable(t *testing.T) {
	var mock MockLogger
	mock.Debug("hello")
	assert.True(t, mock.HasEntry("DEBUG", "hello"))
}

func TestLoggerImplementations(t *testing.T) {
	var _ Logger = (*LogrusAdapter)(nil)
	var _ Logger = (*MockLogger)(nil)
}
