package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", DebugLevel.String())
	assert.Equal(t, "WARN", WarnLevel.String())
	assert.Equal(t, "FATAL", FatalLevel.String())
	assert.Equal(t, "UNKNOWN", Level(42).String())
}

func TestWithFieldsMerges(t *testing.T) {
	base := NewDefaultLogger()
	child := base.WithFields(Fields{"component": "test"}).(*DefaultLogger)
	grandchild := child.WithFields(Fields{"run": 1}).(*DefaultLogger)

	assert.Equal(t, "test", grandchild.fields["component"])
	assert.Equal(t, 1, grandchild.fields["run"])
	// Parent untouched.
	assert.NotContains(t, base.fields, "component")
}

func TestFormatMessage(t *testing.T) {
	logger := NewDefaultLogger()
	logger.useColors = false

	msg := logger.formatMessage(WarnLevel, nil, "duration mismatch", Fields{"seconds": 2.5})
	assert.Contains(t, msg, "[WARN]")
	assert.Contains(t, msg, "duration mismatch")
	assert.Contains(t, msg, "seconds")
}

func TestSetGlobalLoggerNil(t *testing.T) {
	original := GetGlobalLogger()
	defer SetGlobalLogger(original)

	SetGlobalLogger(nil)
	_, ok := GetGlobalLogger().(*NoOpLogger)
	assert.True(t, ok)
}
