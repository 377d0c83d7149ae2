package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tcs := map[string]Level{
		"warn":      LevelWarn,
		"WARN":      LevelWarn,
		"Warning":   LevelWarn,
		" error ":   LevelError,
		"FATAL":     LevelCritical,
		"trace":     LevelDebug,
		"":          LevelInfo,
		"whatever":  LevelInfo,
		"Emergency": LevelCritical,
	}
	for in, want := range tcs {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestParseLevelIdempotent(t *testing.T) {
	for _, l := range []Level{LevelDebug, LevelInfo, LevelWarn, LevelError, LevelCritical} {
		assert.Equal(t, l, ParseLevel(string(l)))
		assert.Equal(t, l, ParseLevel(string(ParseLevel(string(l)))))
	}
}

func TestLevelClasses(t *testing.T) {
	assert.True(t, LevelWarn.IsImportant())
	assert.True(t, LevelCritical.IsImportant())
	assert.False(t, LevelInfo.IsImportant())
	assert.True(t, LevelError.IsError())
	assert.False(t, LevelWarn.IsError())
}
