package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	originalDir, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		os.Chdir(originalDir)
	})
}

func TestLoad_DefaultsWhenNoFile(t *testing.T) {
	chdir(t, t.TempDir())

	settings, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), settings)

	durations, err := settings.Validate()
	require.NoError(t, err)
	assert.Equal(t, Durations{
		QueryTimeout:  2 * time.Minute,
		SubmitTimeout: 2 * time.Minute,
		Interval:      30 * time.Second,
	}, durations)
}

func TestLoad_DefaultPath(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	content := `[poll]
interval = "5s"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultPath), []byte(content), 0644))

	settings, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "5s", settings.Poll.Interval)
	assert.Equal(t, "bkr", settings.Scheduler.Binary)
}

func TestLoad_TOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	content := `[scheduler]
binary = "/usr/local/bin/bkr"
query_timeout = "45s"

[jobs]
dir = "jobs"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	settings, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/usr/local/bin/bkr", settings.Scheduler.Binary)
	assert.Equal(t, "45s", settings.Scheduler.QueryTimeout)
	assert.Equal(t, "2m", settings.Scheduler.SubmitTimeout)
	assert.Equal(t, "30s", settings.Poll.Interval)
	assert.Equal(t, "jobs", settings.Jobs.Dir)
}

func TestLoad_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	content := `scheduler:
  submit_timeout: 90s
poll:
  interval: 1m
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	settings, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "90s", settings.Scheduler.SubmitTimeout)
	assert.Equal(t, "1m", settings.Poll.Interval)
	assert.Equal(t, "bkr", settings.Scheduler.Binary)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	t.Run("explicit missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(dir, "missing.toml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read")
	})

	t.Run("unsupported format", func(t *testing.T) {
		path := filepath.Join(dir, "settings.json")
		require.NoError(t, os.WriteFile(path, []byte("{}"), 0644))
		_, err := Load(path)
		assert.True(t, errors.Is(err, ErrUnsupportedFormat))
	})

	t.Run("invalid toml", func(t *testing.T) {
		path := filepath.Join(dir, "bad.toml")
		require.NoError(t, os.WriteFile(path, []byte("[poll\ninterval ="), 0644))
		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse")
	})
}

func TestSettings_Validate(t *testing.T) {
	tests := []struct {
		name          string
		modify        func(*Settings)
		expectedError string
	}{
		{
			name:   "defaults",
			modify: func(s *Settings) {},
		},
		{
			name:          "empty binary",
			modify:        func(s *Settings) { s.Scheduler.Binary = "" },
			expectedError: "scheduler.binary cannot be empty",
		},
		{
			name:          "unparsable interval",
			modify:        func(s *Settings) { s.Poll.Interval = "soon" },
			expectedError: "invalid poll.interval 'soon'",
		},
		{
			name:          "zero query timeout",
			modify:        func(s *Settings) { s.Scheduler.QueryTimeout = "0s" },
			expectedError: "must be positive",
		},
		{
			name:          "negative submit timeout",
			modify:        func(s *Settings) { s.Scheduler.SubmitTimeout = "-1s" },
			expectedError: "invalid scheduler.submit_timeout '-1s': must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := Defaults()
			tt.modify(&settings)

			durations, err := settings.Validate()
			if tt.expectedError == "" {
				assert.NoError(t, err)
				assert.NotZero(t, durations.Interval)
				return
			}
			require.Error(t, err)
			assert.Equal(t, Durations{}, durations)
			assert.Contains(t, err.Error(), tt.expectedError)
		})
	}
}
