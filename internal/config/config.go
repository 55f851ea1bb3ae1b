package config

import (
	"errors"
	"fmt"
	"time"
)

// DefaultPath is read when no settings file is given and it exists
const DefaultPath = "beakergrab.toml"

// ErrUnsupportedFormat is returned for settings files that are neither TOML nor YAML
var ErrUnsupportedFormat = errors.New("unsupported settings format")

type Settings struct {
	Scheduler SchedulerConfig `toml:"scheduler" yaml:"scheduler"`
	Poll      PollConfig      `toml:"poll" yaml:"poll"`
	Jobs      JobsConfig      `toml:"jobs" yaml:"jobs"`
}

type SchedulerConfig struct {
	Binary        string `toml:"binary" yaml:"binary"`
	QueryTimeout  string `toml:"query_timeout" yaml:"query_timeout"`
	SubmitTimeout string `toml:"submit_timeout" yaml:"submit_timeout"`
}

type PollConfig struct {
	Interval string `toml:"interval" yaml:"interval"`
}

type JobsConfig struct {
	Dir string `toml:"dir" yaml:"dir"`
}

// Defaults returns the settings used when nothing is configured
func Defaults() Settings {
	return Settings{
		Scheduler: SchedulerConfig{
			Binary:        "bkr",
			QueryTimeout:  "2m",
			SubmitTimeout: "2m",
		},
		Poll: PollConfig{
			Interval: "30s",
		},
		Jobs: JobsConfig{
			Dir: ".",
		},
	}
}

func positiveDuration(name, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s '%s': %w", name, value, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s '%s': must be positive", name, value)
	}
	return d, nil
}

// QueryTimeout returns the parsed list-systems timeout
func (s Settings) QueryTimeout() (time.Duration, error) {
	return positiveDuration("scheduler.query_timeout", s.Scheduler.QueryTimeout)
}

// SubmitTimeout returns the parsed job-submit timeout
func (s Settings) SubmitTimeout() (time.Duration, error) {
	return positiveDuration("scheduler.submit_timeout", s.Scheduler.SubmitTimeout)
}

// Interval returns the parsed delay between polls
func (s Settings) Interval() (time.Duration, error) {
	return positiveDuration("poll.interval", s.Poll.Interval)
}

// Durations holds the parsed duration settings
type Durations struct {
	QueryTimeout  time.Duration
	SubmitTimeout time.Duration
	Interval      time.Duration
}

// Validate checks that every setting is usable and returns the parsed durations
func (s Settings) Validate() (Durations, error) {
	var d Durations
	if s.Scheduler.Binary == "" {
		return d, fmt.Errorf("scheduler.binary cannot be empty")
	}

	var err error
	if d.QueryTimeout, err = s.QueryTimeout(); err != nil {
		return Durations{}, err
	}
	if d.SubmitTimeout, err = s.SubmitTimeout(); err != nil {
		return Durations{}, err
	}
	if d.Interval, err = s.Interval(); err != nil {
		return Durations{}, err
	}
	return d, nil
}
