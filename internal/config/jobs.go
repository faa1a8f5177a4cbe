package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Job names understood by the sync scheduler.
const (
	JobSyncFRED = "sync-fred"
	JobSyncAll  = "sync-all"
)

// JobSettings describes one scheduled job.
type JobSettings struct {
	Enabled     bool   `yaml:"enabled"`
	Schedule    string `yaml:"schedule"`
	Description string `yaml:"description"`
}

// JobsConfig maps job names to their schedule.
type JobsConfig struct {
	Jobs map[string]*JobSettings `yaml:"jobs"`
}

// LoadJobsConfigFromPath loads the job schedule from a specific path.
func LoadJobsConfigFromPath(path string) (*JobsConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read jobs config: %w", err)
	}

	var cfg JobsConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse jobs config: %w", err)
	}

	for name, settings := range cfg.Jobs {
		if settings == nil {
			return nil, fmt.Errorf("job %s: settings are required", name)
		}
		if settings.Enabled && settings.Schedule == "" {
			return nil, fmt.Errorf("job %s: schedule is required", name)
		}
	}

	return &cfg, nil
}

// JobsFor returns the job schedule for the scheduler settings: the jobs file
// when one is configured, otherwise the two sync jobs on their env schedules.
func JobsFor(s SchedulerConfig) (*JobsConfig, error) {
	if s.JobsFilePath != "" {
		return LoadJobsConfigFromPath(s.JobsFilePath)
	}
	return DefaultJobsConfig(s), nil
}

// DefaultJobsConfig returns the built-in schedule.
func DefaultJobsConfig(s SchedulerConfig) *JobsConfig {
	return &JobsConfig{
		Jobs: map[string]*JobSettings{
			JobSyncFRED: {
				Enabled:     s.SyncFRED != "",
				Schedule:    s.SyncFRED,
				Description: "Latest national housing indicators from FRED",
			},
			JobSyncAll: {
				Enabled:     s.SyncAll != "",
				Schedule:    s.SyncAll,
				Description: "Builder, household, regional, crash and index refresh",
			},
		},
	}
}
