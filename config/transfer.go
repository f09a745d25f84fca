package config

import "time"

type Transfer struct {
	PartSize    int64 `yaml:"part_size" env:"TRANSFER_PART_SIZE" env-default:"8388608"`
	Concurrency int   `yaml:"concurrency" env:"TRANSFER_CONCURRENCY" env-default:"4"`
	// Timeout in seconds, 0 disables it.
	Timeout int64 `yaml:"timeout" env:"TRANSFER_TIMEOUT" env-default:"0"`
}

func (t Transfer) TimeoutDuration() time.Duration {
	if t.Timeout <= 0 {
		return 0
	}
	return time.Duration(t.Timeout) * time.Second
}
