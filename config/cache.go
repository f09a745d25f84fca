package config

type Cache struct {
	Activated bool  `yaml:"activated" env:"CACHE_ACTIVATED" env-default:"false"`
	Time      int64 `yaml:"time" env:"CACHE_TIME" env-default:"3600"`
}
