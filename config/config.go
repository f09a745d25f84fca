package config

type Config struct {
	Port        string   `yaml:"port" env:"FUNCTIONS_CUSTOMHANDLER_PORT" env-default:"8080"`
	Log         Log      `yaml:"log"`
	Auth        Auth     `yaml:"auth"`
	Transfer    Transfer `yaml:"transfer"`
	Cache       Cache    `yaml:"cache"`
	Azure       Azure    `yaml:"azure"`
	GCS         GCS      `yaml:"gcs"`
	S3          S3       `yaml:"s3"`
	Minio       Minio    `yaml:"minio"`
	ErrorDetail bool     `yaml:"error_detail" env:"ERROR_DETAIL" env-default:"true"`
}

type Log struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"text"`
}
