package config

type S3 struct {
	AccessKey      string `yaml:"s3_access_key" env:"S3_ACCESS_KEY" env-default:""`
	SecretKey      string `yaml:"s3_secret_key" env:"S3_SECRET_KEY" env-default:""`
	Region         string `yaml:"s3_region" env:"S3_REGION" env-default:""`
	EndPoint       string `yaml:"s3_endpoint" env:"S3_ENDPOINT" env-default:""`
	ForcePathStyle bool   `yaml:"s3_force_path_style" env:"S3_FORCE_PATH_STYLE" env-default:"false"`
}

type Minio struct {
	EndPoint  string `yaml:"minio_endpoint" env:"MINIO_ENDPOINT" env-default:""`
	AccessKey string `yaml:"minio_access_key" env:"MINIO_ACCESS_KEY" env-default:""`
	SecretKey string `yaml:"minio_secret_key" env:"MINIO_SECRET_KEY" env-default:""`
	Region    string `yaml:"minio_region" env:"MINIO_REGION" env-default:""`
	UseSSL    bool   `yaml:"minio_use_ssl" env:"MINIO_USE_SSL" env-default:"true"`
}
