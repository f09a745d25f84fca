package config

type Azure struct {
	ConnectionString string `yaml:"asa_connection_string" env:"ASA_CONNECTION_STRING" env-default:""`
}

// GCS falls back to application default credentials when CredentialsFile is
// empty.
type GCS struct {
	CredentialsFile string `yaml:"gcs_credentials_file" env:"GCS_CREDENTIALS_FILE" env-default:""`
	EndPoint        string `yaml:"gcs_endpoint" env:"GCS_ENDPOINT" env-default:""`
}
