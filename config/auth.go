package config

// Auth mirrors the function-key gate of the hosting platform. An empty key
// disables the check.
type Auth struct {
	FunctionKey string `yaml:"function_key" env:"FUNCTION_KEY" env-default:""`
}
