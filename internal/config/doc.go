// Package config defines the application configuration structure and its
// loading logic. Configuration comes from CARDFORGE_-prefixed environment
// variables and an optional config.yaml file, with environment variables
// taking precedence, and is validated with go-playground/validator before
// use.
package config
