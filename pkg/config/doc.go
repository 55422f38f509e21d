// Package config loads typed configuration sections from environment
// variables, with optional .env file support for development.
//
// Each subsystem declares its own struct with env tags (queue polling,
// broker connection strings, email tokens) and calls Load for it. Parsed
// sections are cached by type, so repeated loads are cheap and every
// caller observes the same values.
//
//	var cfg queue.Config
//	config.MustLoad(&cfg)
//
// Parsing is delegated to github.com/caarlos0/env; .env files are read
// via github.com/joho/godotenv.
package config
