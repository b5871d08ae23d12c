// Package config loads typed configuration from the environment.
//
// Each package declares its own Config struct with caarlos0/env tags and the
// binary composes them:
//
//	type Config struct {
//		HTTP  httpserver.Config
//		Mongo mongo.Config
//	}
//
//	var cfg Config
//	config.MustLoad(&cfg, ".env")
//
// .env files are read with joho/godotenv. They never override variables
// that are already set.
package config
