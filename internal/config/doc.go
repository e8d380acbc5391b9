// Package config handles configuration loading, parsing, and validation
// from environment variables and an optional config file. It provides type-safe
// access to the settings needed by the cache, the task runner, the LLM client
// and the HTTP server while keeping configuration details separate from
// business logic.
package config
