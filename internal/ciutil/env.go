package ciutil

import (
	"log/slog"
	"os"
	"testing"

	"github.com/phrazzld/classifier-worker/internal/redact"
)

// Environment variable names.
const (
	// CI environment detection variables
	EnvCI            = "CI"
	EnvGitHubActions = "GITHUB_ACTIONS"
	EnvGitLabCI      = "GITLAB_CI"
	EnvJenkinsURL    = "JENKINS_URL"
	EnvCircleCI      = "CIRCLECI"

	// Integration test endpoints. The unprefixed names are what local
	// docker-compose setups usually export.
	EnvTestAMQPURL  = "CLASSIFIER_TEST_AMQP_URL"
	EnvAMQPURL      = "AMQP_URL"
	EnvTestRedisURL = "CLASSIFIER_TEST_REDIS_URL"
	EnvRedisURL     = "REDIS_URL"
)

// IsCI returns true if the current environment is a CI environment.
func IsCI() bool {
	return os.Getenv(EnvCI) != "" ||
		os.Getenv(EnvGitHubActions) != "" ||
		os.Getenv(EnvGitLabCI) != "" ||
		os.Getenv(EnvJenkinsURL) != "" ||
		os.Getenv(EnvCircleCI) != ""
}

// GetEnvWithFallbacks returns the value of the first non-empty environment
// variable in envVars, or defaultValue when none is set. Using any name but
// the first is logged as a warning.
func GetEnvWithFallbacks(envVars []string, defaultValue string, logger *slog.Logger) string {
	for i, envVar := range envVars {
		if val := os.Getenv(envVar); val != "" {
			if i > 0 && logger != nil {
				logger.Warn("using fallback environment variable",
					"used_var", envVar,
					"preferred_var", envVars[0],
					"value", redact.String(val))
			}
			return val
		}
	}
	return defaultValue
}

// AMQPURL returns the RabbitMQ URL for integration tests, or "".
func AMQPURL() string {
	return GetEnvWithFallbacks([]string{EnvTestAMQPURL, EnvAMQPURL}, "", slog.Default())
}

// RedisURL returns the Redis URL for integration tests, or "".
func RedisURL() string {
	return GetEnvWithFallbacks([]string{EnvTestRedisURL, EnvRedisURL}, "", slog.Default())
}

// RequireURL skips t when url is empty. name describes the missing service
// in the skip message.
func RequireURL(t testing.TB, name, url string) string {
	t.Helper()
	if url == "" {
		t.Skipf("%s endpoint not configured, skipping integration test", name)
	}
	return url
}
