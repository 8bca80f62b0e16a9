package instance

import (
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPort is the standard Redis port used when none is configured.
const DefaultRedisPort = 6379

// RedisHost returns the appropriate Redis hostname for the current environment.
// Inside a container it returns "host.docker.internal" to reach the host's
// published ports; otherwise "localhost".
func RedisHost() string {
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return "host.docker.internal"
	}
	return "localhost"
}

// DefaultRedisURL constructs the Redis URL for the default port.
func DefaultRedisURL() string {
	return fmt.Sprintf("redis://%s:%d", RedisHost(), DefaultRedisPort)
}

// RedisOptions parses a redis:// URL into client options.
func RedisOptions(url string) (*redis.Options, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL %q: %w", url, err)
	}
	return opts, nil
}
