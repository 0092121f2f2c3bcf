package db

import (
	"github.com/redis/go-redis/v9"
)

// OpenRedis returns a Redis client for the given URL (redis://host:port/db),
// or nil when the URL is empty and caching is disabled.
func OpenRedis(url string) (*redis.Client, error) {
	if url == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return redis.NewClient(opts), nil
}
