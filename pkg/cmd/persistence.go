package cmd

import (
	"fmt"
	"strings"

	"github.com/j7-dev/powerfunnel/pkg/persistence"
	"github.com/j7-dev/powerfunnel/pkg/persistence/file"
	"github.com/j7-dev/powerfunnel/pkg/persistence/redis"
)

func NewPersistence(databaseURL string) persistence.Persistence {
	switch parsePersistenceProvider(databaseURL) {
	case "redis", "rediss":
		store, err := redis.NewPersistence(databaseURL)
		if err != nil {
			panic(fmt.Errorf("failed to connect to redis: %w", err))
		}

		return store
	default:
		return file.NewPersistence(databaseURL)
	}
}

func parsePersistenceProvider(databaseURL string) string {
	provider, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file"
	}

	return provider
}
