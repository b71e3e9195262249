package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// TaxonomyListKey returns the cache key for one taxonomy list. parentID is
// empty for boards.
func (r *CacheKeyStruct) TaxonomyListKey(level, parentID string) string {
	if parentID == "" {
		return fmt.Sprintf("taxonomy:%s", level)
	}
	return fmt.Sprintf("taxonomy:%s:%s", level, parentID)
}

// CompositionSessionKey returns the cache key holding a parent/child authoring session
func (r *CacheKeyStruct) CompositionSessionKey(sessionID string) string {
	return fmt.Sprintf("composition:%s", sessionID)
}

// CompositionLockKey returns the key guarding a session against concurrent operations
func (r *CacheKeyStruct) CompositionLockKey(sessionID string) string {
	return fmt.Sprintf("composition:%s:lock", sessionID)
}

// CompositionEventsChannel returns the Redis PubSub channel name for a session's workflow events
func (r *CacheKeyStruct) CompositionEventsChannel(sessionID string) string {
	return fmt.Sprintf("composition:%s:events", sessionID)
}

var CacheKey = NewCacheKeyStruct()
