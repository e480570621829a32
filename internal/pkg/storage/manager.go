package storage

import (
	"context"
	"log"
	"sync"
)

var (
	defaultStore *AvatarStore
	setupOnce    sync.Once
)

// SetupAvatarStore initializes the process-wide avatar store. Safe to call
// more than once; only the first call does work.
func SetupAvatarStore() {
	setupOnce.Do(func() {
		store, err := NewAvatarStoreFromEnv(context.Background())
		if err != nil {
			log.Printf("Warning: avatar storage unavailable: %v", err)
			return
		}
		if store == nil {
			log.Print("Avatar storage not configured, avatar uploads disabled")
			return
		}
		defaultStore = store
	})
}

// GetAvatarStore returns the shared avatar store, or nil when disabled.
func GetAvatarStore() *AvatarStore {
	return defaultStore
}
