package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"mastery-service/internal/models"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// PrereqCache keeps per-subject prerequisite edge sets in Redis so graph
// reads don't hit MongoDB on every recommendation call. Entries are
// invalidated on edge writes; a stale or missing entry just means a
// database round trip.
type PrereqCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewPrereqCache(client *redis.Client, ttl time.Duration) *PrereqCache {
	return &PrereqCache{
		client: client,
		ttl:    ttl,
	}
}

func (c *PrereqCache) key(ownerID, subjectID bson.ObjectID) string {
	return fmt.Sprintf("prereq:%s:%s", ownerID.Hex(), subjectID.Hex())
}

// Get returns the cached edge set for a subject, or nil on miss. Cache
// errors are logged and treated as misses.
func (c *PrereqCache) Get(ctx context.Context, ownerID, subjectID bson.ObjectID) []*models.SkillPrerequisite {
	if c.client == nil {
		return nil
	}

	data, err := c.client.Get(ctx, c.key(ownerID, subjectID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("Prerequisite cache read error: %s", err)
		}
		return nil
	}

	var edges []*models.SkillPrerequisite
	if err := json.Unmarshal(data, &edges); err != nil {
		log.Printf("Prerequisite cache decode error: %s", err)
		return nil
	}

	return edges
}

// Set stores a subject's edge set with the configured TTL
func (c *PrereqCache) Set(ctx context.Context, ownerID, subjectID bson.ObjectID, edges []*models.SkillPrerequisite) {
	if c.client == nil {
		return
	}

	data, err := json.Marshal(edges)
	if err != nil {
		log.Printf("Prerequisite cache encode error: %s", err)
		return
	}

	if err := c.client.Set(ctx, c.key(ownerID, subjectID), data, c.ttl).Err(); err != nil {
		log.Printf("Prerequisite cache write error: %s", err)
	}
}

// Invalidate drops a subject's cached edge set after an edge write
func (c *PrereqCache) Invalidate(ctx context.Context, ownerID, subjectID bson.ObjectID) {
	if c.client == nil {
		return
	}

	if err := c.client.Del(ctx, c.key(ownerID, subjectID)).Err(); err != nil {
		log.Printf("Prerequisite cache invalidate error: %s", err)
	}
}
