// Package redis provides the Redis-backed device fingerprint velocity index.
package redis

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// VelocityIndex tracks which cases have been seen per device fingerprint in
// a Redis set, giving the fraud evaluator an O(1) reuse count without a trip
// to the record store. Counts are eventually consistent with concurrent case
// creation, which the engine tolerates.
//
// It implements ports.FingerprintLookup.
type VelocityIndex struct {
	client *redis.Client
}

// New creates a velocity index from a Redis URL. Returns nil if the URL is
// empty (Redis not configured).
func New(url string) (*VelocityIndex, error) {
	if url == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &VelocityIndex{client: client}, nil
}

func key(fingerprint string) string {
	return "veriflow:fp:" + fingerprint
}

// Record registers a case against a fingerprint. Adding the same case twice
// is a no-op, so reruns do not inflate counts.
func (v *VelocityIndex) Record(ctx context.Context, fingerprint string, caseID uuid.UUID) error {
	if fingerprint == "" {
		return nil
	}
	if err := v.client.SAdd(ctx, key(fingerprint), caseID.String()).Err(); err != nil {
		return fmt.Errorf("record fingerprint: %w", err)
	}
	return nil
}

// CountOtherCases returns how many other cases share the fingerprint. The
// excluded case is subtracted only when it is itself a member, so a case
// never counts itself as a reuse.
func (v *VelocityIndex) CountOtherCases(ctx context.Context, fingerprint string, excludeCaseID uuid.UUID) (int, error) {
	pipe := v.client.Pipeline()
	card := pipe.SCard(ctx, key(fingerprint))
	isMember := pipe.SIsMember(ctx, key(fingerprint), excludeCaseID.String())
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("count fingerprint reuse: %w", err)
	}

	count := int(card.Val())
	if isMember.Val() {
		count--
	}
	if count < 0 {
		count = 0
	}
	return count, nil
}

// Health checks the Redis connection.
func (v *VelocityIndex) Health(ctx context.Context) error {
	return v.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (v *VelocityIndex) Close() error {
	return v.client.Close()
}
