//go:build integration

package redis_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"taskboard/internal/bruteforce"
	bfredis "taskboard/internal/bruteforce/store/redis"
	platformredis "taskboard/internal/platform/redis"
	"taskboard/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *bfredis.Store
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.store = bfredis.New(&platformredis.Client{Client: s.redis.Client})
}

func (s *RedisStoreSuite) SetupTest() {
	ctx := context.Background()
	err := s.redis.FlushAll(ctx)
	s.Require().NoError(err)
}

// TestConcurrentIncrements verifies that concurrent failed attempts against
// the same identifier never undercount (server-side INCR is atomic).
func (s *RedisStoreSuite) TestConcurrentIncrements() {
	ctx := context.Background()
	key := "bf:short:203.0.113.1"
	const goroutines = 50

	var wg sync.WaitGroup
	var maxSeen atomic.Int32
	var errs atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			count, err := s.store.Increment(ctx, key, time.Minute)
			if err != nil {
				errs.Add(1)
				return
			}
			for {
				seen := maxSeen.Load()
				if int32(count) <= seen || maxSeen.CompareAndSwap(seen, int32(count)) {
					return
				}
			}
		}()
	}

	wg.Wait()

	s.Equal(int32(0), errs.Load(), "no errors expected under contention")
	s.Equal(int32(goroutines), maxSeen.Load(), "every increment must be counted")

	count, err := s.store.Get(ctx, key)
	s.Require().NoError(err)
	s.Equal(goroutines, count)
}

// TestWindowFixedAtFirstFailure verifies the TTL is attached once and later
// increments do not extend the trailing window.
func (s *RedisStoreSuite) TestWindowFixedAtFirstFailure() {
	ctx := context.Background()
	key := "bf:short:user:u1"

	_, err := s.store.Increment(ctx, key, 2*time.Second)
	s.Require().NoError(err)

	initialTTL, err := s.redis.Client.TTL(ctx, key).Result()
	s.Require().NoError(err)
	s.Greater(initialTTL, time.Duration(0))
	s.LessOrEqual(initialTTL, 2*time.Second)

	// A later failure with a larger window must not push the expiry out.
	_, err = s.store.Increment(ctx, key, time.Hour)
	s.Require().NoError(err)

	laterTTL, err := s.redis.Client.TTL(ctx, key).Result()
	s.Require().NoError(err)
	s.LessOrEqual(laterTTL, 2*time.Second)
}

// TestWindowExpiry verifies counts vanish once the window lapses.
func (s *RedisStoreSuite) TestWindowExpiry() {
	ctx := context.Background()
	key := "bf:short:203.0.113.2"

	count, err := s.store.Increment(ctx, key, time.Second)
	s.Require().NoError(err)
	s.Equal(1, count)

	time.Sleep(1500 * time.Millisecond)

	count, err = s.store.Get(ctx, key)
	s.Require().NoError(err)
	s.Zero(count, "count should expire with the window")
}

// TestGetMissingKey verifies an unseen identifier reads as zero, not an error.
func (s *RedisStoreSuite) TestGetMissingKey() {
	count, err := s.store.Get(context.Background(), "bf:short:never-seen")
	s.Require().NoError(err)
	s.Zero(count)
}

// TestReset verifies a successful auth can wipe the counter.
func (s *RedisStoreSuite) TestReset() {
	ctx := context.Background()
	key := "bf:short:user:u2"

	for i := 0; i < 5; i++ {
		_, err := s.store.Increment(ctx, key, time.Minute)
		s.Require().NoError(err)
	}

	s.Require().NoError(s.store.Reset(ctx, key))

	count, err := s.store.Get(ctx, key)
	s.Require().NoError(err)
	s.Zero(count)
}

// TestBlockRoundTrip verifies blocks serialize through redis with a TTL
// bounded by their expiry.
func (s *RedisStoreSuite) TestBlockRoundTrip() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)
	block := &bruteforce.SecurityBlock{
		Identifier:     "user:u3",
		IdentifierType: bruteforce.IdentifierUser,
		Reason:         "excessive failed authentication attempts",
		BlockedAt:      now,
		ExpiresAt:      now.Add(time.Hour),
	}

	s.Require().NoError(s.store.PutBlock(ctx, block))

	got, err := s.store.GetBlock(ctx, "user:u3")
	s.Require().NoError(err)
	s.Require().NotNil(got)
	s.Equal(block.Identifier, got.Identifier)
	s.Equal(block.IdentifierType, got.IdentifierType)
	s.Equal(block.Reason, got.Reason)
	s.Equal(block.BlockedAt.Unix(), got.BlockedAt.Unix())
	s.Equal(block.ExpiresAt.Unix(), got.ExpiresAt.Unix())

	ttl, err := s.redis.Client.TTL(ctx, "bf:block:user:u3").Result()
	s.Require().NoError(err)
	s.Greater(ttl, time.Duration(0))
	s.LessOrEqual(ttl, time.Hour)
}

// TestExpiredBlockNotStored verifies a block past its expiry never lands in
// redis at all.
func (s *RedisStoreSuite) TestExpiredBlockNotStored() {
	ctx := context.Background()
	now := time.Now().UTC()
	block := &bruteforce.SecurityBlock{
		Identifier:     "203.0.113.3",
		IdentifierType: bruteforce.IdentifierIP,
		Reason:         "excessive failed authentication attempts",
		BlockedAt:      now.Add(-25 * time.Hour),
		ExpiresAt:      now.Add(-time.Hour),
	}

	s.Require().NoError(s.store.PutBlock(ctx, block))

	got, err := s.store.GetBlock(ctx, "203.0.113.3")
	s.Require().NoError(err)
	s.Nil(got)
}

// TestGetBlockMissing verifies an unblocked identifier reads as nil, nil.
func (s *RedisStoreSuite) TestGetBlockMissing() {
	got, err := s.store.GetBlock(context.Background(), "user:never-blocked")
	s.Require().NoError(err)
	s.Nil(got)
}

// TestDeleteBlock verifies an admin unblock removes the key immediately.
func (s *RedisStoreSuite) TestDeleteBlock() {
	ctx := context.Background()
	now := time.Now().UTC()
	block := &bruteforce.SecurityBlock{
		Identifier:     "user:u4",
		IdentifierType: bruteforce.IdentifierUser,
		Reason:         "excessive failed authentication attempts",
		BlockedAt:      now,
		ExpiresAt:      now.Add(24 * time.Hour),
	}
	s.Require().NoError(s.store.PutBlock(ctx, block))

	s.Require().NoError(s.store.DeleteBlock(ctx, "user:u4"))

	got, err := s.store.GetBlock(ctx, "user:u4")
	s.Require().NoError(err)
	s.Nil(got)
}
