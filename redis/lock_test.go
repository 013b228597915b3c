package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/camden-git/identitybackend/models"
)

// newTestClient connects to REDIS_TEST_URL when set and otherwise starts an
// in-process miniredis server. The server is nil for a real Redis.
func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	if url := os.Getenv("REDIS_TEST_URL"); url != "" {
		client, err := New(context.Background(), url, zap.NewNop())
		require.NoError(t, err)
		t.Cleanup(func() { client.Close() })
		return client, nil
	}

	server := miniredis.RunT(t)
	client := NewFromClient(goredis.NewClient(&goredis.Options{Addr: server.Addr()}), zap.NewNop())
	t.Cleanup(func() { client.Close() })
	return client, server
}

func TestNextBackoff(t *testing.T) {
	assert.Equal(t, 20*time.Millisecond, nextBackoff(10*time.Millisecond))
	assert.Equal(t, maxBackoff, nextBackoff(300*time.Millisecond))
	assert.Equal(t, maxBackoff, nextBackoff(maxBackoff))
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := New(context.Background(), "not a url", zap.NewNop())
	assert.Error(t, err)
}

func TestClientHealth(t *testing.T) {
	client, server := newTestClient(t)
	require.NoError(t, client.Health(context.Background()))

	if server == nil {
		return
	}
	server.Close()
	assert.Error(t, client.Health(context.Background()))
}

func TestLockerExcludesOverlappingKeys(t *testing.T) {
	client, _ := newTestClient(t)
	prefix := "test:lock:" + t.Name() + ":"
	locker := NewLocker(client, prefix, 5*time.Second, 100*time.Millisecond)
	ctx := context.Background()

	release, err := locker.Lock(ctx, []string{"phone:123", "email:a@x.io"})
	require.NoError(t, err)

	_, err = locker.Lock(ctx, []string{"email:a@x.io"})
	assert.ErrorIs(t, err, ErrLockNotAcquired)

	other, err := locker.Lock(ctx, []string{"email:b@x.io"})
	require.NoError(t, err)
	other()

	release()

	again, err := locker.Lock(ctx, []string{"email:a@x.io"})
	require.NoError(t, err)
	again()
}

func TestLockerGivesUpAtWaitDeadline(t *testing.T) {
	client, _ := newTestClient(t)
	prefix := "test:lock:" + t.Name() + ":"
	wait := 150 * time.Millisecond
	locker := NewLocker(client, prefix, 5*time.Second, wait)
	ctx := context.Background()

	holder, err := locker.Lock(ctx, []string{"email:a@x.io"})
	require.NoError(t, err)
	defer holder()

	start := time.Now()
	_, err = locker.Lock(ctx, []string{"email:a@x.io"})
	elapsed := time.Since(start)

	require.ErrorIs(t, err, ErrLockNotAcquired)
	assert.GreaterOrEqual(t, elapsed, wait)
	assert.Less(t, elapsed, wait+maxBackoff+time.Second)
}

func TestLockerWaitsForRelease(t *testing.T) {
	client, _ := newTestClient(t)
	prefix := "test:lock:" + t.Name() + ":"
	locker := NewLocker(client, prefix, 5*time.Second, 2*time.Second)
	ctx := context.Background()

	holder, err := locker.Lock(ctx, []string{"phone:1"})
	require.NoError(t, err)
	time.AfterFunc(50*time.Millisecond, holder)

	release, err := locker.Lock(ctx, []string{"phone:1"})
	require.NoError(t, err)
	release()
}

func TestLockerHonoursContext(t *testing.T) {
	client, _ := newTestClient(t)
	prefix := "test:lock:" + t.Name() + ":"
	locker := NewLocker(client, prefix, 5*time.Second, 5*time.Second)

	holder, err := locker.Lock(context.Background(), []string{"phone:1"})
	require.NoError(t, err)
	defer holder()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(ctx, []string{"phone:1"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLockerReleasesPartialAcquisition(t *testing.T) {
	client, _ := newTestClient(t)
	prefix := "test:lock:" + t.Name() + ":"
	locker := NewLocker(client, prefix, 5*time.Second, 50*time.Millisecond)
	ctx := context.Background()

	blocker, err := locker.Lock(ctx, []string{"phone:9"})
	require.NoError(t, err)
	defer blocker()

	// email:a sorts first and is taken before phone:9 fails
	_, err = locker.Lock(ctx, []string{"phone:9", "email:a"})
	require.Error(t, err)

	exists, err := client.rdb.Exists(ctx, prefix+"email:a").Result()
	require.NoError(t, err)
	assert.Zero(t, exists)
}

func TestLockerReleaseKeepsForeignOwner(t *testing.T) {
	client, server := newTestClient(t)
	if server == nil {
		t.Skip("needs miniredis to expire keys")
	}
	prefix := "test:lock:" + t.Name() + ":"
	locker := NewLocker(client, prefix, time.Second, 50*time.Millisecond)
	ctx := context.Background()

	expired, err := locker.Lock(ctx, []string{"email:a"})
	require.NoError(t, err)
	assert.Equal(t, time.Second, server.TTL(prefix+"email:a"))

	server.FastForward(2 * time.Second)
	current, err := locker.Lock(ctx, []string{"email:a"})
	require.NoError(t, err)
	token, err := server.Get(prefix + "email:a")
	require.NoError(t, err)

	// the stale holder must not delete the new owner's key
	expired()
	still, err := server.Get(prefix + "email:a")
	require.NoError(t, err)
	assert.Equal(t, token, still)

	current()
	assert.False(t, server.Exists(prefix+"email:a"))
}

func TestEventPublisherDeliver(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()
	channel := "test-events-" + t.Name()

	sub := client.rdb.(*goredis.Client).Subscribe(ctx, channel)
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	publisher := NewEventPublisher(client, channel)
	assert.Equal(t, "redis", publisher.Name())

	parent := uint(1)
	require.NoError(t, publisher.Deliver(ctx, models.IdentityEvent{
		Type:             models.EventContactLinked,
		ContactID:        2,
		PrimaryContactID: 1,
		ParentContactID:  &parent,
		Timestamp:        1700000000,
	}))

	select {
	case msg := <-sub.Channel():
		assert.JSONEq(t, `{"type":"contact.linked","contact_id":2,"primary_contact_id":1,"parent_contact_id":1,"timestamp":1700000000}`, msg.Payload)
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}
}

func TestEventPublisherDeliverFailsWhenDown(t *testing.T) {
	client, server := newTestClient(t)
	if server == nil {
		t.Skip("needs miniredis to simulate an outage")
	}
	server.Close()

	err := NewEventPublisher(client, "identity-events").Deliver(context.Background(), models.IdentityEvent{Type: models.EventContactCreated})
	assert.Error(t, err)
}
