package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func exercisesMutualExclusion(t *testing.T, l Locker) {
	t.Helper()

	const workers = 20
	var (
		wg     sync.WaitGroup
		inside int32
		maxIn  int32
		total  int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			release, err := l.Acquire(ctx, "acct-1")
			if err != nil {
				t.Errorf("acquire: %v", err)
				return
			}
			defer release()

			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxIn)
				if n <= m || atomic.CompareAndSwapInt32(&maxIn, m, n) {
					break
				}
			}
			total++
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
		}()
	}
	wg.Wait()

	if maxIn != 1 {
		t.Fatalf("expected at most one holder, saw %d", maxIn)
	}
	if total != workers {
		t.Fatalf("expected %d critical sections, got %d", workers, total)
	}
}

func TestKeyedMutualExclusion(t *testing.T) {
	l := NewKeyed()
	exercisesMutualExclusion(t, l)
	if l.size() != 0 {
		t.Fatalf("expected idle keys to be dropped, %d left", l.size())
	}
}

func TestKeyedTimeout(t *testing.T) {
	l := NewKeyed()
	release, err := l.Acquire(context.Background(), "acct-1")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := l.Acquire(ctx, "acct-1"); !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}

	// other keys are independent
	other, err := l.Acquire(context.Background(), "acct-2")
	if err != nil {
		t.Fatalf("acquire other key: %v", err)
	}
	other()

	release()
	release()

	again, err := l.Acquire(context.Background(), "acct-1")
	if err != nil {
		t.Fatalf("reacquire: %v", err)
	}
	again()
	if l.size() != 0 {
		t.Fatalf("expected empty table, %d left", l.size())
	}
}

func setupRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return client, mr
}

func TestRedisMutualExclusion(t *testing.T) {
	client, _ := setupRedis(t)
	exercisesMutualExclusion(t, NewRedis(client, time.Minute))
}

func TestRedisTimeoutAndRelease(t *testing.T) {
	client, mr := setupRedis(t)
	l := NewRedis(client, time.Minute)

	release, err := l.Acquire(context.Background(), "acct-1")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if !mr.Exists(redisLockPrefix + "acct-1") {
		t.Fatalf("expected lock key in redis")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	if _, err := l.Acquire(ctx, "acct-1"); !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}

	release()
	if mr.Exists(redisLockPrefix + "acct-1") {
		t.Fatalf("expected lock key to be released")
	}
}

func TestRedisReleaseKeepsForeignLease(t *testing.T) {
	client, mr := setupRedis(t)
	l := NewRedis(client, time.Second)

	release, err := l.Acquire(context.Background(), "acct-1")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	// lease expires and another holder takes over
	mr.FastForward(2 * time.Second)
	if err := mr.Set(redisLockPrefix+"acct-1", "someone-else"); err != nil {
		t.Fatalf("set: %v", err)
	}

	release()
	got, err := mr.Get(redisLockPrefix + "acct-1")
	if err != nil || got != "someone-else" {
		t.Fatalf("foreign lease was released: %q %v", got, err)
	}
}
