package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/redis/go-redis/v9"
)

func TestLockTaken(t *testing.T) {
	dial := errors.New("dial tcp 127.0.0.1:6379: connect: connection refused")
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"taken on a quorum", &redsync.ErrTaken{Nodes: []int{0}}, true},
		{"taken on one node", errors.Join(&redsync.ErrNodeTaken{Node: 0}), true},
		{"retries exhausted", redsync.ErrFailed, true},
		{"redis unreachable", errors.Join(&redsync.RedisError{Node: 0, Err: dial}), false},
		{"anything else", dial, false},
	}
	for _, tc := range cases {
		if got := lockTaken(tc.err); got != tc.want {
			t.Errorf("%s: lockTaken = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestRedsyncLockerUnreachable(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 200 * time.Millisecond})
	t.Cleanup(func() { _ = rdb.Close() })

	_, err := NewRedsyncLocker(rdb, time.Minute).Acquire(context.Background(), "checkout:application:1")
	if !errors.Is(err, ErrLockUnavailable) || errors.Is(err, ErrLockBusy) {
		t.Fatalf("err = %v, want ErrLockUnavailable", err)
	}
}
