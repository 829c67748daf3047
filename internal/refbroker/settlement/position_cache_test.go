package settlement

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
)

// fakeCmdable implements redis.Cmdable by embedding it as a nil interface
// and overriding only the hash commands RedisPositionCache actually calls;
// any other method would panic on a nil receiver, which is fine since this
// cache never calls them.
type fakeCmdable struct {
	redis.Cmdable
	hashes map[string]map[string]string
}

func newFakeCmdable() *fakeCmdable {
	return &fakeCmdable{hashes: make(map[string]map[string]string)}
}

func (f *fakeCmdable) HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	if f.hashes[key] == nil {
		f.hashes[key] = make(map[string]string)
	}
	for i := 0; i+1 < len(values); i += 2 {
		field := values[i].(string)
		f.hashes[key][field] = toString(values[i+1])
	}
	cmd.SetVal(int64(len(values) / 2))
	return cmd
}

func (f *fakeCmdable) HGet(ctx context.Context, key, field string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx)
	h, ok := f.hashes[key]
	if !ok {
		cmd.SetErr(redis.Nil)
		return cmd
	}
	v, ok := h[field]
	if !ok {
		cmd.SetErr(redis.Nil)
		return cmd
	}
	cmd.SetVal(v)
	return cmd
}

func (f *fakeCmdable) HGetAll(ctx context.Context, key string) *redis.StringStringMapCmd {
	cmd := redis.NewStringStringMapCmd(ctx)
	cmd.SetVal(f.hashes[key])
	return cmd
}

func toString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case int64:
		return itoa(t)
	default:
		return ""
	}
}

func itoa(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func TestRedisPositionCacheSetGet(t *testing.T) {
	client := newFakeCmdable()
	cache := NewRedisPositionCache(client, "goldmine:positions")
	ctx := context.Background()

	if err := cache.Set(ctx, "acct1", "AAPL", 42); err != nil {
		t.Fatalf("Set: %v", err)
	}

	qty, ok, err := cache.Get(ctx, "acct1", "AAPL")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok || qty != 42 {
		t.Fatalf("Get = (%d, %v), want (42, true)", qty, ok)
	}
}

func TestRedisPositionCacheGetMissIsNotAnError(t *testing.T) {
	client := newFakeCmdable()
	cache := NewRedisPositionCache(client, "goldmine:positions")

	_, ok, err := cache.Get(context.Background(), "nobody", "AAPL")
	if err != nil {
		t.Fatalf("Get on a miss should not error, got %v", err)
	}
	if ok {
		t.Fatal("expected ok=false on a cache miss")
	}
}

func TestRedisPositionCacheAll(t *testing.T) {
	client := newFakeCmdable()
	cache := NewRedisPositionCache(client, "goldmine:positions")
	ctx := context.Background()

	if err := cache.Set(ctx, "acct1", "AAPL", 10); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := cache.Set(ctx, "acct1", "MSFT", -5); err != nil {
		t.Fatalf("Set: %v", err)
	}

	all, err := cache.All(ctx, "acct1")
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if all["AAPL"] != 10 || all["MSFT"] != -5 {
		t.Fatalf("All = %+v, want AAPL=10 MSFT=-5", all)
	}
}
