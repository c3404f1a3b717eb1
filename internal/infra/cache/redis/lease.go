package redisx

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Снимаем lease, только если он всё ещё наш (мог истечь и достаться другому инстансу).
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Продлеваем тоже только свой lease.
var renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// Acquire берёт lease на ключ склейки между инстансами (SET NX PX).
// ok == false: склейку уже ведёт кто-то другой. Пока release не вызван,
// lease продлевается каждые ttl/3.
func (c *Cache) Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error) {
	token := uuid.NewString()
	ok, err = c.rdb.SetNX(ctx, c.k(key), token, ttl).Result()
	if err != nil {
		c.logger.Printf("LEASE %q failed: %v", key, err)
		return nil, false, err
	}
	if !ok {
		c.logger.Printf("LEASE %q busy", key)
		return nil, false, nil
	}
	c.logger.Printf("LEASE %q acquired (ttl=%s)", key, ttl)

	stop := make(chan struct{})
	done := make(chan struct{})
	go c.keepLease(key, token, ttl, stop, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			// контекст запроса мог уже истечь, снимаем в своём
			rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := releaseScript.Run(rctx, c.rdb, []string{c.k(key)}, token).Err(); err != nil {
				c.logger.Printf("LEASE %q release failed: %v", key, err)
				return
			}
			c.logger.Printf("LEASE %q released", key)
		})
	}, true, nil
}

func (c *Cache) keepLease(key, token string, ttl time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	t := time.NewTicker(max(ttl/3, 10*time.Millisecond))
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			n, err := renewScript.Run(rctx, c.rdb, []string{c.k(key)}, token, ttl.Milliseconds()).Int64()
			cancel()
			switch {
			case err != nil:
				// сеть могла моргнуть: попробуем на следующем тике
				c.logger.Printf("LEASE %q renew failed: %v", key, err)
			case n == 0:
				c.logger.Printf("LEASE %q lost: expired or taken over", key)
				return
			}
		}
	}
}
