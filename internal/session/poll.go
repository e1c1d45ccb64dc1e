package session

import (
	"sync"
	"time"
)

type getter interface {
	Get(key string) (string, bool, error)
}

type snapshot struct {
	value string
	ok    bool
}

// poll calls fn whenever one of keys reads differently than on the previous
// tick. Read errors keep the previous snapshot. It backs stores that have no
// native change feed.
func poll(store getter, keys []string, interval time.Duration, fn func()) func() {
	read := func() map[string]snapshot {
		out := make(map[string]snapshot, len(keys))
		for _, key := range keys {
			value, ok, err := store.Get(key)
			if err != nil {
				continue
			}
			out[key] = snapshot{value: value, ok: ok}
		}
		return out
	}

	last := read()
	done := make(chan struct{})
	stopped := make(chan struct{})

	go func() {
		defer close(stopped)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				current := read()
				changed := false
				for key, snap := range current {
					if prev, seen := last[key]; !seen || prev != snap {
						changed = true
					}
					last[key] = snap
				}
				if changed {
					fn()
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			<-stopped
		})
	}
}
