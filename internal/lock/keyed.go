// Package lock содержит мьютексы по ключу: склейка сериализуется по
// (owner, fileName), чтение/перезапись payload — по blobId.
package lock

import "sync"

type entry struct {
	mu   sync.RWMutex
	refs int
}

// Keyed: набор RW-мьютексов по строковому ключу. Запись удаляется из
// карты, когда её больше никто не держит и не ждёт.
type Keyed struct {
	mu sync.Mutex
	m  map[string]*entry
}

func NewKeyed() *Keyed {
	return &Keyed{m: make(map[string]*entry)}
}

func (k *Keyed) acquire(key string) *entry {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, ok := k.m[key]
	if !ok {
		e = &entry{}
		k.m[key] = e
	}
	e.refs++
	return e
}

func (k *Keyed) release(key string, e *entry) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(k.m, key)
	}
}

// Lock берёт эксклюзивную блокировку ключа и возвращает функцию освобождения.
func (k *Keyed) Lock(key string) (unlock func()) {
	e := k.acquire(key)
	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		k.release(key, e)
	}
}

// RLock берёт разделяемую блокировку ключа.
func (k *Keyed) RLock(key string) (unlock func()) {
	e := k.acquire(key)
	e.mu.RLock()
	return func() {
		e.mu.RUnlock()
		k.release(key, e)
	}
}

// TryLock не ждёт: false, если ключ уже кем-то занят.
func (k *Keyed) TryLock(key string) (unlock func(), ok bool) {
	e := k.acquire(key)
	if !e.mu.TryLock() {
		k.release(key, e)
		return nil, false
	}
	return func() {
		e.mu.Unlock()
		k.release(key, e)
	}, true
}

// Len: число ключей в карте (для тестов и метрик).
func (k *Keyed) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.m)
}
