// Package keylock реализует именованные блокировки с ограниченным ожиданием.
// Local работает внутри одного процесса, Redis подходит для нескольких реплик.
package keylock

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrLockTimeout блокировку не удалось получить за отведённое время
var ErrLockTimeout = errors.New("keylock: lock wait timeout")

// Unlock освобождает блокировку, повторный вызов ничего не делает
type Unlock func()

// Local блокировки по ключу внутри процесса
// Записи удаляются, когда на ключ никто не претендует
type Local struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	sem  chan struct{}
	refs int
}

// NewLocal создает локальный менеджер блокировок
func NewLocal() *Local {
	return &Local{locks: make(map[string]*entry)}
}

// Acquire берёт блокировку key, ожидая не дольше wait
func (l *Local) Acquire(ctx context.Context, key string, wait time.Duration) (Unlock, error) {
	e := l.ref(key)

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case e.sem <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-e.sem
				l.unref(key)
			})
		}, nil
	case <-timer.C:
		l.unref(key)
		return nil, ErrLockTimeout
	case <-ctx.Done():
		l.unref(key)
		return nil, ctx.Err()
	}
}

// Len количество ключей, на которые сейчас кто-то претендует
func (l *Local) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

func (l *Local) ref(key string) *entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.locks[key]
	if !ok {
		e = &entry{sem: make(chan struct{}, 1)}
		l.locks[key] = e
	}
	e.refs++
	return e
}

func (l *Local) unref(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.locks[key]
	if !ok {
		return
	}
	e.refs--
	if e.refs == 0 {
		delete(l.locks, key)
	}
}
