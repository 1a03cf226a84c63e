package keylock

import "sync"

// KeyedMutex 按 key 的互斥锁，保证同一工单的读-改-写序列串行执行，
// 不同工单之间互不阻塞。
//
// 锁条目按需创建且不回收：key 为工单ID，数量级为活跃工单数，
// 常驻内存成本可忽略。
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New 创建 KeyedMutex
func New() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*sync.Mutex)}
}

// Lock 获取指定 key 的互斥锁
func (k *KeyedMutex) Lock(key string) {
	k.get(key).Lock()
}

// Unlock 释放指定 key 的互斥锁
func (k *KeyedMutex) Unlock(key string) {
	k.get(key).Unlock()
}

func (k *KeyedMutex) get(key string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	return m
}
