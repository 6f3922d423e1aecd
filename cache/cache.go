// Package cache は書き換え結果をプロンプトと生成パラメータ単位でキャッシュします。
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

// DefaultTTL はキャッシュ項目の既定の有効期間です。
const DefaultTTL = 10 * time.Minute

// Cache は書き換え結果の保存先です。
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Close() error
}

// Key はモデル・温度・トークン上限・プロンプトからキーを作成します。
func Key(model string, temperature float64, maxTokens int, prompt string) string {
	data := fmt.Sprintf("%s:%.3f:%d:%s", model, temperature, maxTokens, prompt)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

type entry struct {
	value    string
	storedAt time.Time
}

// Memory はプロセス内のTTL付きキャッシュです。
type Memory struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]entry
	now     func() time.Time
}

// NewMemory は新しいMemoryを作成します。ttl が0以下なら DefaultTTL です。
func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memory{ttl: ttl, entries: make(map[string]entry), now: time.Now}
}

func (m *Memory) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return "", false, nil
	}
	if m.now().Sub(e.storedAt) > m.ttl {
		delete(m.entries, key)
		return "", false, nil
	}
	return e.value, true, nil
}

func (m *Memory) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.entries[key] = entry{value: value, storedAt: now}

	// 期限切れの項目を掃除
	for k, e := range m.entries {
		if now.Sub(e.storedAt) > m.ttl {
			delete(m.entries, k)
		}
	}
	return nil
}

// Len は保持している項目数を返します。
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]entry)
	return nil
}
