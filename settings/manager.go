package settings

import (
	"context"
	"fmt"
	"sync"

	"geminify/interfaces"
)

// Store は設定の永続化先です。
type Store interface {
	LoadSettings(ctx context.Context) (Settings, bool, error)
	SaveSettings(ctx context.Context, s Settings) error
}

// Manager はプロセス内で唯一の設定インスタンスを所有します。
// 変更は Update 経由で行い、変更のたびに永続化して購読者へ通知します。
type Manager struct {
	// pubMu は設定の差し替えから通知の完了までを直列化します。
	pubMu       sync.Mutex
	mu          sync.RWMutex
	current     Settings
	store       Store
	log         interfaces.Logger
	subscribers []func(Settings)
}

// NewManager は新しいManagerを作成します。bootstrap は保存済み設定がない場合の初期値です。
func NewManager(store Store, bootstrap Settings, log interfaces.Logger) *Manager {
	return &Manager{store: store, current: bootstrap, log: log}
}

// Load は保存済みの設定を読み込みます。保存済みのものがなければ初期値を保存します。
func (m *Manager) Load(ctx context.Context) (Settings, error) {
	stored, ok, err := m.store.LoadSettings(ctx)
	if err != nil {
		return Settings{}, fmt.Errorf("settings: load: %w", err)
	}

	m.pubMu.Lock()
	defer m.pubMu.Unlock()

	m.mu.Lock()
	if ok {
		// 保存済みの設定にAPIキーがなく、起動時の設定にある場合はそちらを使う
		if !stored.HasAPIKey() && m.current.HasAPIKey() {
			stored.APIKey = m.current.APIKey
		}
		m.current = stored
	}
	current := m.current
	m.mu.Unlock()

	if !ok {
		if err := m.store.SaveSettings(ctx, current); err != nil {
			return Settings{}, fmt.Errorf("settings: save defaults: %w", err)
		}
		m.log.Info("初期設定を保存しました", "model", current.Model)
	}
	m.publish(current)
	return current, nil
}

// Current は現在の設定のコピーを返します。
func (m *Manager) Current() Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Subscribe は設定変更時に呼ばれる関数を登録します。
func (m *Manager) Subscribe(fn func(Settings)) {
	m.mu.Lock()
	m.subscribers = append(m.subscribers, fn)
	m.mu.Unlock()
}

// Update は設定を変更し、検証・永続化した後に購読者へ通知します。
// 検証または保存に失敗した場合、現在の設定は変更されません。
// 購読者は Update が成功した順に通知を受けます。購読者の中から Update を呼んではいけません。
func (m *Manager) Update(ctx context.Context, mutate func(*Settings)) (Settings, error) {
	m.pubMu.Lock()
	defer m.pubMu.Unlock()

	m.mu.Lock()
	next := m.current
	mutate(&next)
	if err := next.Validate(); err != nil {
		m.mu.Unlock()
		return Settings{}, err
	}
	if err := m.store.SaveSettings(ctx, next); err != nil {
		m.mu.Unlock()
		return Settings{}, fmt.Errorf("settings: save: %w", err)
	}
	m.current = next
	m.mu.Unlock()

	m.log.Info("設定を更新しました", "model", next.Model, "language_rewrite", next.LanguageRewrite.Enabled)
	m.publish(next)
	return next, nil
}

func (m *Manager) publish(s Settings) {
	m.mu.RLock()
	subs := append([]func(Settings){}, m.subscribers...)
	m.mu.RUnlock()
	for _, fn := range subs {
		fn(s)
	}
}
