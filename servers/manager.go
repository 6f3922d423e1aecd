package servers

import (
	"context"
	"fmt"

	"geminify/interfaces"
)

// Manager は登録されたサーバーをまとめて起動・停止します。
type Manager struct {
	servers []Server
	started []Server
	log     interfaces.Logger
}

func NewManager(log interfaces.Logger) *Manager {
	return &Manager{log: log}
}

func (m *Manager) AddServer(server Server) {
	m.servers = append(m.servers, server)
}

// StartAll は登録順にサーバーを起動します。途中で失敗した場合は起動済みのものを停止してエラーを返します。
func (m *Manager) StartAll() error {
	for _, s := range m.servers {
		m.log.Info("Starting server", "name", s.Name())
		if err := s.Start(); err != nil {
			m.StopAll(context.Background())
			return fmt.Errorf("failed to start %s: %w", s.Name(), err)
		}
		m.started = append(m.started, s)
		m.log.Info("Server started successfully", "name", s.Name())
	}
	return nil
}

// StopAll は起動済みのサーバーを逆順に停止します。
func (m *Manager) StopAll(ctx context.Context) {
	for i := len(m.started) - 1; i >= 0; i-- {
		s := m.started[i]
		m.log.Info("Stopping server", "name", s.Name())
		if err := s.Stop(ctx); err != nil {
			m.log.Error("Failed to stop server", "name", s.Name(), "error", err)
			continue
		}
		m.log.Info("Server stopped successfully", "name", s.Name())
	}
	m.started = nil
}
