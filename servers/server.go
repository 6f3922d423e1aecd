package servers

import "context"

// Server は起動と停止を管理できるサービスのインターフェースです。
// Start はブロックせずに戻る必要があります。
type Server interface {
	Name() string
	Start() error
	Stop(ctx context.Context) error
}
