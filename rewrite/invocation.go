package rewrite

import (
	"context"
	"sync/atomic"

	"geminify/apperr"
	"geminify/prompt"
	"geminify/settings"
)

// State は1回の呼び出しの状態です。Succeeded と Failed は終端です。
type State int32

const (
	StateIdle State = iota
	StateValidating
	StateRequesting
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateRequesting:
		return "requesting"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Stage は進捗の段階です。
type Stage string

const (
	StageConnecting Stage = "connecting"
	StageComposing  Stage = "composing"
	StageRetrying   Stage = "retrying"
	StageProcessing Stage = "processing"
	StageDone       Stage = "done"
)

var stagePercent = map[Stage]int{
	StageConnecting: 10,
	StageComposing:  30,
	StageProcessing: 80,
	StageDone:       100,
}

// Progress は進捗ストリームの1要素です。Percent は単調非減少です。
type Progress struct {
	Percent int    `json:"percent"`
	Stage   Stage  `json:"stage"`
	Message string `json:"message"`
}

// Request は1回の書き換え要求です。
type Request struct {
	Text               string
	Span               *Span
	Style              prompt.Style
	CustomInstructions string
	// Language が nil の場合は設定の翻訳モードを使います。
	Language *settings.LanguageRewrite
	Strategy Strategy
	// Host はメトリクスと履歴に記録する呼び出し元の名前です。
	Host string
}

// Result は書き換えの最終結果です。失敗時は Err と Message が必ず設定されます。
type Result struct {
	ID        string        `json:"id"`
	Original  string        `json:"original"`
	Rewritten string        `json:"rewritten"`
	Success   bool          `json:"success"`
	Err       *apperr.Error `json:"-"`
	ErrorKind apperr.Kind   `json:"error_kind,omitempty"`
	Message   string        `json:"message"`
	Span      *Span         `json:"span,omitempty"`
	Strategy  Strategy      `json:"strategy"`
	Style     prompt.Style  `json:"style,omitempty"`
	Model     string        `json:"model"`
	Attempts  int           `json:"attempts"`
	Cached    bool          `json:"cached"`
}

// Invocation は実行中の書き換えです。Progress は完了時に閉じられます。
type Invocation struct {
	id       string
	progress chan Progress
	done     chan struct{}
	cancel   context.CancelFunc
	state    atomic.Int32
	percent  atomic.Int32
	result   Result
}

func newInvocation(id string, cancel context.CancelFunc, buffer int) *Invocation {
	return &Invocation{
		id:       id,
		progress: make(chan Progress, buffer),
		done:     make(chan struct{}),
		cancel:   cancel,
	}
}

// ID は呼び出しの識別子です。
func (i *Invocation) ID() string { return i.id }

// Progress は順序付きの進捗ストリームを返します。
func (i *Invocation) Progress() <-chan Progress { return i.progress }

// Done は完了時に閉じられるチャネルを返します。
func (i *Invocation) Done() <-chan struct{} { return i.done }

// Cancel は進行中のネットワーク呼び出しを中止します。結果は canceled の Failed になります。
func (i *Invocation) Cancel() { i.cancel() }

// State は現在の状態を返します。
func (i *Invocation) State() State { return State(i.state.Load()) }

// Wait は完了を待って結果を返します。
func (i *Invocation) Wait() Result {
	<-i.done
	return i.result
}

func (i *Invocation) setState(s State) { i.state.Store(int32(s)) }

func (i *Invocation) emit(stage Stage, message string) {
	percent, ok := stagePercent[stage]
	if !ok {
		percent = int(i.percent.Load())
	}
	if int32(percent) < i.percent.Load() {
		return
	}
	i.percent.Store(int32(percent))

	select {
	case i.progress <- Progress{Percent: percent, Stage: stage, Message: message}:
	default:
		// バッファが一杯なら助言的な通知は捨てる
	}
}

func (i *Invocation) finish(r Result) {
	i.result = r
	if r.Success {
		i.setState(StateSucceeded)
	} else {
		i.setState(StateFailed)
	}
	close(i.progress)
	close(i.done)
	i.cancel()
}
