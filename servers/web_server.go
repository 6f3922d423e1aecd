package servers

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"geminify/handlers/web"
	"geminify/interfaces"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// WebServer はHTTPサイドカーを管理します。
type WebServer struct {
	log      interfaces.Logger
	http     *http.Server
	listener net.Listener
}

// NewWebServer は API と /metrics を持つ WebServer を作成します。
func NewWebServer(addr string, handler *web.Handler, apiKey string, log interfaces.Logger) *WebServer {
	r := mux.NewRouter()
	handler.Register(r)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	return &WebServer{
		log: log,
		http: &http.Server{
			Addr:              addr,
			Handler:           web.Chain(r, log, apiKey),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

func (s *WebServer) Name() string { return "web" }

// Addr は待ち受け中のアドレスを返します。起動前は設定値を返します。
func (s *WebServer) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.http.Addr
}

// Start はポートを確保してからバックグラウンドで配信を始めます。
func (s *WebServer) Start() error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return err
	}
	s.listener = ln
	s.log.Info("Webサーバーを起動します", "addr", ln.Addr().String())

	go func() {
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("Webサーバーが異常終了しました", "error", err)
		}
	}()
	return nil
}

// Stop はWebサーバーをシャットダウンします。
func (s *WebServer) Stop(ctx context.Context) error {
	s.log.Info("Webサーバーをシャットダウンします...")
	return s.http.Shutdown(ctx)
}
