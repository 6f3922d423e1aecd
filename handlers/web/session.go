package web

import (
	"crypto/rand"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
)

const (
	sessionName = "geminify"
	ownerKey    = "owner"
)

// Sessions はプレビューの所有者をクッキーセッションで識別します。
type Sessions struct {
	store *sessions.CookieStore
}

// NewSessions は secret で署名するセッションストアを作成します。
// secret が空の場合は起動ごとにランダムな鍵を使うため、再起動でセッションは失われます。
func NewSessions(secret string) *Sessions {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		rand.Read(key)
	}
	store := sessions.NewCookieStore(key)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return &Sessions{store: store}
}

// Owner は呼び出し元のセッションIDを返します。セッションがなければ作成してクッキーを設定します。
// レスポンスを書き始める前に呼ぶ必要があります。
func (s *Sessions) Owner(w http.ResponseWriter, r *http.Request) (string, error) {
	// 署名の検証に失敗した場合も新しいセッションが返るのでエラーは無視する
	session, _ := s.store.Get(r, sessionName)
	if owner, ok := session.Values[ownerKey].(string); ok && owner != "" {
		return owner, nil
	}
	owner := uuid.NewString()
	session.Values[ownerKey] = owner
	if err := session.Save(r, w); err != nil {
		return "", err
	}
	return owner, nil
}
