package paymentclient

import (
	"context"
	"sync"

	"github.com/kinterstore/qrishub.go/common"
	"golang.org/x/sync/singleflight"
)

type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Observer receives the side effects of the payment lifecycle. It replaces
// any global event bus; callbacks run on the goroutine that caused them.
type Observer interface {
	OnStatusChanged(reference string, from, to common.PaymentStatus)
	OnHistoryRefresh()
	OnProfileRefreshed(profile *Profile, err error)
	OnLogout(reason error)
}

// NopObserver can be embedded to implement only some callbacks.
type NopObserver struct{}

func (NopObserver) OnStatusChanged(reference string, from, to common.PaymentStatus) {}
func (NopObserver) OnHistoryRefresh()                                                {}
func (NopObserver) OnProfileRefreshed(profile *Profile, err error)                   {}
func (NopObserver) OnLogout(reason error)                                            {}

type refreshFunc func(ctx context.Context, refreshToken string) (string, error)

// Session owns the tokens of one signed in user. All requests share it so
// that concurrent 401s lead to a single refresh.
type Session struct {
	mu        sync.RWMutex
	tokens    Tokens
	loggedOut bool

	refreshGroup singleflight.Group
	observer     Observer
}

func NewSession(tokens Tokens, observer Observer) *Session {
	if observer == nil {
		observer = NopObserver{}
	}
	return &Session{tokens: tokens, observer: observer}
}

func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens.AccessToken
}

func (s *Session) Tokens() Tokens {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens
}

func (s *Session) SetTokens(tokens Tokens) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = tokens
	s.loggedOut = false
}

func (s *Session) LoggedOut() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loggedOut
}

// refresh replaces staleToken. Callers that saw the same stale token share
// one refresh call; a caller whose token was already replaced gets the
// current one without any request.
func (s *Session) refresh(ctx context.Context, staleToken string, do refreshFunc) (string, error) {
	v, err, _ := s.refreshGroup.Do("refresh", func() (interface{}, error) {
		tokens := s.Tokens()
		if tokens.AccessToken != staleToken {
			return tokens.AccessToken, nil
		}
		accessToken, err := do(ctx, tokens.RefreshToken)
		if err != nil {
			return "", err
		}
		s.mu.Lock()
		s.tokens.AccessToken = accessToken
		s.mu.Unlock()
		return accessToken, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// logout clears the tokens and notifies the observer once.
func (s *Session) logout(reason error) {
	s.mu.Lock()
	if s.loggedOut {
		s.mu.Unlock()
		return
	}
	s.loggedOut = true
	s.tokens = Tokens{}
	s.mu.Unlock()
	s.observer.OnLogout(reason)
}
