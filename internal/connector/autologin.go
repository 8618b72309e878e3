package connector

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/cfclient-project/cfclient/internal/config"
	"github.com/cfclient-project/cfclient/internal/events"
	"github.com/cfclient-project/cfclient/internal/util"
)

// AutoLogin answers the account dialog with the configured credentials and
// plays the configured character once the character list arrives. Each
// step is attempted once per connection; later prompts are left to the
// user.
type AutoLogin struct {
	conn      *ServerConnector
	login     string
	password  string
	character string
	logger    zerolog.Logger

	mu        sync.Mutex
	loggedIn  bool
	played    bool
	available []string
}

// NewAutoLogin creates an auto login for srv's account settings. It does
// nothing when no account login is configured.
func NewAutoLogin(conn *ServerConnector, srv config.ServerConfig) *AutoLogin {
	return &AutoLogin{
		conn:      conn,
		login:     srv.AccountLogin,
		password:  srv.AccountPassword,
		character: srv.Character,
		logger:    util.ComponentLogger("autologin"),
	}
}

// Register subscribes the auto login to bus.
func (a *AutoLogin) Register(bus *events.EventBus) {
	bus.Subscribe(events.EventAccount, "autologin", a.OnAccount)
	bus.Subscribe(events.EventConnectionState, "autologin", a.OnConnectionState)
}

// OnConnectionState rearms the auto login when a new connection starts.
func (a *AutoLogin) OnConnectionState(_ context.Context, ev events.Event) error {
	p, ok := ev.Payload.(events.ConnectionStatePayload)
	if !ok || p.State != events.StateConnecting {
		return nil
	}
	a.mu.Lock()
	a.loggedIn, a.played, a.available = false, false, nil
	a.mu.Unlock()
	return nil
}

// OnAccount is an events.HandlerFunc for account notifications.
func (a *AutoLogin) OnAccount(_ context.Context, ev events.Event) error {
	if a.login == "" {
		return nil
	}

	switch p := ev.Payload.(type) {
	case events.ManageAccount:
		a.mu.Lock()
		first := !a.loggedIn
		a.loggedIn = true
		a.mu.Unlock()

		if !first {
			a.logger.Warn().Str("account", a.login).Msg("server asked for the account again, automatic login already attempted")
			return nil
		}
		a.logger.Info().Str("account", a.login).Msg("logging into account")
		return a.conn.SendAccountLogin(a.login, a.password)

	case events.AccountListStart:
		a.mu.Lock()
		a.available = nil
		a.mu.Unlock()

	case events.AccountCharacter:
		a.mu.Lock()
		a.available = append(a.available, p.Character.Name)
		a.mu.Unlock()

	case events.AccountListEnd:
		a.mu.Lock()
		available := a.available
		first := !a.played
		if a.character != "" {
			a.played = true
		}
		a.mu.Unlock()

		if a.character == "" {
			a.logger.Info().Strs("characters", available).Msg("no character configured, waiting for the user")
			return nil
		}
		if !first {
			return nil
		}
		if !contains(available, a.character) {
			a.logger.Warn().
				Str("character", a.character).
				Strs("characters", available).
				Msg("configured character is not in the account list, trying anyway")
		}
		a.logger.Info().Str("character", a.character).Msg("playing character")
		return a.conn.SendAccountPlay(a.character)
	}
	return nil
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if strings.EqualFold(n, name) {
			return true
		}
	}
	return false
}
