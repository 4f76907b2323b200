// Package session owns the principal lifecycle: it bridges the identity
// provider to the mirrored collections, runs the guarded profile bootstrap
// on sign-in and tears the local state down on sign-out.
package session

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/staffsync/staff-management/internal"
	"github.com/staffsync/staff-management/internal/audit"
	"github.com/staffsync/staff-management/internal/core/datamodel"
	"github.com/staffsync/staff-management/internal/core/events"
	"github.com/staffsync/staff-management/internal/docstore"
	"github.com/staffsync/staff-management/internal/identity"
	"github.com/staffsync/staff-management/internal/mirror"
)

const (
	// DefaultProfileWaitTimeout bounds how long the bootstrap waits for the
	// account mirror's first snapshot after sign-in.
	DefaultProfileWaitTimeout = 10 * time.Second
	// DefaultBootstrapGuardWindow is how long after sign-up the generic
	// bootstrap stays suppressed, long enough for the mirror's first event
	// carrying the explicitly created profile to arrive.
	DefaultBootstrapGuardWindow = 10 * time.Second
)

type Config struct {
	ProfileWaitTimeout   time.Duration
	BootstrapGuardWindow time.Duration
}

func (c Config) withDefaults() Config {
	if c.ProfileWaitTimeout <= 0 {
		c.ProfileWaitTimeout = DefaultProfileWaitTimeout
	}
	if c.BootstrapGuardWindow <= 0 {
		c.BootstrapGuardWindow = DefaultBootstrapGuardWindow
	}
	return c
}

// State is the readiness surface exposed to the presentation layer.
type State struct {
	SignedIn       bool   `json:"signed_in"`
	Email          string `json:"email,omitempty"`
	AuthSettled    bool   `json:"auth_settled"`
	ProfileSettled bool   `json:"profile_settled"`
}

type Manager struct {
	provider identity.Provider
	store    docstore.Store
	registry *mirror.Registry
	accounts *mirror.Mirror[datamodel.Account]
	sink     *audit.Sink
	bus      *events.EventBus
	logger   *slog.Logger
	cfg      Config

	base context.Context

	mu             sync.RWMutex
	principal      identity.Principal
	signedIn       bool
	authSettled    bool
	profileSettled bool

	// suppress blocks the generic bootstrap while a sign-up's explicit
	// profile creation propagates through the mirror.
	suppress atomic.Bool
}

func NewManager(
	provider identity.Provider,
	store docstore.Store,
	registry *mirror.Registry,
	accounts *mirror.Mirror[datamodel.Account],
	sink *audit.Sink,
	bus *events.EventBus,
	cfg Config,
	logger *slog.Logger,
) *Manager {
	return &Manager{
		provider: provider,
		store:    store,
		registry: registry,
		accounts: accounts,
		sink:     sink,
		bus:      bus,
		logger:   logger,
		cfg:      cfg.withDefaults(),
		base:     context.Background(),
	}
}

// Init registers for principal changes. The provider fires the callback once
// immediately with the current state, which settles the auth flag. base
// outlives individual requests; it parents every subscription.
func (m *Manager) Init(base context.Context) {
	if base != nil {
		m.base = base
	}
	m.provider.OnPrincipalChange(m.handleChange)
}

func (m *Manager) handleChange(p identity.Principal, signedIn bool) {
	m.mu.Lock()
	m.principal = p
	m.signedIn = signedIn
	m.authSettled = true
	if !signedIn {
		m.profileSettled = false
	}
	m.mu.Unlock()

	if signedIn {
		m.logger.Info("principal signed in", "uid", p.UID, "email", p.Email)
		m.registry.StartAll(m.base)
		go m.bootstrapProfile(p)
	} else {
		m.logger.Info("principal signed out")
		m.registry.StopAll()
		m.registry.ClearAll()
	}

	m.bus.Publish(m.base, events.NewBaseEvent(events.TypeSessionChanged, map[string]interface{}{
		"signed_in": signedIn,
		"email":     p.Email,
	}))
}

// bootstrapProfile guarantees a signed-in principal ends up with an Account
// document. It waits for the account mirror's first snapshot, then creates a
// profile only if none matches the principal's email and no sign-up guard is
// active. The very first account ever created becomes an active admin;
// every later one starts as an inactive viewer.
func (m *Manager) bootstrapProfile(p identity.Principal) {
	ctx, cancel := context.WithTimeout(m.base, m.cfg.ProfileWaitTimeout)
	defer cancel()

	if err := m.accounts.WaitReady(ctx); err != nil {
		m.logger.Warn("account mirror not ready in time, skipping profile bootstrap", "uid", p.UID, "error", err)
		return
	}
	m.settleProfile(p)

	if m.suppress.Load() {
		m.logger.Debug("profile bootstrap suppressed inside sign-up guard window", "uid", p.UID)
		return
	}
	for _, a := range m.accounts.Items() {
		if a.EmailEquals(p.Email) {
			return
		}
	}
	m.createProfile(internal.ContextWithActor(ctx, p.Email), p)
}

func (m *Manager) settleProfile(p identity.Principal) {
	m.mu.Lock()
	if m.signedIn && m.principal.UID == p.UID {
		m.profileSettled = true
	}
	m.mu.Unlock()
}

// createProfile writes the Account document for a principal. The existence
// probe is bounded: one document suffices to prove the collection is not
// empty. A probe failure skips creation; the next sign-in retries.
func (m *Manager) createProfile(ctx context.Context, p identity.Principal) {
	docs, err := m.store.List(ctx, docstore.CollectionAccounts, 1)
	if err != nil {
		m.logger.Warn("account existence probe failed, skipping profile creation", "uid", p.UID, "error", err)
		return
	}

	role, active := datamodel.RoleViewer, false
	if len(docs) == 0 {
		role, active = datamodel.RoleAdmin, true
	}

	name := p.Name
	if name == "" {
		name = p.Email
		if at := strings.Index(name, "@"); at > 0 {
			name = name[:at]
		}
	}

	a := datamodel.Account{
		ID:     m.accounts.Mint(),
		Name:   name,
		Email:  p.Email,
		Role:   role,
		Active: active,
	}
	if err := m.store.Set(ctx, docstore.CollectionAccounts, strconv.FormatInt(a.ID, 10), a.Document()); err != nil {
		m.logger.Error("profile creation failed", "uid", p.UID, "error", err)
		return
	}

	m.logger.Info("profile account created", "account_id", a.ID, "role", a.Role, "active", a.Active)
	m.sink.Success(ctx, "account.bootstrap", "account "+a.Name+" provisioned with role "+string(a.Role))
}

// Login verifies credentials with the provider. Mirror startup and profile
// bootstrap run through the principal-change callback, not here.
func (m *Manager) Login(ctx context.Context, email, secret string) (identity.Principal, error) {
	p, err := m.provider.SignIn(ctx, email, secret)
	if err != nil {
		return identity.Principal{}, m.mapProviderError("login", err)
	}
	return p, nil
}

// SignUp registers the principal and explicitly creates its profile Account.
// The suppress flag is raised before any remote call so the ambient
// bootstrap cannot race the explicit creation, and is lowered only after the
// guard window has given the mirror time to deliver the new document.
func (m *Manager) SignUp(ctx context.Context, email, secret string, profile identity.ProfileFields) (identity.Principal, error) {
	m.suppress.Store(true)

	p, err := m.provider.SignUp(ctx, email, secret)
	if err != nil {
		m.suppress.Store(false)
		return identity.Principal{}, m.mapProviderError("sign-up", err)
	}

	if profile.Name != "" {
		if err := m.provider.UpdateProfile(ctx, p, profile); err != nil {
			m.logger.Warn("profile update after sign-up failed", "uid", p.UID, "error", err)
		} else {
			p.Name = profile.Name
		}
	}
	if !p.Verified {
		if err := m.provider.SendVerification(ctx, p); err != nil {
			m.logger.Warn("verification send after sign-up failed", "uid", p.UID, "error", err)
		}
	}

	m.createProfile(internal.ContextWithActor(ctx, p.Email), p)
	time.AfterFunc(m.cfg.BootstrapGuardWindow, func() { m.suppress.Store(false) })
	return p, nil
}

// Logout signs the principal out; teardown runs through the callback.
func (m *Manager) Logout(ctx context.Context) error {
	if err := m.provider.SignOut(ctx); err != nil {
		return m.mapProviderError("logout", err)
	}
	return nil
}

// ResendVerification asks the provider to send a fresh verification message
// to the signed-in principal.
func (m *Manager) ResendVerification(ctx context.Context) error {
	p, ok := m.Principal()
	if !ok {
		return internal.NewUnauthorizedError("no signed-in principal", internal.ErrCodeInvalidCredentials)
	}
	if err := m.provider.SendVerification(ctx, p); err != nil {
		return m.mapProviderError("resend-verification", err)
	}
	return nil
}

// Principal returns the signed-in principal, false when signed out.
func (m *Manager) Principal() (identity.Principal, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.principal, m.signedIn
}

func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := State{
		SignedIn:       m.signedIn,
		AuthSettled:    m.authSettled,
		ProfileSettled: m.profileSettled,
	}
	if m.signedIn {
		s.Email = m.principal.Email
	}
	return s
}

// AuthSettled reports whether the provider has delivered its initial state.
func (m *Manager) AuthSettled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.authSettled
}

// ProfileSettled reports whether the account mirror has delivered its first
// snapshot for the current principal.
func (m *Manager) ProfileSettled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.profileSettled
}

// mapProviderError converts provider reason codes into the user-facing
// error taxonomy. Unknown codes are logged and surfaced generically.
func (m *Manager) mapProviderError(op string, err error) error {
	switch identity.CodeOf(err) {
	case identity.CodeInvalidCredentials:
		return internal.ErrInvalidCredentials
	case identity.CodeRateLimited:
		return internal.ErrRateLimited
	case identity.CodeNetworkFailure:
		return internal.ErrNetworkFailure.WithCause(err)
	case identity.CodeEmailInUse:
		return internal.ErrEmailInUse
	case identity.CodeWeakSecret:
		return internal.ErrWeakSecret
	case identity.CodeInvalidEmail:
		return internal.ErrInvalidEmail
	case identity.CodeOperationDisabled:
		return internal.ErrOperationDisabled
	default:
		m.logger.Error("provider returned unknown reason code", "operation", op, "error", err)
		return internal.ErrAuthUnknown.WithCause(err)
	}
}
