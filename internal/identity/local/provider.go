// Package local implements identity.Provider for development and test
// deployments: credentials live in the document store's auth_users
// collection as bcrypt hashes, sessions are HS256 JWTs, and verification
// mail is recorded as a flag instead of being delivered.
package local

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/staffsync/staff-management/internal/docstore"
	"github.com/staffsync/staff-management/internal/identity"
	"golang.org/x/crypto/bcrypt"
)

// Config carries the knobs the provider needs; cmd builds it from the
// security section of the application config.
type Config struct {
	TokenSecret     string
	TokenTTL        time.Duration
	BCryptCost      int
	MinSecretLength int
	SignUpDisabled  bool
	AutoVerify      bool
	MaxAttempts     int
	AttemptWindow   time.Duration
}

// Provider is the local identity provider. It tracks at most one signed-in
// principal per process, matching the single-client session model the core
// is built around.
type Provider struct {
	store  docstore.Store
	tokens *TokenGenerator
	limit  *attemptLimiter
	cfg    Config
	logger *slog.Logger

	mu        sync.Mutex
	current   identity.Principal
	signedIn  bool
	callbacks []identity.ChangeFunc
}

func NewProvider(store docstore.Store, cfg Config, logger *slog.Logger) *Provider {
	if cfg.BCryptCost == 0 {
		cfg.BCryptCost = bcrypt.DefaultCost
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.AttemptWindow == 0 {
		cfg.AttemptWindow = time.Minute
	}
	return &Provider{
		store:  store,
		tokens: NewTokenGenerator(cfg.TokenSecret, cfg.TokenTTL),
		limit:  newAttemptLimiter(cfg.MaxAttempts, cfg.AttemptWindow),
		cfg:    cfg,
		logger: logger,
	}
}

func (p *Provider) SignIn(ctx context.Context, email, secret string) (identity.Principal, error) {
	email = normalizeEmail(email)
	if !p.limit.Allow(email) {
		p.logger.Warn("sign-in rate limited", "email", email)
		return identity.Principal{}, identity.NewError(identity.CodeRateLimited, nil)
	}

	doc, err := p.findByEmail(ctx, email)
	if err != nil {
		return identity.Principal{}, err
	}
	if doc == nil {
		p.limit.Record(email)
		return identity.Principal{}, identity.NewError(identity.CodeInvalidCredentials, nil)
	}

	hash, _ := doc.Data["password_hash"].(string)
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)); err != nil {
		p.limit.Record(email)
		return identity.Principal{}, identity.NewError(identity.CodeInvalidCredentials, nil)
	}
	p.limit.Reset(email)

	principal := principalFromDoc(*doc)
	p.setCurrent(principal, true)
	p.logger.Info("principal signed in", "uid", principal.UID, "email", principal.Email)
	return principal, nil
}

func (p *Provider) SignUp(ctx context.Context, email, secret string) (identity.Principal, error) {
	if p.cfg.SignUpDisabled {
		return identity.Principal{}, identity.NewError(identity.CodeOperationDisabled, nil)
	}
	email = normalizeEmail(email)
	if !validEmail(email) {
		return identity.Principal{}, identity.NewError(identity.CodeInvalidEmail, nil)
	}
	if len(secret) < p.cfg.MinSecretLength {
		return identity.Principal{}, identity.NewError(identity.CodeWeakSecret, nil)
	}

	existing, err := p.findByEmail(ctx, email)
	if err != nil {
		return identity.Principal{}, err
	}
	if existing != nil {
		return identity.Principal{}, identity.NewError(identity.CodeEmailInUse, nil)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), p.cfg.BCryptCost)
	if err != nil {
		return identity.Principal{}, identity.NewError(identity.CodeUnknown, err)
	}

	uid := uuid.NewString()
	doc := map[string]any{
		"uid":           uid,
		"email":         email,
		"password_hash": string(hash),
		"name":          "",
		"verified":      p.cfg.AutoVerify,
		"created_at":    time.Now().UTC().Format(time.RFC3339),
	}
	if err := p.store.Set(ctx, docstore.CollectionAuthUsers, uid, doc); err != nil {
		p.logger.Error("sign-up credential write failed", "error", err)
		return identity.Principal{}, identity.NewError(identity.CodeNetworkFailure, err)
	}

	principal := identity.Principal{UID: uid, Email: email, Verified: p.cfg.AutoVerify}
	p.setCurrent(principal, true)
	p.logger.Info("principal signed up", "uid", uid, "email", email)
	return principal, nil
}

func (p *Provider) SignOut(ctx context.Context) error {
	p.setCurrent(identity.Principal{}, false)
	p.logger.Info("principal signed out")
	return nil
}

// OnPrincipalChange registers fn and fires it immediately with the current
// state so consumers can settle their initial view.
func (p *Provider) OnPrincipalChange(fn identity.ChangeFunc) {
	p.mu.Lock()
	p.callbacks = append(p.callbacks, fn)
	current, signedIn := p.current, p.signedIn
	p.mu.Unlock()
	fn(current, signedIn)
}

func (p *Provider) SendVerification(ctx context.Context, principal identity.Principal) error {
	update := map[string]any{"verification_sent": true}
	if p.cfg.AutoVerify {
		update["verified"] = true
	}
	if err := p.store.Update(ctx, docstore.CollectionAuthUsers, principal.UID, update); err != nil {
		p.logger.Error("verification flag update failed", "uid", principal.UID, "error", err)
		return identity.NewError(identity.CodeNetworkFailure, err)
	}
	p.logger.Info("verification mail recorded", "uid", principal.UID, "email", principal.Email)
	return nil
}

func (p *Provider) UpdateProfile(ctx context.Context, principal identity.Principal, fields identity.ProfileFields) error {
	err := p.store.Update(ctx, docstore.CollectionAuthUsers, principal.UID, map[string]any{"name": fields.Name})
	if err != nil {
		return identity.NewError(identity.CodeNetworkFailure, err)
	}
	p.mu.Lock()
	if p.signedIn && p.current.UID == principal.UID {
		p.current.Name = fields.Name
	}
	p.mu.Unlock()
	return nil
}

// IssueToken mints a bearer token for the principal. The REST layer hands
// it to clients after login/signup.
func (p *Provider) IssueToken(principal identity.Principal) (string, time.Time, error) {
	return p.tokens.Issue(principal)
}

// ValidateToken checks a bearer token and reconstructs its principal.
func (p *Provider) ValidateToken(token string) (identity.Principal, error) {
	return p.tokens.Validate(token)
}

func (p *Provider) setCurrent(principal identity.Principal, signedIn bool) {
	p.mu.Lock()
	p.current = principal
	p.signedIn = signedIn
	callbacks := make([]identity.ChangeFunc, len(p.callbacks))
	copy(callbacks, p.callbacks)
	p.mu.Unlock()
	for _, fn := range callbacks {
		fn(principal, signedIn)
	}
}

func (p *Provider) findByEmail(ctx context.Context, email string) (*docstore.Document, error) {
	docs, err := p.store.QueryEquals(ctx, docstore.CollectionAuthUsers, "email", email)
	if err != nil {
		p.logger.Error("credential lookup failed", "error", err)
		return nil, identity.NewError(identity.CodeNetworkFailure, err)
	}
	if len(docs) == 0 {
		return nil, nil
	}
	return &docs[0], nil
}

func principalFromDoc(doc docstore.Document) identity.Principal {
	uid, _ := doc.Data["uid"].(string)
	if uid == "" {
		uid = doc.Handle
	}
	email, _ := doc.Data["email"].(string)
	name, _ := doc.Data["name"].(string)
	verified, _ := doc.Data["verified"].(bool)
	return identity.Principal{UID: uid, Email: email, Name: name, Verified: verified}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	at := strings.IndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return false
	}
	return strings.Contains(email[at+1:], ".")
}
