package local

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"github.com/staffsync/staff-management/internal/docstore"
	"github.com/staffsync/staff-management/internal/identity"
	"golang.org/x/crypto/bcrypt"
)

func TestLocalIdentity(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Local Identity Suite")
}

var _ = ginkgo.Describe("Provider", func() {
	var (
		store    *docstore.MemStore
		provider *Provider
		ctx      context.Context
	)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	newProvider := func(cfg Config) *Provider {
		cfg.TokenSecret = "test-secret"
		cfg.BCryptCost = bcrypt.MinCost
		return NewProvider(store, cfg, logger)
	}

	credentialsFor := func(email string) docstore.Document {
		docs, err := store.QueryEquals(ctx, docstore.CollectionAuthUsers, "email", email)
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(docs).To(gomega.HaveLen(1))
		return docs[0]
	}

	ginkgo.BeforeEach(func() {
		store = docstore.NewMemStore()
		ctx = context.Background()
		provider = newProvider(Config{MinSecretLength: 8})
	})

	ginkgo.Describe("SignUp", func() {
		ginkgo.Context("when the request is valid", func() {
			ginkgo.It("should store bcrypt credentials under the new uid", func() {
				p, err := provider.SignUp(ctx, "mara@example.com", "secretpw")
				gomega.Expect(err).ToNot(gomega.HaveOccurred())
				gomega.Expect(p.UID).ToNot(gomega.BeEmpty())
				gomega.Expect(p.Verified).To(gomega.BeFalse())

				doc := credentialsFor("mara@example.com")
				gomega.Expect(doc.Handle).To(gomega.Equal(p.UID))
				hash, _ := doc.Data["password_hash"].(string)
				gomega.Expect(bcrypt.CompareHashAndPassword([]byte(hash), []byte("secretpw"))).To(gomega.Succeed())
				gomega.Expect(doc.Data["verified"]).To(gomega.Equal(false))

				createdAt, _ := doc.Data["created_at"].(string)
				_, err = time.Parse(time.RFC3339, createdAt)
				gomega.Expect(err).ToNot(gomega.HaveOccurred())
			})

			ginkgo.It("should normalize the email address", func() {
				p, err := provider.SignUp(ctx, "  Mara@Example.COM ", "secretpw")
				gomega.Expect(err).ToNot(gomega.HaveOccurred())
				gomega.Expect(p.Email).To(gomega.Equal("mara@example.com"))
			})

			ginkgo.It("should mark the principal verified when auto-verify is on", func() {
				provider = newProvider(Config{MinSecretLength: 8, AutoVerify: true})

				p, err := provider.SignUp(ctx, "mara@example.com", "secretpw")
				gomega.Expect(err).ToNot(gomega.HaveOccurred())
				gomega.Expect(p.Verified).To(gomega.BeTrue())
				gomega.Expect(credentialsFor("mara@example.com").Data["verified"]).To(gomega.Equal(true))
			})
		})

		ginkgo.Context("when the request is invalid", func() {
			ginkgo.It("should reject a registered email, ignoring case", func() {
				_, err := provider.SignUp(ctx, "mara@example.com", "secretpw")
				gomega.Expect(err).ToNot(gomega.HaveOccurred())

				_, err = provider.SignUp(ctx, "MARA@example.com", "otherpass")
				gomega.Expect(identity.CodeOf(err)).To(gomega.Equal(identity.CodeEmailInUse))
			})

			ginkgo.It("should reject a malformed email", func() {
				_, err := provider.SignUp(ctx, "nope", "secretpw")
				gomega.Expect(identity.CodeOf(err)).To(gomega.Equal(identity.CodeInvalidEmail))

				_, err = provider.SignUp(ctx, "a@b", "secretpw")
				gomega.Expect(identity.CodeOf(err)).To(gomega.Equal(identity.CodeInvalidEmail))
			})

			ginkgo.It("should reject a secret below the minimum length", func() {
				_, err := provider.SignUp(ctx, "mara@example.com", "short")
				gomega.Expect(identity.CodeOf(err)).To(gomega.Equal(identity.CodeWeakSecret))
			})

			ginkgo.It("should refuse entirely when sign-up is disabled", func() {
				provider = newProvider(Config{MinSecretLength: 8, SignUpDisabled: true})

				_, err := provider.SignUp(ctx, "mara@example.com", "secretpw")
				gomega.Expect(identity.CodeOf(err)).To(gomega.Equal(identity.CodeOperationDisabled))
			})
		})
	})

	ginkgo.Describe("SignIn", func() {
		ginkgo.BeforeEach(func() {
			_, err := provider.SignUp(ctx, "mara@example.com", "secretpw")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(provider.SignOut(ctx)).To(gomega.Succeed())
		})

		ginkgo.It("should verify credentials and normalize the email", func() {
			p, err := provider.SignIn(ctx, "  MARA@EXAMPLE.COM ", "secretpw")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(p.Email).To(gomega.Equal("mara@example.com"))
		})

		ginkgo.It("should reject a wrong password", func() {
			_, err := provider.SignIn(ctx, "mara@example.com", "wrongpass")
			gomega.Expect(identity.CodeOf(err)).To(gomega.Equal(identity.CodeInvalidCredentials))
		})

		ginkgo.It("should reject an unknown email", func() {
			_, err := provider.SignIn(ctx, "ghost@example.com", "secretpw")
			gomega.Expect(identity.CodeOf(err)).To(gomega.Equal(identity.CodeInvalidCredentials))
		})

		ginkgo.Context("when attempts pile up", func() {
			ginkgo.BeforeEach(func() {
				provider = newProvider(Config{MinSecretLength: 8, MaxAttempts: 2, AttemptWindow: time.Minute})
				_, err := provider.SignUp(ctx, "jonas@example.com", "secretpw")
				gomega.Expect(err).ToNot(gomega.HaveOccurred())
				gomega.Expect(provider.SignOut(ctx)).To(gomega.Succeed())
			})

			ginkgo.It("should rate limit after the configured failures", func() {
				for i := 0; i < 2; i++ {
					_, err := provider.SignIn(ctx, "jonas@example.com", "wrongpass")
					gomega.Expect(identity.CodeOf(err)).To(gomega.Equal(identity.CodeInvalidCredentials))
				}

				_, err := provider.SignIn(ctx, "jonas@example.com", "secretpw")
				gomega.Expect(identity.CodeOf(err)).To(gomega.Equal(identity.CodeRateLimited))
			})

			ginkgo.It("should reset the window on a successful sign-in", func() {
				_, err := provider.SignIn(ctx, "jonas@example.com", "wrongpass")
				gomega.Expect(err).To(gomega.HaveOccurred())

				_, err = provider.SignIn(ctx, "jonas@example.com", "secretpw")
				gomega.Expect(err).ToNot(gomega.HaveOccurred())

				_, err = provider.SignIn(ctx, "jonas@example.com", "wrongpass")
				gomega.Expect(identity.CodeOf(err)).To(gomega.Equal(identity.CodeInvalidCredentials))

				_, err = provider.SignIn(ctx, "jonas@example.com", "secretpw")
				gomega.Expect(err).ToNot(gomega.HaveOccurred())
			})
		})
	})

	ginkgo.Describe("OnPrincipalChange", func() {
		ginkgo.It("should fire immediately and on every transition", func() {
			var (
				mu    sync.Mutex
				fired []bool
				last  identity.Principal
			)
			provider.OnPrincipalChange(func(p identity.Principal, signedIn bool) {
				mu.Lock()
				defer mu.Unlock()
				fired = append(fired, signedIn)
				last = p
			})

			mu.Lock()
			gomega.Expect(fired).To(gomega.Equal([]bool{false}))
			mu.Unlock()

			_, err := provider.SignUp(ctx, "mara@example.com", "secretpw")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(provider.SignOut(ctx)).To(gomega.Succeed())

			mu.Lock()
			gomega.Expect(fired).To(gomega.Equal([]bool{false, true, false}))
			gomega.Expect(last.Email).To(gomega.BeEmpty())
			mu.Unlock()
		})
	})

	ginkgo.Describe("SendVerification", func() {
		ginkgo.It("should record the verification send on the credentials", func() {
			p, err := provider.SignUp(ctx, "mara@example.com", "secretpw")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			gomega.Expect(provider.SendVerification(ctx, p)).To(gomega.Succeed())

			doc := credentialsFor("mara@example.com")
			gomega.Expect(doc.Data["verification_sent"]).To(gomega.Equal(true))
			gomega.Expect(doc.Data["verified"]).To(gomega.Equal(false))
		})

		ginkgo.It("should verify directly when auto-verify is on", func() {
			provider = newProvider(Config{MinSecretLength: 8, AutoVerify: true})
			p, err := provider.SignUp(ctx, "mara@example.com", "secretpw")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			gomega.Expect(provider.SendVerification(ctx, p)).To(gomega.Succeed())
			gomega.Expect(credentialsFor("mara@example.com").Data["verified"]).To(gomega.Equal(true))
		})
	})

	ginkgo.Describe("UpdateProfile", func() {
		ginkgo.It("should persist the name and update the live principal", func() {
			p, err := provider.SignUp(ctx, "mara@example.com", "secretpw")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			gomega.Expect(provider.UpdateProfile(ctx, p, identity.ProfileFields{Name: "Mara"})).To(gomega.Succeed())

			gomega.Expect(credentialsFor("mara@example.com").Data["name"]).To(gomega.Equal("Mara"))

			var current identity.Principal
			provider.OnPrincipalChange(func(p identity.Principal, signedIn bool) {
				current = p
			})
			gomega.Expect(current.Name).To(gomega.Equal("Mara"))
		})
	})
})

var _ = ginkgo.Describe("TokenGenerator", func() {
	ginkgo.It("should round-trip a principal through a token", func() {
		gen := NewTokenGenerator("test-secret", time.Hour)
		p := identity.Principal{UID: "u-1", Email: "mara@example.com", Name: "Mara", Verified: true}

		token, expiresAt, err := gen.Issue(p)
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(token).ToNot(gomega.BeEmpty())
		gomega.Expect(expiresAt).To(gomega.BeTemporally("~", time.Now().Add(time.Hour), time.Minute))

		decoded, err := gen.Validate(token)
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(decoded).To(gomega.Equal(p))
	})

	ginkgo.It("should reject an expired token", func() {
		gen := NewTokenGenerator("test-secret", -time.Minute)
		token, _, err := gen.Issue(identity.Principal{UID: "u-1", Email: "mara@example.com"})
		gomega.Expect(err).ToNot(gomega.HaveOccurred())

		_, err = gen.Validate(token)
		gomega.Expect(err).To(gomega.Equal(ErrTokenExpired))
	})

	ginkgo.It("should reject garbage and foreign signatures", func() {
		gen := NewTokenGenerator("test-secret", time.Hour)

		_, err := gen.Validate("not-a-token")
		gomega.Expect(err).To(gomega.Equal(ErrInvalidToken))

		foreign := NewTokenGenerator("other-secret", time.Hour)
		token, _, err := foreign.Issue(identity.Principal{UID: "u-1", Email: "mara@example.com"})
		gomega.Expect(err).ToNot(gomega.HaveOccurred())

		_, err = gen.Validate(token)
		gomega.Expect(err).To(gomega.Equal(ErrInvalidToken))
	})
})
