package rest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/staffsync/staff-management/internal/docstore"
)

func TestRest(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Rest Transport Suite")
}

var _ = Describe("OpenAPI document", func() {
	var doc *openapi3.T

	BeforeEach(func() {
		loader := openapi3.NewLoader()
		var err error
		doc, err = loader.LoadFromFile("../../../api/openapi.yml")
		Expect(err).NotTo(HaveOccurred())
		Expect(doc.Validate(loader.Context)).To(Succeed())
	})

	It("should carry the service identity", func() {
		Expect(doc.Info.Title).To(Equal("Staff Management API"))
		Expect(doc.Info.Version).To(Equal("1.0.0"))
		Expect(doc.Servers).To(HaveLen(1))
		Expect(doc.Servers[0].URL).To(Equal("/api/v1"))
	})

	It("should describe the whole action surface", func() {
		for _, path := range []string{
			"/ping", "/health",
			"/auth/login", "/auth/signup", "/auth/state", "/auth/logout", "/auth/resend-verification",
			"/accounts", "/accounts/me", "/accounts/{id}",
			"/employees", "/employees/{id}",
			"/teams", "/teams/{id}",
			"/trainings", "/trainings/{id}",
			"/planning", "/planning/{employeeID}/{date}",
			"/bonuses",
			"/settings",
			"/audit", "/notifications", "/notifications/{id}",
		} {
			Expect(doc.Paths.Find(path)).NotTo(BeNil(), "missing path %s", path)
		}
	})

	It("should default every operation to bearer auth", func() {
		Expect(doc.Security).To(HaveLen(1))
		Expect(doc.Security[0]).To(HaveKey("bearerAuth"))

		// Writes inherit the document-level requirement.
		employees := doc.Paths.Find("/employees")
		Expect(employees).NotTo(BeNil())
		Expect(employees.Post).NotTo(BeNil())
		Expect(employees.Post.Security).To(BeNil())
	})

	It("should opt the public endpoints out of auth", func() {
		for _, path := range []string{"/ping", "/auth/login", "/auth/signup"} {
			item := doc.Paths.Find(path)
			Expect(item).NotTo(BeNil())
			op := item.Post
			if op == nil {
				op = item.Get
			}
			Expect(op.Security).NotTo(BeNil(), "expected explicit opt-out on %s", path)
			Expect(*op.Security).To(BeEmpty())
		}
	})
})

var _ = Describe("HealthHandler", func() {
	var (
		store   *docstore.MemStore
		handler *HealthHandler
	)

	BeforeEach(func() {
		store = docstore.NewMemStore()
		handler = NewHealthHandler(nil, store)
	})

	Describe("ping", func() {
		It("should report the process as up", func() {
			rec := httptest.NewRecorder()
			handler.pingHandler(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

			Expect(rec.Code).To(Equal(http.StatusOK))
			var body map[string]string
			Expect(json.NewDecoder(rec.Body).Decode(&body)).To(Succeed())
			Expect(body["status"]).To(Equal("OK"))
		})
	})

	Describe("health check", func() {
		It("should report healthy when the store answers", func() {
			rec := httptest.NewRecorder()
			handler.healthCheckHandler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			Expect(rec.Code).To(Equal(http.StatusOK))
			var body HealthResponse
			Expect(json.NewDecoder(rec.Body).Decode(&body)).To(Succeed())
			Expect(body.Status).To(Equal(HealthHealthy))
			Expect(body.Components).To(HaveKey("docstore"))
			Expect(body.Components).NotTo(HaveKey("postgres"))
		})

		It("should report unhealthy when the store fails", func() {
			store.InjectError("list", docstore.ErrUnavailable)

			rec := httptest.NewRecorder()
			handler.healthCheckHandler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			Expect(rec.Code).To(Equal(http.StatusServiceUnavailable))
			var body HealthResponse
			Expect(json.NewDecoder(rec.Body).Decode(&body)).To(Succeed())
			Expect(body.Status).To(Equal(HealthUnhealthy))
		})
	})
})
