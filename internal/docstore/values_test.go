package docstore

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ValueEquals", func() {
	It("should match numbers numerically regardless of width", func() {
		Expect(ValueEquals(int64(42), int(42))).To(BeTrue())
		Expect(ValueEquals(float64(42), int64(42))).To(BeTrue())
		Expect(ValueEquals(int32(42), float32(42))).To(BeTrue())
		Expect(ValueEquals(json.Number("42"), int64(42))).To(BeTrue())
		Expect(ValueEquals(int64(42), int64(43))).To(BeFalse())
	})

	It("should match strings only against strings", func() {
		Expect(ValueEquals("42", "42")).To(BeTrue())
		Expect(ValueEquals("42", int64(42))).To(BeFalse())
		Expect(ValueEquals(int64(42), "42")).To(BeFalse())
	})

	It("should not treat a nil stored value as equal to anything", func() {
		Expect(ValueEquals(nil, nil)).To(BeFalse())
		Expect(ValueEquals(nil, "x")).To(BeFalse())
	})

	It("should fall back to deep equality for structured values", func() {
		Expect(ValueEquals([]any{"a", "b"}, []any{"a", "b"})).To(BeTrue())
		Expect(ValueEquals([]any{"a"}, []any{"b"})).To(BeFalse())
		Expect(ValueEquals(true, true)).To(BeTrue())
	})
})
