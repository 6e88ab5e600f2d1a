package llm_test

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"storysmith.app/refinery/common/llm"
)

var _ = Describe("New", func() {
	It("requires an API key", func() {
		_, err := llm.New(llm.Config{Provider: llm.ProviderOpenAI})
		Expect(err).To(HaveOccurred())
	})

	It("rejects unknown providers", func() {
		_, err := llm.New(llm.Config{Provider: "cohere", APIKey: "key"})
		Expect(err).To(MatchError(ContainSubstring("unsupported LLM provider")))
	})

	DescribeTable("selects the provider's default model",
		func(provider, want string) {
			client, err := llm.New(llm.Config{Provider: provider, APIKey: "key"})
			Expect(err).NotTo(HaveOccurred())
			Expect(client.Model()).To(Equal(want))
		},
		Entry("empty provider falls back to openai", "", "gpt-4o-mini"),
		Entry("openai", llm.ProviderOpenAI, "gpt-4o-mini"),
		Entry("anthropic", llm.ProviderAnthropic, "claude-sonnet-4-5-20250514"),
	)

	It("keeps an explicit model name", func() {
		client, err := llm.New(llm.Config{Provider: llm.ProviderOpenAI, APIKey: "key", Model: "gpt-4.1"})
		Expect(err).NotTo(HaveOccurred())
		Expect(client.Model()).To(Equal("gpt-4.1"))
	})
})

var _ = Describe("GenerateSchema", func() {
	type shape struct {
		Title string `json:"title"`
		Score int    `json:"score"`
	}

	It("produces a self-contained object schema", func() {
		raw, err := json.Marshal(llm.GenerateSchema[shape]())
		Expect(err).NotTo(HaveOccurred())

		var schema map[string]any
		Expect(json.Unmarshal(raw, &schema)).To(Succeed())
		Expect(schema["type"]).To(Equal("object"))
		Expect(schema["additionalProperties"]).To(Equal(false))
		Expect(schema).NotTo(HaveKey("$defs"))

		props, ok := schema["properties"].(map[string]any)
		Expect(ok).To(BeTrue())
		Expect(props).To(HaveKey("title"))
		Expect(props).To(HaveKey("score"))
	})
})

var _ = Describe("Temp", func() {
	It("returns a pointer to the given value", func() {
		Expect(*llm.Temp(0.2)).To(Equal(0.2))
	})
})
