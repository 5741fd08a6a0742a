package relay

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/astra/pkg/config"
)

var _ = Describe("Models", func() {
	It("resolves the built-in keys", func() {
		m := NewModels(nil, "")

		id, key := m.Resolve("astra-3.0-pro")
		Expect(id).To(Equal("@cf/meta/llama-3.1-70b-instruct-awq"))
		Expect(key).To(Equal("astra-3.0-pro"))
	})

	It("falls back to the default for empty and unknown keys", func() {
		m := NewModels(nil, "")

		for _, k := range []string{"", "gpt-9000"} {
			id, key := m.Resolve(k)
			Expect(id).To(Equal("@cf/meta/llama-3.1-8b-instruct-fp8"))
			Expect(key).To(Equal(DefaultModelKey))
		}
	})

	It("applies overrides and new keys", func() {
		m := NewModels(map[string]string{
			"astra-2.5":  "@cf/meta/llama-3.2-3b-instruct",
			"astra-mini": "@cf/meta/llama-3.2-1b-instruct",
			"ignored":    "",
		}, "astra-mini")

		id, key := m.Resolve("")
		Expect(id).To(Equal("@cf/meta/llama-3.2-1b-instruct"))
		Expect(key).To(Equal("astra-mini"))

		id, _ = m.Resolve("astra-2.5")
		Expect(id).To(Equal("@cf/meta/llama-3.2-3b-instruct"))

		Expect(m.Keys()).To(Equal([]string{"astra-2.5", "astra-3.0-pro", "astra-mini"}))
	})

	It("ignores a default key the table does not know", func() {
		m := NewModels(nil, "nope")

		_, key := m.Resolve("")
		Expect(key).To(Equal(DefaultModelKey))
	})

	It("replaces the whole table", func() {
		m := NewModels(map[string]string{"astra-mini": "@cf/tiny"}, "")
		m.Replace(nil, "astra-3.0-pro")

		Expect(m.Keys()).NotTo(ContainElement("astra-mini"))
		_, key := m.Resolve("astra-mini")
		Expect(key).To(Equal("astra-3.0-pro"))
	})

	It("matches mixed-case keys from the config file exactly", func() {
		dir := GinkgoT().TempDir()
		data := "[models]\n\"Astra-Fast\" = \"@cf/a\"\n\"astra-3.5\" = \"@cf/b\"\n"
		Expect(os.WriteFile(filepath.Join(dir, "config.toml"), []byte(data), 0o600)).To(Succeed())

		v, err := config.InitViper(dir)
		Expect(err).NotTo(HaveOccurred())
		cfg := config.FromViper(v)

		m := NewModels(cfg.Models, cfg.Relay.DefaultModel)

		id, key := m.Resolve("Astra-Fast")
		Expect(id).To(Equal("@cf/a"))
		Expect(key).To(Equal("Astra-Fast"))

		id, _ = m.Resolve("astra-3.5")
		Expect(id).To(Equal("@cf/b"))

		_, key = m.Resolve("astra-fast")
		Expect(key).To(Equal(DefaultModelKey))
	})
})
