package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"navcheck/internal/domain"
)

func TestVisibilityScript(t *testing.T) {
	t.Run("text expectation quotes the fragment", func(t *testing.T) {
		script, err := visibilityScript(domain.ContentExpectation{Kind: domain.ContentText, Value: `Say "hi"`})
		require.NoError(t, err)
		assert.Contains(t, script, `const raw = norm("Say \"hi\"");`)
		assert.Contains(t, script, "const exact = false;")
		assert.Contains(t, script, "norm(root.innerText).toLowerCase().includes(needle)")
		assert.NotContains(t, script, "createTreeWalker")
	})

	t.Run("quoted text expectation matches whole elements", func(t *testing.T) {
		script, err := visibilityScript(domain.ContentExpectation{Kind: domain.ContentText, Value: "Log out", Exact: true})
		require.NoError(t, err)
		assert.Contains(t, script, "const exact = true;")
		assert.Contains(t, script, "visible(el) && norm(el.innerText) === needle")
		assert.Contains(t, script, "function visible(el)")
	})

	t.Run("selector expectation uses querySelectorAll", func(t *testing.T) {
		script, err := visibilityScript(domain.ContentExpectation{Kind: domain.ContentSelector, Value: "#logo img"})
		require.NoError(t, err)
		assert.Contains(t, script, `document.querySelectorAll("#logo img")`)
	})

	t.Run("unset expectation", func(t *testing.T) {
		_, err := visibilityScript(domain.ContentExpectation{})
		assert.Error(t, err)
	})
}
