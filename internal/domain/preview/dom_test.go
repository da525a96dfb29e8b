package preview

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const queryFixture = `<html><body>
<div id="app" class="card">
  <ul><li class="item first">a</li><li class="item">b</li></ul>
  <input type="text" name="q"><input type="checkbox" name="c">
</div>
<p id="odd.id">p</p>
</body></html>`

func TestDOMQuery(t *testing.T) {
	dom, err := ParseDocument(queryFixture)
	require.NoError(t, err)

	tests := []struct {
		selector string
		want     []string
	}{
		{"li", []string{"a", "b"}},
		{"ul li", []string{"a", "b"}},
		{"li.item.first", []string{"a"}},
		{"#app > ul > li:last-child", []string{"b"}},
		{"input[type=text]", []string{""}},
		{`input[name="c"]`, []string{""}},
		{"li, p", []string{"a", "b", "p"}},
		{"section", nil},
	}
	for _, tt := range tests {
		t.Run(tt.selector, func(t *testing.T) {
			found, err := dom.Query(tt.selector)
			require.NoError(t, err)

			var texts []string
			for _, elem := range found {
				texts = append(texts, elem.TextContent)
			}
			assert.Equal(t, tt.want, texts)
		})
	}
}

func TestDOMQueryInvalidSelector(t *testing.T) {
	dom, err := ParseDocument(queryFixture)
	require.NoError(t, err)

	for _, selector := range []string{"", "li[", "##app"} {
		_, err := dom.Query(selector)
		assert.ErrorIs(t, err, ErrInvalidSelector, selector)
	}
}

func TestDOMQueryIn(t *testing.T) {
	dom, err := ParseDocument(queryFixture)
	require.NoError(t, err)

	app := dom.ByID("app")
	require.NotNil(t, app)

	found, err := dom.QueryIn(app, "input")
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "checkbox", found[1].GetAttribute("type"))

	found, err = dom.QueryIn(app, "p")
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestDOMByID(t *testing.T) {
	dom, err := ParseDocument(queryFixture)
	require.NoError(t, err)

	elem := dom.ByID("odd.id")
	require.NotNil(t, elem)
	assert.Equal(t, "P", elem.TagName)
	assert.Nil(t, dom.ByID("missing"))
}
