package catalog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCatalogJSON = `{
  "items": {
    "onion": {"display_name": "Лук репчатый", "unit": "кг", "quotes": [{"price": 2800, "source": "Korzinka"}, {"price": 3100, "source": "Makro"}]},
    "milk": {"display_name": "Молоко", "unit": "л", "quotes": [{"price": 18500, "source": "Nestle Korzinka"}]},
    "cola": {"display_name": "Кока-кола 1.5л", "unit": "шт", "quotes": [{"price": 12000.9, "source": "Coca-Cola Havas"}]},
    "salt": {"display_name": "", "unit": "кг", "quotes": [{"source": "Bazaar"}]},
    "Potato": {"display_name": "Картофель", "unit": "кг", "quotes": [{"price": 4000, "source": "Chorsu"}, {"price": 5001, "source": "Chorsu"}]}
  },
  "synonyms": {
    "ru": {"лук": "onion", "картошка": "Potato", "призрак": "ghost", "кола": "cola"},
    "uz": {"piyoz": "onion", "sut": "milk", "kartoshka": "Potato"}
  }
}`

func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := Parse([]byte(testCatalogJSON))
	require.NoError(t, err)
	return c
}

func TestParse(t *testing.T) {
	c := testCatalog(t)

	require.Equal(t, 5, c.Len())
	ids := make([]string, 0, c.Len())
	for _, e := range c.Entries() {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []string{"onion", "milk", "cola", "salt", "Potato"}, ids)
	assert.Equal(t, 4, c.SynonymCount("ru"))
	assert.Equal(t, 3, c.SynonymCount("uz"))

	cola, ok := c.Get("cola")
	require.True(t, ok)
	require.NotNil(t, cola.Quotes[0].Price)
	assert.Equal(t, int64(12000), *cola.Quotes[0].Price)

	salt, _ := c.Get("salt")
	assert.Nil(t, salt.Quotes[0].Price)
}

func TestParseRejectsMalformed(t *testing.T) {
	_, err := Parse([]byte(`{"items": [1, 2]}`))
	assert.Error(t, err)

	_, err = Parse([]byte(`not json`))
	assert.Error(t, err)
}

func TestLoadOrEmpty(t *testing.T) {
	c := LoadOrEmpty(filepath.Join(t.TempDir(), "missing.json"))
	assert.Equal(t, 0, c.Len())
	_, ok := c.Resolve("лук", "ru")
	assert.False(t, ok)
}

func TestMarshalJSONKeepsOrder(t *testing.T) {
	c := testCatalog(t)

	data, err := json.Marshal(c)
	require.NoError(t, err)

	again, err := Parse(data)
	require.NoError(t, err)
	require.Equal(t, c.Len(), again.Len())
	for i, e := range c.Entries() {
		assert.Equal(t, e.ID, again.Entries()[i].ID)
		assert.Equal(t, e.DisplayName, again.Entries()[i].DisplayName)
	}
	assert.Equal(t, c.synonyms["ru"], again.synonyms["ru"])
}

func TestRegistryReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(testCatalogJSON), 0o644))

	r := NewRegistry(nil)
	assert.Equal(t, 0, r.Catalog().Len())

	require.NoError(t, r.Reload(path))
	assert.Equal(t, 5, r.Catalog().Len())

	require.NoError(t, os.WriteFile(path, []byte(`{broken`), 0o644))
	assert.Error(t, r.Reload(path))
	assert.Equal(t, 5, r.Catalog().Len(), "failed reload keeps previous catalog")
}
