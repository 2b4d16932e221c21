package classify

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/spinplate/internal/model"
)

func TestLoadRuleSet_EmptyPath(t *testing.T) {
	rs, err := LoadRuleSet("")
	require.NoError(t, err)
	assert.Equal(t, DefaultRuleSet(), rs)
}

func TestLoadRuleSet_Overlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	content := `
classify:
  dine_in_phrases:
    - kitchen
  premium_cuisines:
    - french
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	rs, err := LoadRuleSet(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"kitchen"}, rs.DineInPhrases)
	assert.Equal(t, []string{"french"}, rs.PremiumCuisines)
	assert.Equal(t, DefaultRuleSet().BarWords, rs.BarWords)

	c := New(rs)
	assert.Equal(t, model.DiningDineIn, c.DiningType(Tags{"name": "Hearth Kitchen"}))
	assert.Equal(t, model.PricePricey, c.PriceTier(Tags{"cuisine": "french"}))
	assert.Equal(t, model.PriceModerate, c.PriceTier(Tags{"cuisine": "steak"}))
}

func TestLoadRuleSet_MissingFile(t *testing.T) {
	_, err := LoadRuleSet(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadRuleSet_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("classify: [unclosed"), 0o644))

	_, err := LoadRuleSet(path)
	assert.Error(t, err)
}

func TestLoadRuleSet_FoldsKeywords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	content := "classify:\n" +
		"  bar_phrases:\n    - \"  Taproom \"\n    - \"\"\n" +
		"  takeout_chains:\n    - \"Joe’s Burgers\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	rs, err := LoadRuleSet(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"taproom"}, rs.BarPhrases)
	assert.Equal(t, []string{"joe's burgers"}, rs.TakeoutChains)

	c := New(rs)
	assert.Equal(t, model.DiningBar, c.DiningType(Tags{"name": "The TAPROOM"}))
	assert.Equal(t, model.DiningTakeout, c.DiningType(Tags{"name": "Joe's Burgers Downtown"}))
}
