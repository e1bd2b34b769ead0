package stoplist

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestManagerBasic(t *testing.T) {
	mgr := NewManager([]string{"the", "a", "and"})

	assert.True(t, mgr.IsStop("the"))
	assert.False(t, mgr.IsStop("hello"))
}

func TestManagerNormalizesCase(t *testing.T) {
	mgr := NewManager([]string{"The", "  AND ", ""})

	assert.True(t, mgr.IsStop("the"))
	assert.True(t, mgr.IsStop("and"))
	assert.Equal(t, 2, mgr.Len())
}

func TestManagerAddRemove(t *testing.T) {
	mgr := NewManager([]string{"the"})

	mgr.Add("Test")
	assert.True(t, mgr.IsStop("test"))

	mgr.Remove("TEST")
	assert.False(t, mgr.IsStop("test"))
}

func TestManagerAllSorted(t *testing.T) {
	mgr := NewManager([]string{"the", "a", "and"})

	all := mgr.All()
	assert.Equal(t, []string{"a", "and", "the"}, all)
	assert.True(t, sort.StringsAreSorted(all))
}

func TestEmptyManager(t *testing.T) {
	mgr := NewManager(nil)

	assert.False(t, mgr.IsStop("anything"))
	assert.Empty(t, mgr.All())
}

func TestEnglishIsCopy(t *testing.T) {
	words := English()
	words[0] = "mutated"

	assert.Equal(t, "a", English()[0])
	assert.True(t, NewEnglish().IsStop("the"))
	assert.False(t, NewEnglish().IsStop("solar"))
}
