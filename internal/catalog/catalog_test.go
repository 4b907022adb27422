package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSearchEmptyReturnsEverything(t *testing.T) {
	assert.Equal(t, Default, Search(""))
}

func TestSearchFiltersCaseInsensitively(t *testing.T) {
	results := Search("VALHEIM")
	assert.Len(t, results, 1)
	assert.Equal(t, "valheim", results[0].ID)
}

func TestSearchNoMatches(t *testing.T) {
	assert.Empty(t, Search("nonexistent-game"))
}
