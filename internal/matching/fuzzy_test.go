package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPartialRatio_ExactSubstring(t *testing.T) {
	assert.Equal(t, 100, PartialRatio("parede", "parede de alvenaria"))
	assert.Equal(t, 100, PartialRatio("laje", "laje"))
}

func TestPartialRatio_Typo(t *testing.T) {
	// One inserted letter in a nine-letter word still scores high.
	score := PartialRatio("alvenaria", "estrutura de alvenarria aparente")
	assert.GreaterOrEqual(t, score, 80)
	assert.Less(t, score, 100)
}

func TestPartialRatio_Unrelated(t *testing.T) {
	assert.Less(t, PartialRatio("telhado", "céu azul e grama"), 50)
}

func TestPartialRatio_Empty(t *testing.T) {
	assert.Equal(t, 0, PartialRatio("", "parede"))
	assert.Equal(t, 0, PartialRatio("parede", ""))
}

func TestPartialRatio_MultiWordNeedle(t *testing.T) {
	assert.Equal(t, 100, PartialRatio("parede norte", "vista da parede norte do edifício"))

	score := PartialRatio("parede norte", "vista da parede nortte do edifício")
	assert.GreaterOrEqual(t, score, 80)
}

func TestPartialRatio_AccentVariants(t *testing.T) {
	score := PartialRatio("fundação", "fundacao em execução")
	assert.GreaterOrEqual(t, score, 70)
}
