package searchindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildHan(t *testing.T) {
	idx := Build("风景照.jpg")
	assert.Contains(t, idx, "fengjingzhao")
	assert.Contains(t, idx, "fjz")
}

func TestBuildDiacritics(t *testing.T) {
	assert.Equal(t, "cafe", Build("Café.png"))
}

func TestBuildPlainASCIIIsEmpty(t *testing.T) {
	assert.Equal(t, "", Build("holiday.png"))
}

func TestFold(t *testing.T) {
	assert.Equal(t, "creme brulee", Fold("Crème Brûlée"))
}
