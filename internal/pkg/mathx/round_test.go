package mathx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRound(t *testing.T) {
	assert.Equal(t, 0.9, Round(0.4+0.3+0.2, 3))
	assert.Equal(t, 3.14, Round(3.14159, 2))
	assert.Equal(t, 0.5, Round(0.5, 4))
	assert.Equal(t, 1.01, Round(1.005, 2))
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 10.0, Clamp(12.5, 0, 10))
	assert.Equal(t, 0.0, Clamp(-1, 0, 10))
	assert.Equal(t, 4.2, Clamp(4.2, 0, 10))
}

func TestSum(t *testing.T) {
	assert.Equal(t, 0.9, Sum(0.4, 0.3, 0.2))
	assert.Equal(t, 0.0, Sum())
}
