package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfig_Parse(t *testing.T) {
	data := []byte(`
Title: "cylinder coupling"
Dimension: 3
Tolerance: 1.0e-8
StoreMissedPoints: true
NumRanks: 4
MaxIterations: 50
ConvergenceTol: 1.0e-6
`)
	c := Default()
	err := c.Parse(data)
	assert.NoError(t, err)
	assert.Equal(t, "cylinder coupling", c.Title)
	assert.Equal(t, 3, c.Dimension)
	assert.Equal(t, 1e-8, c.Tolerance)
	assert.True(t, c.StoreMissedPoints)
	assert.Equal(t, 4, c.NumRanks)
}

func TestConfig_Validate(t *testing.T) {
	c := Default()
	assert.NoError(t, c.Validate())

	c.Dimension = 4
	assert.Error(t, c.Validate())

	c = Default()
	c.Tolerance = 0
	assert.Error(t, c.Validate())

	c = Default()
	c.NumRanks = 0
	assert.Error(t, c.Validate())
}

func TestConfig_LoadDefaults(t *testing.T) {
	c, err := Load("")
	assert.NoError(t, err)
	assert.Equal(t, Default(), c)
}

func TestConfig_DefaultPath(t *testing.T) {
	p, err := DefaultPath()
	assert.NoError(t, err)
	assert.Contains(t, p, ".xfer")
}
