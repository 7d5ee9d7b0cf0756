package buildinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetVersionPrefersInjectedValue(t *testing.T) {
	t.Cleanup(func() { Version = "" })

	Version = "v1.2.3"
	assert.Equal(t, "v1.2.3", GetVersion())
}

func TestGetVersionFallsBack(t *testing.T) {
	t.Cleanup(func() { Version = "" })

	Version = ""
	assert.NotEmpty(t, GetVersion())
}
