package util

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewID(t *testing.T) {
	id := NewID("ata")
	assert.True(t, strings.HasPrefix(id, "ata_"))
	assert.Len(t, id, len("ata_")+32)
	assert.NotEqual(t, id, NewID("ata"))
	assert.Len(t, NewID(""), 32)
}
