package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"system", "auth"}, splitList("system, auth"))
	assert.Equal(t, []string{"admin"}, splitList(" ,admin,, "))
	assert.Nil(t, splitList(""))
}
