//go:build !windows

package main

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTerminal_NotATty(t *testing.T) {
	assert := assert.New(t)

	file, err := os.CreateTemp(t.TempDir(), "term")
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()

	pt := &Terminal{}
	assert.Error(pt.Open(file, file))

	// Unknown sizes always fit.
	assert.True(pt.Fits(1000, 1000))
}

func TestTerminal_Close(t *testing.T) {
	assert := assert.New(t)

	pt := &Terminal{}
	assert.NoError(pt.Close())
}
