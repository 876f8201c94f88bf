package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewFetchCommand(t *testing.T) {
	cmd := NewFetchCommand()

	assert.Equal(t, "fetch <url>", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	assert.NotEmpty(t, cmd.Example, "Example should not be empty")

	flags := []string{"method", "data", "jsonp", "after", "wait"}
	for _, flag := range flags {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestNewWSCommand(t *testing.T) {
	cmd := NewWSCommand()

	assert.Equal(t, "ws <url>", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	assert.NotNil(t, cmd.Flags().Lookup("history"))
	assert.NotNil(t, cmd.Flags().Lookup("wait"))
}

func TestNewServeCommand(t *testing.T) {
	cmd := NewServeCommand()

	assert.Equal(t, "serve", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	assert.NotEmpty(t, cmd.Example, "Example should not be empty")

	// host, port and title are read through the config layer
	flags := []string{"data", "watch", "source", "live", "host", "port", "title"}
	for _, flag := range flags {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestNewBackendsCommand(t *testing.T) {
	cmd := NewBackendsCommand()

	assert.Equal(t, "backends", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
}
