package telegram

import (
	"testing"

	"github.com/DevTeady/EmiliaHikari/core/telegram/commands"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tele "gopkg.in/telebot.v4"
)

func noop(tele.Context) error { return nil }

func TestRegistryAliases(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterCommand("/resetwarn", commands.Command{
		Handler:     noop,
		Description: "reset",
		Aliases:     []string{"resetwarns"},
	}))

	for _, name := range []string{"/resetwarn", "resetwarn", "/resetwarns", "resetwarns"} {
		key, _, ok := reg.LookupCommand(name)
		require.True(t, ok, name)
		assert.Equal(t, "/resetwarn", key)
	}
	_, _, ok := reg.LookupCommand("/warn")
	assert.False(t, ok)
}

func TestRegistryRejectsCollisions(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterCommand("/nowarn", commands.Command{
		Handler:     noop,
		Description: "stop",
		Aliases:     []string{"stopwarn"},
	}))

	assert.Error(t, reg.RegisterCommand("/stopwarn", commands.Command{Handler: noop, Description: "x"}))
	assert.Error(t, reg.RegisterCommand("/other", commands.Command{Handler: noop, Description: "x", Aliases: []string{"nowarn"}}))
	assert.Error(t, reg.RegisterCommand("warn", commands.Command{Handler: noop, Description: "x"}))
	assert.Error(t, reg.RegisterCommand("/empty", commands.Command{Handler: noop}))

	// a rejected command leaves no partial aliases behind
	_, _, ok := reg.LookupCommand("/other")
	assert.False(t, ok)
	assert.Len(t, reg.Commands(), 1)
}

func TestRegistryListCommands(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterCommand("/warns", commands.Command{Handler: noop, Description: "show"}))
	require.NoError(t, reg.RegisterCommand("/addwarn", commands.Command{Handler: noop, Description: "add"}))
	require.NoError(t, reg.RegisterCommand("/warnstats", commands.Command{Handler: noop, Description: "stats", AdminOnly: true}))

	visible := reg.ListCommands(true)
	require.Len(t, visible, 2)
	assert.Equal(t, "addwarn", visible[0].Text)
	assert.Equal(t, "warns", visible[1].Text)
	assert.Len(t, reg.ListCommands(false), 3)
}

func TestRegistryCallbacks(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterCallback("rm_warn", noop))
	assert.Error(t, reg.RegisterCallback("rm_warn", noop))
	assert.Error(t, reg.RegisterCallback("", noop))

	_, ok := reg.GetCallback("rm_warn")
	assert.True(t, ok)
	assert.Equal(t, []string{"rm_warn"}, reg.ListCallbacks())
	assert.NotNil(t, reg.CallbackNotFound())
}
