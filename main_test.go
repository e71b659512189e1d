package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewParserRegistersCommands(t *testing.T) {
	parser, err := newParser()
	require.NoError(t, err)

	for _, name := range []string{"send", "receive"} {
		command := parser.Find(name)
		require.NotNil(t, command, name)
		for _, option := range []string{"window-size", "packet-size", "retransmit-timeout", "channel-timeout", "inbound-port", "loss", "seed"} {
			assert.NotNil(t, command.FindOptionByLongName(option), "%s --%s", name, option)
		}
	}
	assert.NotNil(t, parser.FindOptionByLongName("verbose"))
}
