package sandbox

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestOutputLog(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	out := newOutputLog(zap.New(core))

	_, err := io.WriteString(out, "added 120 packages\nnpm warn deprecated glob@7\n")
	require.NoError(t, err)
	// A line split across writes is logged once it completes.
	_, err = io.WriteString(out, "Error: Cannot find")
	require.NoError(t, err)
	assert.Equal(t, 1, logs.Len())

	_, err = io.WriteString(out, " module 'vite'\nbuild success\nERROR upper case is not a marker\n")
	require.NoError(t, err)

	messages := make([]string, 0, logs.Len())
	for _, entry := range logs.All() {
		messages = append(messages, entry.Message)
	}
	assert.Equal(t, []string{
		"npm warn deprecated glob@7",
		"Error: Cannot find module 'vite'",
		"build success",
	}, messages)

	assert.Equal(t,
		"added 120 packages\nnpm warn deprecated glob@7\nError: Cannot find module 'vite'\nbuild success\nERROR upper case is not a marker\n",
		out.String())
}

func TestOutputLog_FlushesPartialLine(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	out := newOutputLog(zap.New(core))

	_, err := io.WriteString(out, "compiled with warnings")
	require.NoError(t, err)
	assert.Equal(t, 0, logs.Len())

	assert.Equal(t, "compiled with warnings", out.String())
	assert.Equal(t, 1, logs.Len())
}
