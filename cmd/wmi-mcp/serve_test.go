package main

import (
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hasaranga/wmi-mcp/internal/wmi"
	"github.com/hasaranga/wmi-mcp/internal/wmi/wmitest"
)

func TestReleaseExecutor_LogsCloseError(t *testing.T) {
	log, hook := test.NewNullLogger()
	locator := wmitest.New()
	locator.CloseErr = errors.New("release failed")

	releaseExecutor(wmi.NewExecutor(locator, log), log)

	assert.True(t, locator.Closed)
	require.Len(t, hook.Entries, 1)
	entry := hook.LastEntry()
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "Failed to release WMI connection", entry.Message)
	assert.EqualError(t, entry.Data[logrus.ErrorKey].(error), "release failed")
}

func TestReleaseExecutor_QuietOnSuccess(t *testing.T) {
	log, hook := test.NewNullLogger()
	locator := wmitest.New()

	releaseExecutor(wmi.NewExecutor(locator, log), log)

	assert.True(t, locator.Closed)
	assert.Empty(t, hook.Entries)
}
