package build

import (
	"io"
	"testing"

	"github.com/btcsuite/btclog/v2"
	"github.com/stretchr/testify/require"
)

// newTestManager returns a sublogger manager with the given subsystems
// already registered.
func newTestManager(t *testing.T, subsystems ...string) *SubLoggerManager {
	t.Helper()

	handler := btclog.NewDefaultHandler(io.Discard)
	manager := NewSubLoggerManager(handler)

	for _, subsystem := range subsystems {
		logger := manager.GenSubLogger(subsystem)
		require.NotNil(t, logger)
	}

	return manager
}

// TestGenSubLogger asserts that loggers are registered once per subsystem and
// returned again on subsequent calls.
func TestGenSubLogger(t *testing.T) {
	t.Parallel()

	manager := newTestManager(t)

	first := manager.GenSubLogger("KTRE")
	second := manager.GenSubLogger("KTRE")
	require.Equal(t, first, second)

	require.Len(t, manager.SubLoggers(), 1)
}

// TestSupportedSubsystems asserts that registered subsystems are reported in
// sorted order.
func TestSupportedSubsystems(t *testing.T) {
	t.Parallel()

	manager := newTestManager(t, "KRNG", "BTKT", "KTRE")

	require.Equal(
		t, []string{"BTKT", "KRNG", "KTRE"},
		manager.SupportedSubsystems(),
	)
}

// TestParseAndSetDebugLevels asserts the accepted and rejected forms of the
// debug level expression.
func TestParseAndSetDebugLevels(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name  string
		level string
		err   string
	}{
		{
			name:  "global level",
			level: "debug",
		},
		{
			name:  "global level with subsystem override",
			level: "info,KRNG=trace",
		},
		{
			name:  "subsystem overrides only",
			level: "KRNG=trace,KTRE=warn",
		},
		{
			name:  "invalid global level",
			level: "chatty",
			err:   "is invalid",
		},
		{
			name:  "invalid subsystem level",
			level: "info,KRNG=chatty",
			err:   "is invalid",
		},
		{
			name:  "unknown subsystem",
			level: "info,PEER=debug",
			err:   "supported subsystems",
		},
		{
			name:  "malformed pair",
			level: "info,KRNG=trace=debug",
			err:   "invalid format",
		},
	}

	for _, tc := range testCases {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			manager := newTestManager(t, "KRNG", "KTRE")

			err := ParseAndSetDebugLevels(tc.level, manager)
			if tc.err != "" {
				require.ErrorContains(t, err, tc.err)
				return
			}
			require.NoError(t, err)
		})
	}
}

// TestValidLogLevel asserts the accepted level names.
func TestValidLogLevel(t *testing.T) {
	t.Parallel()

	for _, level := range []string{
		"trace", "debug", "info", "warn", "error", "critical", "off",
	} {
		require.True(t, validLogLevel(level), level)
	}

	for _, level := range []string{"", "INFO", "warning", "fatal"} {
		require.False(t, validLogLevel(level), level)
	}
}

// TestVersion asserts the reported semantic version string.
func TestVersion(t *testing.T) {
	t.Parallel()

	require.Equal(t, "0.1.0-beta", Version())
	require.Equal(t, "alpha-3", normalizeVerString("alpha?!-3"))
}
