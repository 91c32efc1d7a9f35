package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
	"go.viam.com/test"
)

func TestNew(t *testing.T) {

	tests := []struct {
		mode  string
		debug bool
	}{
		{"release", false},
		{"debug", true},
		{"", true},
	}

	for _, tc := range tests {
		log, err := New(tc.mode)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, log.Core().Enabled(zapcore.DebugLevel), test.ShouldEqual, tc.debug)
		test.That(t, log.Core().Enabled(zapcore.InfoLevel), test.ShouldBeTrue)
		Sync(log)
	}

	// nil logger is ignored
	Sync(nil)
}
