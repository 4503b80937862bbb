package logger

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewSlogLogger(t *testing.T) {
	tCases := []struct {
		name      string
		env       SlogEnvironment
		wantJSON  bool
		wantDebug bool
	}{
		{name: "local", env: EnvLocal, wantJSON: false, wantDebug: true},
		{name: "dev", env: EnvDev, wantJSON: true, wantDebug: true},
		{name: "prod", env: EnvProd, wantJSON: true, wantDebug: false},
		{name: "unknown_falls_back_to_prod", env: "staging", wantJSON: true, wantDebug: false},
	}

	for _, tCase := range tCases {
		t.Run(tCase.name, func(t *testing.T) {
			var buf bytes.Buffer

			log := NewSlogLogger(&buf, tCase.env)
			log.Debug("debug line")
			log.Info("info line", Err(errors.New("boom")))

			out := buf.String()
			require.Contains(t, out, "info line")
			require.Contains(t, out, "boom")
			require.Equal(t, tCase.wantDebug, bytes.Contains(buf.Bytes(), []byte("debug line")))
			require.Equal(t, tCase.wantJSON, bytes.HasPrefix(buf.Bytes(), []byte("{")))
		})
	}
}

func TestErrNil(t *testing.T) {
	attr := Err(nil)
	require.Equal(t, "error", attr.Key)
	require.Equal(t, "", attr.Value.String())
}
