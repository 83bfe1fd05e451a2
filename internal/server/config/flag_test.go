package config

import (
	"os"
	"testing"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{name: "all flags", args: []string{"cmd",
			"-a", "127.0.0.1:9090", "-d", "db", "-s", "secret", "-m", "2MB", "-l", "0.75",
			"-u", "users", "-y", "typesdir", "-r", "airports.bin", "-f", "fb.txt",
			"-k", "cert.pem", "-x", "key.pem", "-v", "debug", "-t", "30",
		}, expectPanic: false,
			expected: &Config{
				EndpointAddr:               "127.0.0.1:9090",
				DatabaseDSN:                "db",
				SecretKey:                  "secret",
				MaxMessageSize:             2 * datasize.MB,
				ConsensusLimit:             0.75,
				UserDir:                    "users",
				TypesDir:                   "typesdir",
				AirportsFile:               "airports.bin",
				FeedbackFile:               "fb.txt",
				TLSCertFile:                "cert.pem",
				TLSKeyFile:                 "key.pem",
				LogLevel:                   "debug",
				EmailTokenValidityDuration: 30 * time.Minute,
			}},
		{name: "unknown flags are ignored", args: []string{"cmd", "-c", "conf.json", "-z", "1", "-a", ":1"},
			expected: &Config{EndpointAddr: ":1"}},
		{name: "bad size", args: []string{"cmd", "-m", "lots"}, expectPanic: true},
		{name: "bad limit", args: []string{"cmd", "-l", "half"}, expectPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args

			config := &Config{}

			if !tt.expectPanic {
				require.NotPanics(t, func() { parseFlags(config) })
				assert.Empty(t, cmp.Diff(config, tt.expected))
			} else {
				require.Panics(t, func() { parseFlags(config) })
			}
		})
	}
}
