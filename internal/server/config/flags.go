package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/flightkeeper/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   bind address (e.g., ":1337")
//	-d string   PostgreSQL DSN
//	-s string   token HMAC secret key
//	-m size     max message size (e.g., "10MB")
//	-l float    consensus limit
//	-u string   user file directory
//	-y string   aircraft types directory
//	-r string   airport database file
//	-f string   feedback file
//	-k string   TLS certificate file
//	-x string   TLS key file
//	-v string   log level
//	-t int      email token validity, minutes
//
// Notes:
//   - The function first filters os.Args to only the flags it recognizes using
//     flagx.FilterArgs, avoiding collisions with the -c config flag.
//   - The duration flag is accepted as an integer in minutes.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-m", "-l", "-u", "-y", "-r", "-f", "-k", "-x", "-v", "-t"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddr, "a", config.EndpointAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.TextVar(&config.MaxMessageSize, "m", config.MaxMessageSize, "max message size")
	fs.Float64Var(&config.ConsensusLimit, "l", config.ConsensusLimit, "aircraft consensus limit")
	fs.StringVar(&config.UserDir, "u", config.UserDir, "user file directory")
	fs.StringVar(&config.TypesDir, "y", config.TypesDir, "aircraft types directory")
	fs.StringVar(&config.AirportsFile, "r", config.AirportsFile, "airport database file")
	fs.StringVar(&config.FeedbackFile, "f", config.FeedbackFile, "feedback file")
	fs.StringVar(&config.TLSCertFile, "k", config.TLSCertFile, "TLS certificate file")
	fs.StringVar(&config.TLSKeyFile, "x", config.TLSKeyFile, "TLS key file")
	fs.StringVar(&config.LogLevel, "v", config.LogLevel, "log level")

	emailTokenValidityDuration := fs.Int("t", int(config.EmailTokenValidityDuration.Minutes()), "email_token_validity_duration (in minutes)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.EmailTokenValidityDuration = time.Duration(*emailTokenValidityDuration) * time.Minute
}
