package config

import (
	"encoding/json"
	"os"

	"github.com/c2h5oh/datasize"
	"github.com/dmitrijs2005/flightkeeper/internal/flagx"
	"github.com/dmitrijs2005/flightkeeper/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON unmarshalling.
// Durations use timex.Duration, so both "24h" and integer nanoseconds are
// accepted; MaxMessageSize takes strings like "10MB".
//
// This struct is an intermediate DTO used only for reading JSON configuration
// files. Fields left out of the file keep the value they already had.
type JsonConfig struct {
	EndpointAddr                string            `json:"endpoint_addr"`
	TLSCertFile                 string            `json:"tls_cert_file"`
	TLSKeyFile                  string            `json:"tls_key_file"`
	MaxMessageSize              datasize.ByteSize `json:"max_message_size"`
	ConsensusLimit              float64           `json:"consensus_limit"`
	UserDir                     string            `json:"user_dir"`
	TypesDir                    string            `json:"types_dir"`
	AirportsFile                string            `json:"airports_file"`
	FeedbackFile                string            `json:"feedback_file"`
	DatabaseDSN                 string            `json:"database_dsn"`
	SecretKey                   string            `json:"secret_key"`
	EmailTokenValidityDuration  timex.Duration    `json:"email_token_validity_duration"`
	EmailRecordValidityDuration timex.Duration    `json:"email_record_validity_duration"`
	SMTPHost                    string            `json:"smtp_host"`
	SMTPPort                    int               `json:"smtp_port"`
	SMTPUser                    string            `json:"smtp_user"`
	SMTPPassword                string            `json:"smtp_password"`
	EmailFrom                   string            `json:"email_from"`
	AdminEmail                  string            `json:"admin_email"`
	S3RootUser                  string            `json:"s3_root_user"`
	S3RootPassword              string            `json:"s3_root_password"`
	S3Bucket                    string            `json:"s3_bucket"`
	S3Region                    string            `json:"s3_region"`
	S3BaseEndpoint              string            `json:"s3_base_endpoint"`
	LogLevel                    string            `json:"log_level"`
}

// parseJson loads configuration values from the JSON file named by the -c or
// -config flag into config. Without the flag nothing is loaded.
//
// If the file cannot be read or contains invalid JSON, the function panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.ConfigPath(os.Args[1:])

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	set(&config.EndpointAddr, c.EndpointAddr)
	set(&config.TLSCertFile, c.TLSCertFile)
	set(&config.TLSKeyFile, c.TLSKeyFile)
	set(&config.MaxMessageSize, c.MaxMessageSize)
	set(&config.ConsensusLimit, c.ConsensusLimit)
	set(&config.UserDir, c.UserDir)
	set(&config.TypesDir, c.TypesDir)
	set(&config.AirportsFile, c.AirportsFile)
	set(&config.FeedbackFile, c.FeedbackFile)
	set(&config.DatabaseDSN, c.DatabaseDSN)
	set(&config.SecretKey, c.SecretKey)
	set(&config.EmailTokenValidityDuration, c.EmailTokenValidityDuration.Duration)
	set(&config.EmailRecordValidityDuration, c.EmailRecordValidityDuration.Duration)
	set(&config.SMTPHost, c.SMTPHost)
	set(&config.SMTPPort, c.SMTPPort)
	set(&config.SMTPUser, c.SMTPUser)
	set(&config.SMTPPassword, c.SMTPPassword)
	set(&config.EmailFrom, c.EmailFrom)
	set(&config.AdminEmail, c.AdminEmail)
	set(&config.S3RootUser, c.S3RootUser)
	set(&config.S3RootPassword, c.S3RootPassword)
	set(&config.S3Bucket, c.S3Bucket)
	set(&config.S3Region, c.S3Region)
	set(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	set(&config.LogLevel, c.LogLevel)
}

func set[T comparable](dst *T, v T) {
	var zero T
	if v != zero {
		*dst = v
	}
}
