package config

import (
	"net"
	"runtime"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

var (
	ErrChainIDRequired       = errors.New("chain-id must be a positive integer")
	ErrDownstreamURLRequired = errors.New("downstream-http-url is required")
	ErrInvalidTimeout        = errors.New("downstream-http-request-timeout must be positive")
	ErrInvalidPort           = errors.New("listen port must be between 0 and 65535")
	ErrInvalidMaxBodySize    = errors.New("http-max-request-body-bytes must be positive")
	ErrInvalidSigningWorkers = errors.New("signing-workers must be positive")
)

type Downstream struct {
	URL     string
	Timeout time.Duration
}

type HTTP struct {
	ListenHost   string
	ListenPort   int
	MaxBodyBytes int64
	CORSOrigins  []string
}

func (h HTTP) ListenAddress() string {
	return net.JoinHostPort(h.ListenHost, strconv.Itoa(h.ListenPort))
}

type Metrics struct {
	Enabled    bool
	ListenHost string
	ListenPort int
}

func (m Metrics) ListenAddress() string {
	return net.JoinHostPort(m.ListenHost, strconv.Itoa(m.ListenPort))
}

type Logger struct {
	Level              zerolog.Level
	PrettyPrintConsole bool
	Caller             bool
}

type FileSigner struct {
	KeyFile      string
	PasswordFile string
}

type HashicorpSigner struct {
	Host           string
	Port           int
	TLSEnabled     bool
	AuthFile       string
	SigningKeyPath string
	Timeout        time.Duration
	CACertFile     string
}

type HDSigner struct {
	KeystoreFile   string
	PasswordFile   string
	PassphraseFile string
	DerivationPath string
}

type GCPSigner struct {
	SecretVersion   string
	CredentialsFile string
	Endpoint        string
}

type Signer struct {
	File      FileSigner
	Hashicorp HashicorpSigner
	HD        HDSigner
	GCP       GCPSigner
}

type Server struct {
	ChainID        int64
	Downstream     Downstream
	HTTP           HTTP
	Metrics        Metrics
	Logger         Logger
	DataPath       string
	SigningWorkers int
	Signer         Signer
}

// DefaultServiceConfigFromEnv returns the server config as parsed from
// defaults and ETHSIGNER_* environment variables, ignoring command line flags.
func DefaultServiceConfigFromEnv() Server {
	cfg, err := LoadServerConfig(NewViper())
	if err != nil {
		panic(err)
	}

	return cfg
}

// LoadServerConfig reads all known keys from v.
func LoadServerConfig(v *viper.Viper) (Server, error) {
	level, err := zerolog.ParseLevel(v.GetString(FlagLogging))
	if err != nil {
		return Server{}, errors.Wrapf(err, "invalid %s", FlagLogging)
	}

	return Server{
		ChainID: v.GetInt64(FlagChainID),
		Downstream: Downstream{
			URL:     v.GetString(FlagDownstreamURL),
			Timeout: v.GetDuration(FlagDownstreamTimeout),
		},
		HTTP: HTTP{
			ListenHost:   v.GetString(FlagHTTPListenHost),
			ListenPort:   v.GetInt(FlagHTTPListenPort),
			MaxBodyBytes: v.GetInt64(FlagHTTPMaxBodyBytes),
			CORSOrigins:  v.GetStringSlice(FlagHTTPCORSOrigins),
		},
		Metrics: Metrics{
			Enabled:    v.GetBool(FlagMetricsEnabled),
			ListenHost: v.GetString(FlagMetricsHost),
			ListenPort: v.GetInt(FlagMetricsPort),
		},
		Logger: Logger{
			Level:              level,
			PrettyPrintConsole: v.GetBool(FlagLoggingPretty),
			Caller:             v.GetBool(FlagLoggingCaller),
		},
		DataPath:       v.GetString(FlagDataPath),
		SigningWorkers: v.GetInt(FlagSigningWorkers),
		Signer: Signer{
			File: FileSigner{
				KeyFile:      v.GetString(FlagKeyFile),
				PasswordFile: v.GetString(FlagPasswordFile),
			},
			Hashicorp: HashicorpSigner{
				Host:           v.GetString(FlagVaultHost),
				Port:           v.GetInt(FlagVaultPort),
				TLSEnabled:     v.GetBool(FlagVaultTLSEnabled),
				AuthFile:       v.GetString(FlagVaultAuthFile),
				SigningKeyPath: v.GetString(FlagVaultSigningKeyPath),
				Timeout:        v.GetDuration(FlagVaultTimeout),
				CACertFile:     v.GetString(FlagVaultCACertFile),
			},
			HD: HDSigner{
				KeystoreFile:   v.GetString(FlagMnemonicKeystoreFile),
				PasswordFile:   v.GetString(FlagPasswordFile),
				PassphraseFile: v.GetString(FlagPassphraseFile),
				DerivationPath: v.GetString(FlagDerivationPath),
			},
			GCP: GCPSigner{
				SecretVersion:   v.GetString(FlagGCPSecretVersion),
				CredentialsFile: v.GetString(FlagGCPCredentialsFile),
				Endpoint:        v.GetString(FlagGCPEndpoint),
			},
		},
	}, nil
}

// Validate checks the settings shared by every signer back-end.
func (s Server) Validate() error {
	const maxPort = 65535

	switch {
	case s.ChainID <= 0:
		return ErrChainIDRequired
	case s.Downstream.URL == "":
		return ErrDownstreamURLRequired
	case s.Downstream.Timeout <= 0:
		return ErrInvalidTimeout
	case s.HTTP.ListenPort < 0 || s.HTTP.ListenPort > maxPort:
		return ErrInvalidPort
	case s.Metrics.Enabled && (s.Metrics.ListenPort < 0 || s.Metrics.ListenPort > maxPort):
		return ErrInvalidPort
	case s.HTTP.MaxBodyBytes <= 0:
		return ErrInvalidMaxBodySize
	case s.SigningWorkers <= 0:
		return ErrInvalidSigningWorkers
	}

	return nil
}

func defaultSigningWorkers() int {
	return runtime.NumCPU()
}
