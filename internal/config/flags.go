package config

import (
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const EnvPrefix = "ETHSIGNER"

const (
	FlagConfigFile        = "config-file"
	FlagChainID           = "chain-id"
	FlagDownstreamURL     = "downstream-http-url"
	FlagDownstreamTimeout = "downstream-http-request-timeout"
	FlagHTTPListenHost    = "http-listen-host"
	FlagHTTPListenPort    = "http-listen-port"
	FlagHTTPMaxBodyBytes  = "http-max-request-body-bytes"
	FlagHTTPCORSOrigins   = "http-cors-origins"
	FlagMetricsEnabled    = "metrics-enabled"
	FlagMetricsHost       = "metrics-host"
	FlagMetricsPort       = "metrics-port"
	FlagLogging           = "logging"
	FlagLoggingPretty     = "logging-pretty"
	FlagLoggingCaller     = "logging-caller"
	FlagDataPath          = "data-path"
	FlagSigningWorkers    = "signing-workers"
)

// signer back-end flags, registered on their sub-commands
const (
	FlagKeyFile              = "key-file"
	FlagPasswordFile         = "password-file"
	FlagVaultHost            = "host"
	FlagVaultPort            = "port"
	FlagVaultTLSEnabled      = "tls-enabled"
	FlagVaultCACertFile      = "tls-ca-cert-file"
	FlagVaultAuthFile        = "auth-file"
	FlagVaultSigningKeyPath  = "signing-key-path"
	FlagVaultTimeout         = "timeout"
	FlagMnemonicKeystoreFile = "keystore-file"
	FlagPassphraseFile       = "passphrase-file"
	FlagDerivationPath       = "derivation-path"
	FlagGCPSecretVersion     = "secret-version"
	FlagGCPCredentialsFile   = "credentials-file"
	FlagGCPEndpoint          = "endpoint"
)

const (
	defaultDownstreamURL     = "http://127.0.0.1:8545"
	defaultDownstreamTimeout = 5 * time.Second
	defaultHTTPListenHost    = "127.0.0.1"
	defaultHTTPListenPort    = 8545
	defaultHTTPMaxBodyBytes  = 1 << 20
	defaultMetricsHost       = "127.0.0.1"
	defaultMetricsPort       = 9546
	defaultVaultHost         = "localhost"
	defaultVaultPort         = 8200
	defaultVaultKeyPath      = "/v1/secret/data/ethsignerSigningKey"
	defaultVaultTimeout      = 10 * time.Second
	defaultDerivationPath    = "m/44'/60'/0'/0/0"
)

// NewViper returns a viper instance carrying defaults and reading
// ETHSIGNER_* environment variables (dashes become underscores).
func NewViper() *viper.Viper {
	v := viper.New()

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	v.SetDefault(FlagDownstreamURL, defaultDownstreamURL)
	v.SetDefault(FlagDownstreamTimeout, defaultDownstreamTimeout)
	v.SetDefault(FlagHTTPListenHost, defaultHTTPListenHost)
	v.SetDefault(FlagHTTPListenPort, defaultHTTPListenPort)
	v.SetDefault(FlagHTTPMaxBodyBytes, defaultHTTPMaxBodyBytes)
	v.SetDefault(FlagHTTPCORSOrigins, []string{})
	v.SetDefault(FlagMetricsHost, defaultMetricsHost)
	v.SetDefault(FlagMetricsPort, defaultMetricsPort)
	v.SetDefault(FlagLogging, "info")
	v.SetDefault(FlagSigningWorkers, defaultSigningWorkers())
	v.SetDefault(FlagVaultHost, defaultVaultHost)
	v.SetDefault(FlagVaultPort, defaultVaultPort)
	v.SetDefault(FlagVaultSigningKeyPath, defaultVaultKeyPath)
	v.SetDefault(FlagVaultTimeout, defaultVaultTimeout)
	v.SetDefault(FlagDerivationPath, defaultDerivationPath)

	return v
}

// AddServerFlags registers the flags shared by all signer sub-commands.
func AddServerFlags(flags *pflag.FlagSet) {
	flags.String(FlagConfigFile, "", "TOML file to read configuration from")
	flags.Int64(FlagChainID, 0, "Chain id used for EIP-155 replay protection (required)")
	flags.String(FlagDownstreamURL, defaultDownstreamURL, "URL of the downstream Ethereum node")
	flags.Duration(FlagDownstreamTimeout, defaultDownstreamTimeout, "Timeout for requests to the downstream node")
	flags.String(FlagHTTPListenHost, defaultHTTPListenHost, "Host to listen on for JSON-RPC requests")
	flags.Int(FlagHTTPListenPort, defaultHTTPListenPort, "Port to listen on for JSON-RPC requests")
	flags.Int64(FlagHTTPMaxBodyBytes, defaultHTTPMaxBodyBytes, "Maximum accepted request body size")
	flags.StringSlice(FlagHTTPCORSOrigins, nil, "Comma separated origins allowed to access the JSON-RPC endpoint")
	flags.Bool(FlagMetricsEnabled, false, "Expose prometheus metrics")
	flags.String(FlagMetricsHost, defaultMetricsHost, "Host the metrics endpoint listens on")
	flags.Int(FlagMetricsPort, defaultMetricsPort, "Port the metrics endpoint listens on")
	flags.String(FlagLogging, "info", "Log level (trace, debug, info, warn, error)")
	flags.Bool(FlagLoggingPretty, false, "Human readable console logging")
	flags.Bool(FlagLoggingCaller, false, "Include caller file and line in log entries")
	flags.String(FlagDataPath, "", "Directory for runtime state; disabled when empty")
	flags.Int(FlagSigningWorkers, defaultSigningWorkers(), "Maximum number of concurrent signing operations")
}

func AddFileSignerFlags(cmd *cobra.Command) {
	cmd.Flags().String(FlagKeyFile, "", "Path to the V3 keystore file holding the signing key")
	cmd.Flags().String(FlagPasswordFile, "", "File containing the keystore password; prompts when empty")
}

func AddHashicorpSignerFlags(cmd *cobra.Command) {
	cmd.Flags().String(FlagVaultHost, defaultVaultHost, "Vault server host")
	cmd.Flags().Int(FlagVaultPort, defaultVaultPort, "Vault server port")
	cmd.Flags().Bool(FlagVaultTLSEnabled, true, "Connect to vault over https")
	cmd.Flags().String(FlagVaultCACertFile, "", "PEM file of the CA that signed the vault server certificate")
	cmd.Flags().String(FlagVaultAuthFile, "", "File containing the vault token")
	cmd.Flags().String(FlagVaultSigningKeyPath, defaultVaultKeyPath, "Vault KV v2 path of the signing key secret")
	cmd.Flags().Duration(FlagVaultTimeout, defaultVaultTimeout, "Timeout for the vault request")
}

func AddHDSignerFlags(cmd *cobra.Command) {
	cmd.Flags().String(FlagMnemonicKeystoreFile, "", "V3 keystore file holding an encrypted BIP39 mnemonic")
	cmd.Flags().String(FlagPasswordFile, "", "File containing the keystore password; prompts when empty")
	cmd.Flags().String(FlagPassphraseFile, "", "File containing the optional BIP39 passphrase")
	cmd.Flags().String(FlagDerivationPath, defaultDerivationPath, "BIP44 derivation path of the signing key")
}

func AddGCPSignerFlags(cmd *cobra.Command) {
	cmd.Flags().String(FlagGCPSecretVersion, "", "Secret version resource name, e.g. projects/p/secrets/s/versions/latest")
	cmd.Flags().String(FlagGCPCredentialsFile, "", "Service account credentials file; uses application default credentials when empty")
	cmd.Flags().String(FlagGCPEndpoint, "", "Override the Secret Manager API endpoint")
}

// BindFlags binds cmd's local and inherited flags into v and reads the
// optional config file.
func BindFlags(cmd *cobra.Command, v *viper.Viper) error {
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	if err := v.BindPFlags(cmd.InheritedFlags()); err != nil {
		return err
	}

	if file := v.GetString(FlagConfigFile); file != "" {
		v.SetConfigFile(file)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return err
		}
	}

	return nil
}

// LoadFromCommand resolves the server config for cmd from its flags, the
// environment and the optional config file.
func LoadFromCommand(cmd *cobra.Command) (Server, error) {
	v := NewViper()
	if err := BindFlags(cmd, v); err != nil {
		return Server{}, err
	}

	return LoadServerConfig(v)
}
