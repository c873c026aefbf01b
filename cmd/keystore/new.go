package keystore

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github/chapool/go-ethsigner/internal/wallet/keystore"
	"github/chapool/go-ethsigner/internal/wallet/seed"
	"github/chapool/go-ethsigner/internal/wallet/signer"
)

const (
	dirFlag          = "dir"
	passwordFileFlag = "password-file"
	lightKDFFlag     = "light-kdf"
)

func newNew() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Generates a new key and writes it as a V3 keystore file",
		Long: `Generates a new secp256k1 key, encrypts it with scrypt and AES-128-CTR
and writes it to --dir. The file can be used with file-based-signer.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir, _ := cmd.Flags().GetString(dirFlag)
			passwordFile, _ := cmd.Flags().GetString(passwordFileFlag)
			light, _ := cmd.Flags().GetBool(lightKDFFlag)

			return runNew(cmd, dir, passwordFile, light)
		},
	}

	cmd.Flags().String(dirFlag, ".", "Directory to write the keystore file to")
	cmd.Flags().String(passwordFileFlag, "", "File containing the keystore password; prompts when empty")
	cmd.Flags().Bool(lightKDFFlag, false, "Use cheaper scrypt parameters (testing only)")

	return cmd
}

func runNew(cmd *cobra.Command, dir string, passwordFile string, light bool) error {
	password, err := signer.LoadPassword(passwordFile)
	if err != nil {
		return err
	}
	defer seed.Wipe(password)

	if len(password) == 0 {
		return errors.New("refusing to encrypt with an empty password")
	}

	params := keystore.DefaultScryptParams()
	if light {
		params = keystore.LightScryptParams()
	}

	path, address, err := keystore.NewKeyFile(dir, password, params, time.Now())
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Address: %s\nKeystore: %s\n", address.Hex(), path)

	return nil
}
