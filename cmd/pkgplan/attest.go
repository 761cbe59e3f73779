package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tsukumogami/pkgplan/internal/attest"
	"github.com/tsukumogami/pkgplan/internal/errmsg"
	"github.com/tsukumogami/pkgplan/internal/fingerprint"
)

var (
	signKeyID      string
	signKeyFile    string
	signPassphrase string
	verifyKeyFile  string
)

var fingerprintSignCmd = &cobra.Command{
	Use:   "sign <fingerprint-file> <envelope-file>",
	Short: "Sign a persisted fingerprint with an armored OpenPGP private key",
	Long: `Wraps a fingerprint's persisted JSON form in a DSSE envelope, signs it with
the private key named by --key, and writes the envelope as JSON to
<envelope-file>.`,
	Args: cobra.ExactArgs(2),
	Run:  runFingerprintSign,
}

var fingerprintVerifyCmd = &cobra.Command{
	Use:   "verify <envelope-file>",
	Short: "Verify a signed fingerprint envelope against an armored OpenPGP public key",
	Args:  cobra.ExactArgs(1),
	Run:   runFingerprintVerify,
}

func init() {
	fingerprintSignCmd.Flags().StringVar(&signKeyID, "keyid", "", "identifier to record alongside the signature (required)")
	fingerprintSignCmd.Flags().StringVar(&signKeyFile, "key", "", "path to an armored OpenPGP private key (required)")
	fingerprintSignCmd.Flags().StringVar(&signPassphrase, "passphrase", "", "passphrase protecting the private key, if any")
	fingerprintVerifyCmd.Flags().StringVar(&verifyKeyFile, "key", "", "path to an armored OpenPGP public key (required)")

	fingerprintCmd.AddCommand(fingerprintSignCmd)
	fingerprintCmd.AddCommand(fingerprintVerifyCmd)
}

func runFingerprintSign(cmd *cobra.Command, args []string) {
	fpPath, envelopePath := args[0], args[1]
	if signKeyID == "" || signKeyFile == "" {
		fmt.Fprintln(os.Stderr, "error: --keyid and --key are required")
		exitWithCode(ExitUsage)
	}

	fp := fingerprint.LoadFromFile(fpPath)
	if fp == nil {
		fmt.Fprintf(os.Stderr, "error: could not load fingerprint from %s\n", fpPath)
		exitWithCode(ExitGeneral)
	}

	armoredKey, err := os.ReadFile(signKeyFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		exitWithCode(ExitGeneral)
	}

	env, err := attest.Sign(fp, signKeyID, string(armoredKey), signPassphrase)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", errmsg.Format(err, nil))
		exitWithCode(ExitGeneral)
	}

	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		exitWithCode(ExitGeneral)
	}
	if err := os.WriteFile(envelopePath, data, 0o644); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		exitWithCode(ExitGeneral)
	}
}

func runFingerprintVerify(cmd *cobra.Command, args []string) {
	envelopePath := args[0]
	if verifyKeyFile == "" {
		fmt.Fprintln(os.Stderr, "error: --key is required")
		exitWithCode(ExitUsage)
	}

	data, err := os.ReadFile(envelopePath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		exitWithCode(ExitGeneral)
	}
	var env attest.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		fmt.Fprintln(os.Stderr, "error: could not parse envelope:", err)
		exitWithCode(ExitGeneral)
	}

	armoredKey, err := os.ReadFile(verifyKeyFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		exitWithCode(ExitGeneral)
	}

	ok, err := attest.Verify(&env, string(armoredKey))
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", errmsg.Format(err, nil))
		exitWithCode(ExitGeneral)
	}
	if !ok {
		fmt.Println("verification failed")
		exitWithCode(ExitGeneral)
	}
	fmt.Println("verification succeeded")
}
