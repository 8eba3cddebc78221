package main

import (
	"encoding/hex"
	"fmt"

	"github.com/calehh/democracy-app/crypto"
	"github.com/spf13/cobra"
)

type pubkeyArguments struct {
	Skey string
	Gen  bool
}

var pubkeyArgs pubkeyArguments

var pubkeyCmd = &cobra.Command{
	Use:   "pubkey",
	Short: "Print the public key and account of a key file",
	Long:  ``,
	RunE:  pubkeyRun,
}

func init() {
	pubkeyCmd.Flags().StringVarP(&pubkeyArgs.Skey, "skeyPath", "s", "./config/priv_validator_key.json", "private key path")
	pubkeyCmd.Flags().BoolVarP(&pubkeyArgs.Gen, "gen", "g", false, "generate the key file first")
}

func pubkeyRun(cmd *cobra.Command, args []string) error {
	var (
		pv  *crypto.PV
		err error
	)
	if pubkeyArgs.Gen {
		pv, err = crypto.GenFilePV(pubkeyArgs.Skey)
	} else {
		pv, err = crypto.ReadFilePV(pubkeyArgs.Skey)
	}
	if err != nil {
		return err
	}
	fmt.Println("pubkey:", hex.EncodeToString(pv.PublicKey()))
	fmt.Println("account:", pv.AccountID())
	return nil
}
