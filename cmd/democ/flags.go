package main

import "github.com/spf13/cobra"

func urlFlag(cmd *cobra.Command, url *string) {
	cmd.Flags().StringVarP(url, "url", "u", "http://127.0.0.1:26657", "democracy node rpc url")
}

// txArguments are shared by every command that signs and sends a tx.
type txArguments struct {
	Url    string
	Skey   string
	Nonce  uint64
	NoSend bool
}

func txFlags(cmd *cobra.Command, args *txArguments) {
	urlFlag(cmd, &args.Url)
	cmd.Flags().StringVarP(&args.Skey, "skeyPath", "s", "./config/priv_validator_key.json", "private key path")
	cmd.Flags().Uint64VarP(&args.Nonce, "nonce", "n", 0, "account nonce, queried when 0")
	cmd.Flags().BoolVarP(&args.NoSend, "nosend", "", false, "not send transaction but print it")
}
