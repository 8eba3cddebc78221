package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/calehh/democracy-app/crypto"
	"github.com/calehh/democracy-app/state"
	"github.com/calehh/democracy-app/tx"
	"github.com/calehh/democracy-app/types"
	"github.com/cometbft/cometbft/rpc/client/http"
)

func newClient(url string) (*http.HTTP, error) {
	cli, err := http.New(url, "/websocket")
	if err != nil {
		return nil, fmt.Errorf("new client err:%w", err)
	}
	return cli, nil
}

func abciQuery(url string, path string, data []byte) ([]byte, error) {
	cli, err := newClient(url)
	if err != nil {
		return nil, err
	}
	res, err := cli.ABCIQuery(context.Background(), path, data)
	if err != nil {
		return nil, fmt.Errorf("request err:%w", err)
	}
	if res.Response.Code != 0 {
		return nil, &queryError{Path: path, Code: res.Response.Code, Log: res.Response.Log}
	}
	return res.Response.Value, nil
}

type queryError struct {
	Path string
	Code uint32
	Log  string
}

func (e *queryError) Error() string {
	return fmt.Sprintf("query %s fail, code %d: %s", e.Path, e.Code, e.Log)
}

func queryAccount(url string, index uint64, address string) (*state.Account, error) {
	var dat []byte
	var err error
	if len(address) > 0 {
		dat, err = hex.DecodeString(address)
		if err != nil {
			return nil, fmt.Errorf("invalid address:%v", address)
		}
	} else {
		s := fmt.Sprintf("0%x", index)
		if len(s)&1 == 1 {
			s = s[1:]
		}
		dat, _ = hex.DecodeString(s)
	}
	val, err := abciQuery(url, "/accounts/", dat)
	if err != nil {
		return nil, err
	}
	var act state.Account
	err = act.UnmarshalJSON(val)
	if err != nil {
		return nil, err
	}
	return &act, err
}

// sendTx signs body with the key at args.Skey and broadcasts it.
func sendTx(args *txArguments, tp tx.GovTxType, body any) error {
	cli, err := newClient(args.Url)
	if err != nil {
		return err
	}
	ctx := context.Background()
	gres, err := cli.Genesis(ctx)
	if err != nil {
		return fmt.Errorf("get chain genesis err:%w", err)
	}
	chainId := gres.Genesis.ChainID

	pv, err := crypto.ReadFilePV(args.Skey)
	if err != nil {
		return err
	}
	nonce := args.Nonce
	if nonce == 0 {
		act, err := queryAccount(args.Url, 0, pv.Address())
		var qerr *queryError
		switch {
		case err == nil:
			nonce = act.Nonce
		case errors.As(err, &qerr) && qerr.Code == 1:
			// first tx of this key
		default:
			return err
		}
	}
	btx := tx.GovTx{
		Version: tx.GovTxVersion1,
		Type:    tp,
		Nonce:   nonce,
		PubKey:  pv.PublicKey(),
		Tx:      body,
	}
	dat, err := btx.SigData([]byte(chainId))
	if err != nil {
		return fmt.Errorf("tx sign data err:%w", err)
	}
	sig, err := pv.Sign(dat)
	if err != nil {
		return fmt.Errorf("sign tx err:%w", err)
	}
	btx.Sig = [][]byte{sig}
	dat, err = tx.MarshalGovTx(&btx)
	if err != nil {
		return err
	}
	if args.NoSend {
		fmt.Println(string(dat))
		return nil
	}
	res, err := cli.BroadcastTxSync(ctx, dat)
	if err != nil {
		return fmt.Errorf("broadcast tx err:%w", err)
	}
	if res.Code != 0 {
		return fmt.Errorf("tx rejected: %s", res.Log)
	}
	fmt.Printf("tx %v sent, account %v nonce %v\n", res.Hash, pv.Address(), nonce)
	return nil
}

func printJSON(v any) error {
	dat, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(dat))
	return nil
}

// parseHandle reads a reputation handle written as community:cycle.
func parseHandle(s string) (types.ReputationHandle, error) {
	cid, cycle, ok := strings.Cut(s, ":")
	if !ok {
		return types.ReputationHandle{}, fmt.Errorf("reputation %q is not community:cycle", s)
	}
	n, err := strconv.ParseUint(cycle, 10, 32)
	if err != nil {
		return types.ReputationHandle{}, fmt.Errorf("reputation %q: %w", s, err)
	}
	h := types.ReputationHandle{Community: types.CommunityID(cid), Cycle: types.CeremonyIndex(n)}
	return h, h.Community.Validate()
}

// parseEntry reads a reputation entry written as address:reputation, the
// reputation being a name or its number.
func parseEntry(s string) (tx.ReputationEntry, error) {
	addr, rep, ok := strings.Cut(s, ":")
	if !ok {
		return tx.ReputationEntry{}, fmt.Errorf("entry %q is not address:reputation", s)
	}
	r, err := parseReputation(rep)
	if err != nil {
		return tx.ReputationEntry{}, err
	}
	return tx.ReputationEntry{Account: types.AccountID(strings.ToUpper(addr)), Reputation: r}, nil
}

var errUnknownReputation = errors.New("unknown reputation")

func parseReputation(s string) (types.Reputation, error) {
	for r := types.ReputationUnverified; r <= types.ReputationVerifiedLinked; r++ {
		if s == r.String() {
			return r, nil
		}
	}
	n, err := strconv.ParseUint(s, 10, 8)
	if err != nil || types.Reputation(n) > types.ReputationVerifiedLinked {
		return 0, fmt.Errorf("%w: %q", errUnknownReputation, s)
	}
	return types.Reputation(n), nil
}
