package handler

import (
	"context"
	"errors"

	"github.com/calehh/democracy-app/democracy"
	"github.com/calehh/democracy-app/state"
	"github.com/calehh/democracy-app/tx"
	"github.com/calehh/democracy-app/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
)

const (
	CodeOK     uint32 = 0
	CodeFailed uint32 = 1
)

// TxHandler executes one tx type. Prepare and Process mutate st in place and
// bump the sender nonce on success; callers hand them a clone they can drop
// when an error comes back.
type TxHandler interface {
	Check(ctx context.Context, st *state.State, btx *tx.GovTx) (res *abcitypes.ResponseCheckTx, err error)
	Prepare(ctx context.Context, st *state.State, btx *tx.GovTx) (res *abcitypes.ExecTxResult, err error)
	Process(ctx context.Context, st *state.State, btx *tx.GovTx) (res *abcitypes.ExecTxResult, err error)
}

// IsFatal reports errors that must halt block execution instead of failing a
// single tx.
func IsFatal(err error) bool {
	return errors.Is(err, democracy.ErrTallyInvariant)
}

type handleFunc func(ctx context.Context, st *state.State, btx *tx.GovTx) ([]abcitypes.Event, error)

// exec runs handle and bumps the sender nonce.
func exec(ctx context.Context, st *state.State, btx *tx.GovTx, handle handleFunc) (res *abcitypes.ExecTxResult, err error) {
	events, err := handle(ctx, st, btx)
	if err != nil {
		return nil, err
	}
	_, err = st.IncreaseNonce(btx.PubKey)
	if err != nil {
		return nil, err
	}
	return &abcitypes.ExecTxResult{Code: CodeOK, Events: events}, nil
}

// check dry-runs handle against a throwaway copy of st.
func check(ctx context.Context, logger cmtlog.Logger, st *state.State, btx *tx.GovTx, handle handleFunc) (res *abcitypes.ResponseCheckTx, err error) {
	res = &abcitypes.ResponseCheckTx{Code: CodeOK}
	_, err1 := handle(ctx, st.Clone(), btx)
	if err1 != nil {
		logger.Info("CheckTx fail", "type", btx.Type, "err", err1)
		res.Code = CodeFailed
		res.Log = err1.Error()
	}
	return
}

func sender(btx *tx.GovTx) types.AccountID {
	return state.AccountIDFromPubKey(btx.PubKey)
}
