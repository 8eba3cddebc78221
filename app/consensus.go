package app

import (
	"context"
	"errors"

	"github.com/calehh/democracy-app/state"
	"github.com/calehh/democracy-app/tx"
	"github.com/calehh/democracy-app/tx/handler"
	abcitypes "github.com/cometbft/cometbft/abci/types"
)

var (
	ErrUnexpectedTxProcess = errors.New("unexpected tx process")
)

// blockState opens the working state of height and runs the phase scheduler,
// which always goes before the transactions of a block.
func (app *DemocracyApp) blockState(height int64) (st *state.State, events []abcitypes.Event, err error) {
	st = app.db.NewState()
	st.SetHeight(uint64(height))
	events, err = app.scheduler.OnBlock(st)
	return
}

func (app *DemocracyApp) parseTx(st *state.State, txDat []byte, allowNonceGap bool) (btx *tx.GovTx, err error) {
	btx, err = tx.UnmarshalGovTx(txDat)
	if err != nil {
		return
	}
	_, err = st.Verify(btx, allowNonceGap)
	return
}

type execMode uint8

const (
	execPrepare execMode = iota
	execProcess
)

// execTx runs one tx against a clone of st. The clone is returned on
// success; a failed tx leaves st untouched and yields a failed result. Only
// fatal errors are returned.
func (app *DemocracyApp) execTx(ctx context.Context, st *state.State, stx []byte, mode execMode) (*state.State, *abcitypes.ExecTxResult, error) {
	failed := func(err error) *abcitypes.ExecTxResult {
		return &abcitypes.ExecTxResult{Code: handler.CodeFailed, Log: err.Error()}
	}
	btx, err := app.parseTx(st, stx, false)
	if err != nil {
		app.logger.Info("tx rejected, parse fail", "err", err)
		return st, failed(err), nil
	}
	h, ok := app.txHdlrs[btx.Type]
	if !ok {
		app.logger.Info("tx rejected, no handler", "type", btx.Type)
		return st, failed(tx.ErrUnsupportedTxType), nil
	}
	stTmp := st.Clone()
	var result *abcitypes.ExecTxResult
	if mode == execPrepare {
		result, err = h.Prepare(ctx, stTmp, btx)
	} else {
		result, err = h.Process(ctx, stTmp, btx)
	}
	if handler.IsFatal(err) {
		app.logger.Error("tx execution hit a fatal error", "type", btx.Type, "err", err)
		return st, nil, err
	}
	if err != nil {
		app.logger.Info("tx failed", "type", btx.Type, "err", err)
		return st, failed(err), nil
	}
	if result == nil {
		app.logger.Error("unexpected process tx nil result", "type", btx.Type)
		return st, nil, ErrUnexpectedTxProcess
	}
	return stTmp, result, nil
}

func (app *DemocracyApp) CheckTx(ctx context.Context, check *abcitypes.RequestCheckTx) (res *abcitypes.ResponseCheckTx, err error) {
	res = &abcitypes.ResponseCheckTx{Code: handler.CodeOK}
	_, err = app.db.View(func(st *state.State) error {
		btx, err := app.parseTx(st, check.Tx, true)
		if err != nil {
			return err
		}
		h, ok := app.txHdlrs[btx.Type]
		if !ok {
			return tx.ErrUnsupportedTxType
		}
		res, err = h.Check(ctx, st, btx)
		return err
	})
	if err != nil {
		app.logger.Info("check tx fail", "err", err)
		res = &abcitypes.ResponseCheckTx{Code: handler.CodeFailed, Log: err.Error()}
		err = nil
	}
	return
}

func (app *DemocracyApp) PrepareProposal(ctx context.Context, proposal *abcitypes.RequestPrepareProposal) (res *abcitypes.ResponsePrepareProposal, err error) {
	app.logger.Info("PrepareProposal", "height", proposal.Height, "txs", len(proposal.Txs))
	st, _, err := app.blockState(proposal.Height)
	if err != nil {
		app.logger.Error("PrepareProposal scheduler fail", "height", proposal.Height, "err", err)
		return &abcitypes.ResponsePrepareProposal{}, nil
	}
	txs := make([][]byte, 0, len(proposal.Txs))
	var size int64
	for _, stx := range proposal.Txs {
		if proposal.MaxTxBytes > 0 && size+int64(len(stx)) > proposal.MaxTxBytes {
			break
		}
		next, result, err := app.execTx(ctx, st, stx, execPrepare)
		if err != nil {
			app.logger.Error("PrepareProposal tx fail", "err", err)
			break
		}
		if result.Code != handler.CodeOK {
			continue
		}
		st = next
		size += int64(len(stx))
		txs = append(txs, stx)
	}
	return &abcitypes.ResponsePrepareProposal{Txs: txs}, nil
}

func (app *DemocracyApp) ProcessProposal(ctx context.Context, proposal *abcitypes.RequestProcessProposal) (res *abcitypes.ResponseProcessProposal, err error) {
	app.logger.Info("ProcessProposal", "height", proposal.Height, "txs", len(proposal.Txs))
	res = &abcitypes.ResponseProcessProposal{Status: abcitypes.ResponseProcessProposal_REJECT}
	st, _, err := app.blockState(proposal.Height)
	if err != nil {
		app.logger.Error("ProcessProposal scheduler fail", "height", proposal.Height, "err", err)
		return res, nil
	}
	for i, stx := range proposal.Txs {
		next, result, err := app.execTx(ctx, st, stx, execProcess)
		if err != nil || result.Code != handler.CodeOK {
			app.logger.Error("proposal rejected, tx fail", "height", proposal.Height, "tx", i)
			return res, nil
		}
		st = next
	}
	res.Status = abcitypes.ResponseProcessProposal_ACCEPT
	return res, nil
}

func (app *DemocracyApp) FinalizeBlock(ctx context.Context, req *abcitypes.RequestFinalizeBlock) (*abcitypes.ResponseFinalizeBlock, error) {
	app.logger.Info("FinalizeBlock", "height", req.Height, "txs", len(req.Txs))
	app.lastBlk.Set(req)
	st, events, err := app.blockState(req.Height)
	if err != nil {
		app.logger.Error("scheduler fail", "height", req.Height, "err", err)
		return nil, err
	}
	res := make([]*abcitypes.ExecTxResult, len(req.Txs))
	for i, stx := range req.Txs {
		next, result, err := app.execTx(ctx, st, stx, execProcess)
		if err != nil {
			return nil, err
		}
		st = next
		res[i] = result
	}
	h, err := app.db.Update(st)
	if err != nil {
		app.logger.Error("state update hash fail", "err", err)
		return nil, err
	}
	app.metrics.observe(events)
	for _, result := range res {
		app.metrics.observe(result.Events)
	}
	app.st = st
	return &abcitypes.ResponseFinalizeBlock{
		TxResults: res,
		AppHash:   h.Bytes(),
		Events:    events,
	}, nil
}

func (app *DemocracyApp) Commit(ctx context.Context, commit *abcitypes.RequestCommit) (*abcitypes.ResponseCommit, error) {
	_, err := app.db.SetState(app.st)
	if err != nil {
		return nil, err
	}
	app.st = nil
	app.logger.Info("Commit", "height", app.lastBlk.Height)
	return &abcitypes.ResponseCommit{}, nil
}
