package handler

import (
	"context"

	"github.com/calehh/democracy-app/democracy"
	"github.com/calehh/democracy-app/state"
	"github.com/calehh/democracy-app/tx"
	"github.com/calehh/democracy-app/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
)

type VoteTxHandler struct {
	logger cmtlog.Logger
	engine *democracy.Engine
}

func NewVoteTxHandler(engine *democracy.Engine, logger cmtlog.Logger) (h *VoteTxHandler) {
	logger = logger.With("module", "voteTx")
	h = &VoteTxHandler{
		logger: logger,
		engine: engine,
	}
	return
}

func (h *VoteTxHandler) Check(ctx context.Context, st *state.State, btx *tx.GovTx) (res *abcitypes.ResponseCheckTx, err error) {
	return check(ctx, h.logger, st, btx, h.handle)
}

func (h *VoteTxHandler) handle(ctx context.Context, st *state.State, btx *tx.GovTx) (events []abcitypes.Event, err error) {
	vtx, ok := btx.Tx.(*tx.VoteTx)
	if !ok {
		return nil, tx.ErrUnmatchedTxType
	}
	event, err := h.engine.Vote(st, vtx.Proposal, sender(btx), vtx.Vote, vtx.Reputations)
	if err != nil {
		return nil, err
	}
	return []abcitypes.Event{types.EncodeEventVoted(event)}, nil
}

func (h *VoteTxHandler) Prepare(ctx context.Context, st *state.State, btx *tx.GovTx) (res *abcitypes.ExecTxResult, err error) {
	return exec(ctx, st, btx, h.handle)
}

func (h *VoteTxHandler) Process(ctx context.Context, st *state.State, btx *tx.GovTx) (res *abcitypes.ExecTxResult, err error) {
	return exec(ctx, st, btx, h.handle)
}
