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

type SubmitProposalTxHandler struct {
	logger cmtlog.Logger
	engine *democracy.Engine
}

func NewSubmitProposalTxHandler(engine *democracy.Engine, logger cmtlog.Logger) (h *SubmitProposalTxHandler) {
	logger = logger.With("module", "submitProposalTx")
	h = &SubmitProposalTxHandler{
		logger: logger,
		engine: engine,
	}
	return
}

func (h *SubmitProposalTxHandler) Check(ctx context.Context, st *state.State, btx *tx.GovTx) (res *abcitypes.ResponseCheckTx, err error) {
	return check(ctx, h.logger, st, btx, h.handle)
}

func (h *SubmitProposalTxHandler) handle(ctx context.Context, st *state.State, btx *tx.GovTx) (events []abcitypes.Event, err error) {
	stx, ok := btx.Tx.(*tx.SubmitProposalTx)
	if !ok {
		return nil, tx.ErrUnmatchedTxType
	}
	id, event, err := h.engine.SubmitProposal(st, sender(btx), stx.Action)
	if err != nil {
		return nil, err
	}
	h.logger.Info("proposal submitted", "proposal", id, "kind", stx.Action.Kind(), "proposer", event.Proposer)
	return []abcitypes.Event{types.EncodeEventProposalSubmitted(event)}, nil
}

func (h *SubmitProposalTxHandler) Prepare(ctx context.Context, st *state.State, btx *tx.GovTx) (res *abcitypes.ExecTxResult, err error) {
	return exec(ctx, st, btx, h.handle)
}

func (h *SubmitProposalTxHandler) Process(ctx context.Context, st *state.State, btx *tx.GovTx) (res *abcitypes.ExecTxResult, err error) {
	return exec(ctx, st, btx, h.handle)
}

type UpdateProposalStateTxHandler struct {
	logger cmtlog.Logger
	engine *democracy.Engine
}

func NewUpdateProposalStateTxHandler(engine *democracy.Engine, logger cmtlog.Logger) (h *UpdateProposalStateTxHandler) {
	logger = logger.With("module", "updateProposalStateTx")
	h = &UpdateProposalStateTxHandler{
		logger: logger,
		engine: engine,
	}
	return
}

func (h *UpdateProposalStateTxHandler) Check(ctx context.Context, st *state.State, btx *tx.GovTx) (res *abcitypes.ResponseCheckTx, err error) {
	return check(ctx, h.logger, st, btx, h.handle)
}

func (h *UpdateProposalStateTxHandler) handle(ctx context.Context, st *state.State, btx *tx.GovTx) (events []abcitypes.Event, err error) {
	utx, ok := btx.Tx.(*tx.UpdateProposalStateTx)
	if !ok {
		return nil, tx.ErrUnmatchedTxType
	}
	approved, event, err := h.engine.UpdateProposalState(st, utx.Proposal)
	if err != nil {
		return nil, err
	}
	if approved {
		h.logger.Info("proposal approved, enactment queued", "proposal", utx.Proposal)
	}
	if event != nil {
		events = append(events, types.EncodeEventProposalStateChanged(event))
	}
	return
}

func (h *UpdateProposalStateTxHandler) Prepare(ctx context.Context, st *state.State, btx *tx.GovTx) (res *abcitypes.ExecTxResult, err error) {
	return exec(ctx, st, btx, h.handle)
}

func (h *UpdateProposalStateTxHandler) Process(ctx context.Context, st *state.State, btx *tx.GovTx) (res *abcitypes.ExecTxResult, err error) {
	return exec(ctx, st, btx, h.handle)
}
