package handler

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/calehh/democracy-app/democracy"
	"github.com/calehh/democracy-app/state"
	"github.com/calehh/democracy-app/tx"
	"github.com/calehh/democracy-app/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtcrypto "github.com/cometbft/cometbft/crypto"
	cmtlog "github.com/cometbft/cometbft/libs/log"
)

var (
	ErrPastCycle    = errors.New("reputations can only be recorded for the current ceremony")
	ErrEmptyEntries = errors.New("no reputation entries")
	ErrInvalidName  = errors.New("invalid community name")
)

// AdminTxHandler serves the council transactions that stand in for the
// ceremony and community registries.
type AdminTxHandler struct {
	logger cmtlog.Logger
	engine *democracy.Engine
}

func NewAdminTxHandler(engine *democracy.Engine, logger cmtlog.Logger) (h *AdminTxHandler) {
	logger = logger.With("module", "adminTx")
	h = &AdminTxHandler{
		logger: logger,
		engine: engine,
	}
	return
}

func (h *AdminTxHandler) Check(ctx context.Context, st *state.State, btx *tx.GovTx) (res *abcitypes.ResponseCheckTx, err error) {
	return check(ctx, h.logger, st, btx, h.handle)
}

func (h *AdminTxHandler) handle(ctx context.Context, st *state.State, btx *tx.GovTx) (events []abcitypes.Event, err error) {
	if !btx.Type.Council() {
		return nil, tx.ErrUnmatchedTxType
	}
	council, err := st.IsCouncil(sender(btx))
	if err != nil {
		return nil, err
	}
	if !council {
		return nil, state.ErrTxNotCouncil
	}
	switch atx := btx.Tx.(type) {
	case *tx.CancelProposalsTx:
		return h.cancelProposals(st, atx)
	case *tx.RegisterCommunityTx:
		return h.registerCommunity(st, atx)
	case *tx.RemoveCommunityTx:
		return h.removeCommunity(st, atx)
	case *tx.RecordReputationsTx:
		return h.recordReputations(st, atx)
	}
	return nil, tx.ErrUnmatchedTxType
}

func (h *AdminTxHandler) cancelProposals(st *state.State, ctl *tx.CancelProposalsTx) ([]abcitypes.Event, error) {
	event, err := h.engine.CancelProposals(st, ctl.Identifier)
	if err != nil {
		return nil, err
	}
	return []abcitypes.Event{types.EncodeEventProposalsCancelled(event)}, nil
}

func (h *AdminTxHandler) registerCommunity(st *state.State, rtx *tx.RegisterCommunityTx) ([]abcitypes.Event, error) {
	name := strings.TrimSpace(rtx.Name)
	if name == "" {
		return nil, ErrInvalidName
	}
	cid, err := types.NewCommunityID(rtx.Geohash, name)
	if err != nil {
		return nil, err
	}
	err = st.AddCommunity(&types.Community{
		ID:            cid,
		Name:          name,
		NominalIncome: rtx.NominalIncome,
		Demurrage:     rtx.Demurrage,
	})
	if err != nil {
		return nil, err
	}
	h.logger.Info("community registered", "community", cid, "name", name)
	return []abcitypes.Event{types.EncodeEventCommunityRegistered(&types.EventCommunityRegistered{
		Community: cid,
		Name:      name,
	})}, nil
}

// removeCommunity deregisters the community and cancels every open proposal
// that targets it.
func (h *AdminTxHandler) removeCommunity(st *state.State, rtx *tx.RemoveCommunityTx) ([]abcitypes.Event, error) {
	if err := st.RemoveCommunity(rtx.Community); err != nil {
		return nil, err
	}
	events := []abcitypes.Event{types.EncodeEventCommunityRemoved(&types.EventCommunityRemoved{Community: rtx.Community})}
	for _, kind := range []types.ActionKind{types.ActionUpdateNominalIncome, types.ActionUpdateDemurrage} {
		event, err := h.engine.CancelProposals(st, types.ProposalActionIdentifier{Kind: kind, Community: rtx.Community})
		if err != nil {
			return nil, err
		}
		events = append(events, types.EncodeEventProposalsCancelled(event))
	}
	h.logger.Info("community removed", "community", rtx.Community)
	return events, nil
}

// recordReputations writes ceremony outcomes of the running ceremony. Past
// cycles are closed so the electorate of existing proposals never moves.
func (h *AdminTxHandler) recordReputations(st *state.State, rtx *tx.RecordReputationsTx) ([]abcitypes.Event, error) {
	if len(rtx.Entries) == 0 {
		return nil, ErrEmptyEntries
	}
	cindex, err := st.CurrentCeremonyIndex()
	if err != nil {
		return nil, err
	}
	if rtx.Cycle != cindex {
		return nil, fmt.Errorf("%w: cycle %d, current %d", ErrPastCycle, rtx.Cycle, cindex)
	}
	exists, err := st.HasCommunity(rtx.Community)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", state.ErrCommunityNoexists, rtx.Community)
	}
	for _, e := range rtx.Entries {
		account, err := normalizeAccount(e.Account)
		if err != nil {
			return nil, err
		}
		if err = st.SetReputation(rtx.Community, rtx.Cycle, account, e.Reputation); err != nil {
			return nil, err
		}
	}
	verified, err := st.VerifiedCount(rtx.Community, rtx.Cycle)
	if err != nil {
		return nil, err
	}
	return []abcitypes.Event{types.EncodeEventReputationsRecorded(&types.EventReputationsRecorded{
		Community: rtx.Community,
		Cycle:     rtx.Cycle,
		Entries:   uint64(len(rtx.Entries)),
		Verified:  verified,
	})}, nil
}

func normalizeAccount(id types.AccountID) (types.AccountID, error) {
	addr, err := hex.DecodeString(string(id))
	if err != nil || len(addr) != cmtcrypto.AddressSize {
		return "", fmt.Errorf("invalid account %q", string(id))
	}
	return types.AccountID(cmtcrypto.Address(addr).String()), nil
}

func (h *AdminTxHandler) Prepare(ctx context.Context, st *state.State, btx *tx.GovTx) (res *abcitypes.ExecTxResult, err error) {
	return exec(ctx, st, btx, h.handle)
}

func (h *AdminTxHandler) Process(ctx context.Context, st *state.State, btx *tx.GovTx) (res *abcitypes.ExecTxResult, err error) {
	return exec(ctx, st, btx, h.handle)
}
