package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/calehh/democracy-app/config"
	"github.com/calehh/democracy-app/democracy"
	"github.com/calehh/democracy-app/scheduler"
	"github.com/calehh/democracy-app/state"
	"github.com/calehh/democracy-app/tx"
	"github.com/calehh/democracy-app/tx/handler"
	"github.com/calehh/democracy-app/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/cometbft/cometbft/store"
	"github.com/ethereum/go-ethereum/common"
)

type finalizeBlock struct {
	Height uint64
	Hash   common.Hash
}

func (b *finalizeBlock) Set(blk *abcitypes.RequestFinalizeBlock) {
	b.Height = uint64(blk.Height)
	b.Hash = common.BytesToHash(blk.Hash)
}

var _ abcitypes.Application = &DemocracyApp{}

type DemocracyApp struct {
	cfg    *config.AppConfig
	logger cmtlog.Logger

	db        *state.StateDB
	lastBlk   finalizeBlock
	engine    *democracy.Engine
	scheduler *scheduler.Scheduler
	metrics   *Metrics
	txHdlrs   map[tx.GovTxType]handler.TxHandler
	queriers  map[string]Querier

	st *state.State
}

func NewApp(cfg *config.AppConfig, logger cmtlog.Logger) (app *DemocracyApp, err error) {
	dir := cfg.Home + "/data"
	db, err := state.NewStateDB(dir, logger)
	if err != nil {
		return nil, err
	}
	return newApp(cfg, db, logger)
}

func newApp(cfg *config.AppConfig, db *state.StateDB, logger cmtlog.Logger) (app *DemocracyApp, err error) {
	logger = logger.With("module", "app")

	// A fresh chain gets its parameters in InitChain.
	params, err := db.State().Params()
	if errors.Is(err, state.ErrNotFound) {
		params, err = types.DefaultGovernanceParams(), nil
	}
	if err != nil {
		return nil, err
	}

	app = &DemocracyApp{
		cfg:       cfg,
		logger:    logger,
		db:        db,
		engine:    democracy.NewEngine(params, logger),
		scheduler: scheduler.New(logger),
		txHdlrs:   make(map[tx.GovTxType]handler.TxHandler),
		queriers:  make(map[string]Querier),
	}
	if cfg.Metrics {
		app.metrics = NewMetrics()
	}
	app.scheduler.Register(func(st *state.State, phase types.CeremonyPhase) ([]abcitypes.Event, error) {
		return app.engine.OnPhaseChange(st, phase)
	})
	app.registerTxHandler()
	app.registerQuerier()
	return
}

func (app *DemocracyApp) Start(bs *store.BlockStore) {
	height := app.db.Header().Height
	if height > 0 {
		blk := bs.LoadBlock(int64(height))
		if blk == nil {
			panic("unexpected BlockStore")
		}
		app.lastBlk.Height = height
		app.lastBlk.Hash = common.BytesToHash(blk.Hash())
	}
}

func (app *DemocracyApp) Stop() {
	err := app.db.Close()
	if err != nil {
		app.logger.Error("close db fail", "err", err)
	}
	app.logger.Info("democracy app stopped")
}

func (app *DemocracyApp) registerTxHandler() {
	admin := handler.NewAdminTxHandler(app.engine, app.logger)
	app.txHdlrs = map[tx.GovTxType]handler.TxHandler{
		tx.GovTxTypeSubmitProposal:      handler.NewSubmitProposalTxHandler(app.engine, app.logger),
		tx.GovTxTypeVote:                handler.NewVoteTxHandler(app.engine, app.logger),
		tx.GovTxTypeUpdateProposalState: handler.NewUpdateProposalStateTxHandler(app.engine, app.logger),
		tx.GovTxTypeCancelProposals:     admin,
		tx.GovTxTypeRegisterCommunity:   admin,
		tx.GovTxTypeRemoveCommunity:     admin,
		tx.GovTxTypeRecordReputations:   admin,
	}
}

func (app *DemocracyApp) InitChain(_ context.Context, chain *abcitypes.RequestInitChain) (res *abcitypes.ResponseInitChain, err error) {
	gs, err := types.ParseGenesisAppState(chain.AppStateBytes)
	if err != nil {
		app.logger.Error("InitChain parse app state fail", "err", err)
		return nil, err
	}
	st := app.db.NewState()
	st.SetChainId(chain.ChainId)
	for _, v := range chain.Validators {
		var acnt state.Account
		acnt.SetPubKey(v.PubKey.GetEd25519())
		acnt.Power = v.Power
		err = st.AddAccount(&acnt)
		if err != nil {
			app.logger.Error("InitChain add account fail", "err", err)
			return nil, err
		}
	}
	if err = app.applyGenesis(st, gs, uint64(chain.InitialHeight)); err != nil {
		app.logger.Error("InitChain apply app state fail", "err", err)
		return nil, err
	}
	app.engine.SetParams(gs.Params)

	var h common.Hash
	_, err = app.db.Update(st)
	if err != nil {
		app.logger.Error("InitChain update state fail", "err", err)
		return nil, err
	}
	h, err = app.db.SetState(st)
	if err != nil {
		app.logger.Error("InitChain apply state fail", "err", err)
		return nil, err
	}
	return &abcitypes.ResponseInitChain{
		AppHash: h.Bytes(),
	}, nil
}

func (app *DemocracyApp) applyGenesis(st *state.State, gs *types.GenesisAppState, initialHeight uint64) error {
	for _, member := range gs.Council {
		if err := st.SetCouncil(types.AccountID(member)); err != nil {
			return err
		}
	}
	for _, c := range gs.Communities {
		name := strings.TrimSpace(c.Name)
		cid, err := types.NewCommunityID(c.Geohash, name)
		if err != nil {
			return err
		}
		err = st.AddCommunity(&types.Community{
			ID:            cid,
			Name:          name,
			NominalIncome: c.NominalIncome,
			Demurrage:     c.Demurrage,
		})
		if err != nil {
			return fmt.Errorf("genesis community %q: %w", name, err)
		}
	}
	if err := st.SetParams(gs.Params); err != nil {
		return err
	}
	if err := st.SetInactivityTimeout(gs.InactivityTimeout); err != nil {
		return err
	}
	if initialHeight == 0 {
		initialHeight = 1
	}
	return scheduler.Init(st, gs.Scheduler.CeremonyIndex, gs.Scheduler.PhaseBlocks, initialHeight)
}

func (app *DemocracyApp) Info(ctx context.Context, info *abcitypes.RequestInfo) (*abcitypes.ResponseInfo, error) {
	header := app.db.Header()
	return &abcitypes.ResponseInfo{
		LastBlockHeight:  int64(header.Height),
		LastBlockAppHash: header.Hash,
	}, nil
}

func (app *DemocracyApp) ExtendVote(_ context.Context, extend *abcitypes.RequestExtendVote) (*abcitypes.ResponseExtendVote, error) {
	return &abcitypes.ResponseExtendVote{}, nil
}

func (app *DemocracyApp) VerifyVoteExtension(_ context.Context, verify *abcitypes.RequestVerifyVoteExtension) (*abcitypes.ResponseVerifyVoteExtension, error) {
	return &abcitypes.ResponseVerifyVoteExtension{Status: abcitypes.ResponseVerifyVoteExtension_ACCEPT}, nil
}

func (app *DemocracyApp) ApplySnapshotChunk(context.Context, *abcitypes.RequestApplySnapshotChunk) (*abcitypes.ResponseApplySnapshotChunk, error) {
	return &abcitypes.ResponseApplySnapshotChunk{}, nil
}

func (app *DemocracyApp) ListSnapshots(context.Context, *abcitypes.RequestListSnapshots) (*abcitypes.ResponseListSnapshots, error) {
	return &abcitypes.ResponseListSnapshots{}, nil
}

func (app *DemocracyApp) LoadSnapshotChunk(context.Context, *abcitypes.RequestLoadSnapshotChunk) (*abcitypes.ResponseLoadSnapshotChunk, error) {
	return &abcitypes.ResponseLoadSnapshotChunk{}, nil
}

func (app *DemocracyApp) OfferSnapshot(context.Context, *abcitypes.RequestOfferSnapshot) (*abcitypes.ResponseOfferSnapshot, error) {
	return &abcitypes.ResponseOfferSnapshot{}, nil
}
