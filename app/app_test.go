package app

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/calehh/democracy-app/config"
	"github.com/calehh/democracy-app/democracy"
	"github.com/calehh/democracy-app/state"
	"github.com/calehh/democracy-app/tx"
	"github.com/calehh/democracy-app/tx/handler"
	"github.com/calehh/democracy-app/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	"github.com/cometbft/cometbft/crypto/ed25519"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

const chainID = "democracy-test"

type signer struct {
	key   ed25519.PrivKey
	nonce uint64
}

func newSigner() *signer {
	return &signer{key: ed25519.GenPrivKey()}
}

func (s *signer) id() types.AccountID {
	return state.AccountIDFromPubKey(s.key.PubKey().Bytes())
}

// sign encodes body as the next tx of s.
func (s *signer) sign(t *testing.T, tp tx.GovTxType, body any) []byte {
	btx := &tx.GovTx{
		Version: tx.GovTxVersion1,
		Type:    tp,
		Nonce:   s.nonce,
		PubKey:  s.key.PubKey().Bytes(),
		Tx:      body,
	}
	dat, err := btx.SigData([]byte(chainID))
	require.NoError(t, err)
	sig, err := s.key.Sign(dat)
	require.NoError(t, err)
	btx.Sig = [][]byte{sig}
	out, err := tx.MarshalGovTx(btx)
	require.NoError(t, err)
	s.nonce++
	return out
}

type testChain struct {
	app    *DemocracyApp
	height int64
}

func newTestChain(t *testing.T, council *signer, validator ed25519.PrivKey) *testChain {
	db, err := state.NewMemStateDB(cmtlog.NewNopLogger())
	require.NoError(t, err)
	cfg := config.DefaultAppConfig(t.TempDir())
	app, err := newApp(cfg, db, cmtlog.NewNopLogger())
	require.NoError(t, err)

	gs := types.DefaultGenesisAppState()
	gs.Council = []string{string(council.id())}
	gs.Communities = []types.GenesisCommunity{{Geohash: "u0qj9", Name: "Zurich", NominalIncome: 10}}
	gs.Scheduler = types.GenesisScheduler{PhaseBlocks: [3]uint64{2, 1, 1}, CeremonyIndex: 1}
	gs.Params.ConfirmationPeriod = 2
	gs.Params.ProposalLifetime = 100
	appState, err := json.Marshal(gs)
	require.NoError(t, err)

	res, err := app.InitChain(context.Background(), &abcitypes.RequestInitChain{
		ChainId:       chainID,
		InitialHeight: 1,
		AppStateBytes: appState,
		Validators:    []abcitypes.ValidatorUpdate{abcitypes.Ed25519ValidatorUpdate(validator.PubKey().Bytes(), 10)},
	})
	require.NoError(t, err)
	require.Len(t, res.AppHash, 32)
	return &testChain{app: app}
}

// next executes and commits one block.
func (c *testChain) next(t *testing.T, txs ...[]byte) *abcitypes.ResponseFinalizeBlock {
	c.height++
	ctx := context.Background()
	proc, err := c.app.ProcessProposal(ctx, &abcitypes.RequestProcessProposal{Height: c.height, Txs: txs})
	require.NoError(t, err)
	require.Equal(t, abcitypes.ResponseProcessProposal_ACCEPT, proc.Status, "height %d", c.height)
	res, err := c.app.FinalizeBlock(ctx, &abcitypes.RequestFinalizeBlock{Height: c.height, Txs: txs})
	require.NoError(t, err)
	_, err = c.app.Commit(ctx, &abcitypes.RequestCommit{})
	require.NoError(t, err)
	for i, r := range res.TxResults {
		require.Equal(t, handler.CodeOK, r.Code, "height %d tx %d: %s", c.height, i, r.Log)
	}
	return res
}

func (c *testChain) query(t *testing.T, path string, data []byte, v any) {
	res, err := c.app.Query(context.Background(), &abcitypes.RequestQuery{Path: path, Data: data})
	require.NoError(t, err)
	require.Equal(t, QueryCodeOK, res.Code, res.Log)
	require.NoError(t, json.Unmarshal(res.Value, v))
}

func hasEvent(events []abcitypes.Event, tp string) bool {
	for _, e := range events {
		if e.Type == tp {
			return true
		}
	}
	return false
}

func TestProposalLifecycle(t *testing.T) {
	council := newSigner()
	voters := []*signer{newSigner(), newSigner(), newSigner()}
	c := newTestChain(t, council, ed25519.GenPrivKey())

	var communities []types.Community
	c.query(t, "/communities/", nil, &communities)
	require.Len(t, communities, 1)
	cid := communities[0].ID

	entries := make([]tx.ReputationEntry, 0, len(voters))
	for _, v := range voters {
		entries = append(entries, tx.ReputationEntry{Account: v.id(), Reputation: types.ReputationVerifiedLinked})
	}
	res := c.next(t, council.sign(t, tx.GovTxTypeRecordReputations, &tx.RecordReputationsTx{
		Community: cid,
		Cycle:     1,
		Entries:   entries,
	}))
	require.True(t, hasEvent(res.TxResults[0].Events, types.EventReputationsRecordedType))

	// heights 2 to 4 walk a ceremony, 5 opens cycle 2 before its txs run
	for c.height < 4 {
		c.next(t)
	}
	res = c.next(t, voters[0].sign(t, tx.GovTxTypeSubmitProposal, &tx.SubmitProposalTx{
		Action: &types.SetInactivityTimeout{Timeout: 77},
	}))
	require.True(t, hasEvent(res.Events, types.EventPhaseChangedType))
	var ss types.SchedulerState
	c.query(t, "/scheduler/", nil, &ss)
	require.Equal(t, types.CeremonyIndex(2), ss.CeremonyIndex)
	require.Equal(t, types.PhaseRegistering, ss.Phase)

	submitted := types.DecodeEventProposalSubmitted(res.TxResults[0].Events[0])
	require.NotNil(t, submitted)
	require.Equal(t, types.ProposalID(1), submitted.Proposal)
	require.Equal(t, types.CeremonyIndex(2), submitted.StartCycle)

	handles := []types.ReputationHandle{{Community: cid, Cycle: 1}}
	res = c.next(t,
		voters[1].sign(t, tx.GovTxTypeVote, &tx.VoteTx{Proposal: 1, Vote: types.VoteAye, Reputations: handles}),
		voters[2].sign(t, tx.GovTxTypeVote, &tx.VoteTx{Proposal: 1, Vote: types.VoteAye, Reputations: handles}),
	)
	voted := types.DecodeEventVoted(res.TxResults[1].Events[0])
	require.Equal(t, uint64(2), voted.Turnout)

	var electorate ElectorateInfo
	c.query(t, "/electorate/", []byte("1"), &electorate)
	require.Equal(t, uint64(3), electorate.Electorate)
	require.True(t, electorate.Passing)

	// assigning at 7 starts the confirmation period
	res = c.next(t)
	require.True(t, hasEvent(res.Events, types.EventProposalStateChangedType))
	var info ProposalInfo
	c.query(t, "/proposals/", []byte("1"), &info)
	require.Equal(t, types.Confirming(7), info.Proposal.State)

	c.next(t)
	// registering at 9 approves and enacts
	res = c.next(t)
	require.True(t, hasEvent(res.Events, types.EventProposalEnactedType))
	c.query(t, "/proposals/", []byte("1"), &info)
	require.Equal(t, types.Enacted(), info.Proposal.State)
	require.Equal(t, uint64(2), info.Tally.Ayes)

	var queue []types.EnactmentEntry
	c.query(t, "/enactment/", nil, &queue)
	require.Empty(t, queue)

	timeout, err := c.app.db.State().InactivityTimeout()
	require.NoError(t, err)
	require.Equal(t, uint32(77), timeout)
	require.GreaterOrEqual(t, testutil.ToFloat64(c.app.metrics.enactments.WithLabelValues(types.ActionSetInactivityTimeout.String())), float64(1))
}

func TestFailedTx(t *testing.T) {
	council := newSigner()
	outsider := newSigner()
	c := newTestChain(t, council, ed25519.GenPrivKey())
	ctx := context.Background()

	bad := outsider.sign(t, tx.GovTxTypeRegisterCommunity, &tx.RegisterCommunityTx{Geohash: "sr2yk", Name: "Leu"})
	good := council.sign(t, tx.GovTxTypeRegisterCommunity, &tx.RegisterCommunityTx{Geohash: "sr2yk", Name: "Leu"})

	check, err := c.app.CheckTx(ctx, &abcitypes.RequestCheckTx{Tx: bad})
	require.NoError(t, err)
	require.Equal(t, handler.CodeFailed, check.Code)

	prep, err := c.app.PrepareProposal(ctx, &abcitypes.RequestPrepareProposal{Height: 1, Txs: [][]byte{bad, good}})
	require.NoError(t, err)
	require.Equal(t, [][]byte{good}, prep.Txs)

	proc, err := c.app.ProcessProposal(ctx, &abcitypes.RequestProcessProposal{Height: 1, Txs: [][]byte{bad, good}})
	require.NoError(t, err)
	require.Equal(t, abcitypes.ResponseProcessProposal_REJECT, proc.Status)

	res, err := c.app.FinalizeBlock(ctx, &abcitypes.RequestFinalizeBlock{Height: 1, Txs: [][]byte{bad, good}})
	require.NoError(t, err)
	require.Equal(t, handler.CodeFailed, res.TxResults[0].Code)
	require.Equal(t, handler.CodeOK, res.TxResults[1].Code)
	_, err = c.app.Commit(ctx, &abcitypes.RequestCommit{})
	require.NoError(t, err)

	// the failed tx did not consume a nonce
	acnt, _, err := c.app.db.GetAccountByAddress(outsider.id())
	require.NoError(t, err)
	require.Nil(t, acnt)
	acnt, _, err = c.app.db.GetAccountByAddress(council.id())
	require.NoError(t, err)
	require.Equal(t, uint64(1), acnt.Nonce)

	// replaying the accepted tx fails on its nonce
	check, err = c.app.CheckTx(ctx, &abcitypes.RequestCheckTx{Tx: good})
	require.NoError(t, err)
	require.Equal(t, handler.CodeFailed, check.Code)
}

func TestFatalTxAbortsBlock(t *testing.T) {
	council := newSigner()
	proposer, other := newSigner(), newSigner()
	c := newTestChain(t, council, ed25519.GenPrivKey())
	ctx := context.Background()

	var communities []types.Community
	c.query(t, "/communities/", nil, &communities)
	cid := communities[0].ID

	c.next(t, proposer.sign(t, tx.GovTxTypeSubmitProposal, &tx.SubmitProposalTx{
		Action: &types.SetInactivityTimeout{Timeout: 9},
	}))

	// commit a tally no electorate can back and keep the scheduler quiet
	c.height++
	st := c.app.db.NewState()
	st.SetHeight(uint64(c.height))
	require.NoError(t, st.SetTally(1, types.Tally{Turnout: 5, Ayes: 5}))
	ss, err := st.SchedulerState()
	require.NoError(t, err)
	ss.PhaseBlocks = [3]uint64{100, 100, 100}
	require.NoError(t, st.SetSchedulerState(ss))
	_, err = c.app.db.Update(st)
	require.NoError(t, err)
	_, err = c.app.db.SetState(st)
	require.NoError(t, err)

	submissions := c.app.metrics.submissions.WithLabelValues(types.ActionUpdateNominalIncome.String())
	before := testutil.ToFloat64(submissions)

	c.height++
	_, err = c.app.FinalizeBlock(ctx, &abcitypes.RequestFinalizeBlock{Height: c.height, Txs: [][]byte{
		other.sign(t, tx.GovTxTypeSubmitProposal, &tx.SubmitProposalTx{
			Action: &types.UpdateNominalIncome{Community: cid, Income: 20},
		}),
		proposer.sign(t, tx.GovTxTypeUpdateProposalState, &tx.UpdateProposalStateTx{Proposal: 1}),
	}})
	require.ErrorIs(t, err, democracy.ErrTallyInvariant)
	// the aborted block counted nothing
	require.Equal(t, before, testutil.ToFloat64(submissions))
}

func TestQueryNotFound(t *testing.T) {
	c := newTestChain(t, newSigner(), ed25519.GenPrivKey())
	ctx := context.Background()

	res, err := c.app.Query(ctx, &abcitypes.RequestQuery{Path: "/nothing"})
	require.NoError(t, err)
	require.Equal(t, QueryCodeNotFound, res.Code)

	res, err = c.app.Query(ctx, &abcitypes.RequestQuery{Path: "/proposals/", Data: []byte("3")})
	require.NoError(t, err)
	require.Equal(t, QueryCodeNotFound, res.Code)

	var params types.GovernanceParams
	c.query(t, "/params", nil, &params)
	require.Equal(t, uint64(2), params.ConfirmationPeriod)

	var council []types.AccountID
	c.query(t, "/council/", nil, &council)
	require.Len(t, council, 1)
}
