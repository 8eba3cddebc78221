package state

import (
	"testing"

	"github.com/calehh/democracy-app/tx"
	"github.com/calehh/democracy-app/types"
	"github.com/cometbft/cometbft/crypto/ed25519"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/stretchr/testify/require"
)

const testCommunity types.CommunityID = "u0qj9a1b2c3d4"

func commit(t *testing.T, db *StateDB, st *State) {
	t.Helper()
	_, err := db.Update(st)
	require.NoError(t, err)
	_, err = db.SetState(st)
	require.NoError(t, err)
}

func TestStateReopen(t *testing.T) {
	dir := t.TempDir()
	db, err := NewStateDB(dir, cmtlog.NewNopLogger())
	require.NoError(t, err)

	st := db.NewState()
	st.SetChainId("democracy-test")
	st.SetHeight(1)
	require.NoError(t, st.SetProposalCount(3))
	require.NoError(t, st.SetTally(3, types.Tally{Turnout: 7, Ayes: 4}))
	require.NoError(t, st.AddCommunity(&types.Community{ID: testCommunity, Name: "Zurich", NominalIncome: 10}))
	pk := ed25519.GenPrivKey().PubKey().Bytes()
	acnt, err := st.IncreaseNonce(pk)
	require.NoError(t, err)
	commit(t, db, st)
	hash := db.Header().Hash
	require.NotEmpty(t, hash)
	require.NoError(t, db.Close())

	db, err = NewStateDB(dir, cmtlog.NewNopLogger())
	require.NoError(t, err)
	defer db.Close()
	header := db.Header()
	require.Equal(t, uint64(1), header.Height)
	require.Equal(t, "democracy-test", header.ChainId)
	require.Equal(t, hash, header.Hash)

	_, err = db.View(func(st *State) error {
		count, err := st.ProposalCount()
		require.NoError(t, err)
		require.Equal(t, uint64(3), count)
		tally, found, err := st.Tally(3)
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, types.Tally{Turnout: 7, Ayes: 4}, tally)
		c, err := st.Community(testCommunity)
		require.NoError(t, err)
		require.Equal(t, "Zurich", c.Name)
		return nil
	})
	require.NoError(t, err)

	got, height, err := db.GetAccountByAddress(acnt.ID())
	require.NoError(t, err)
	require.Equal(t, uint64(1), height)
	require.Equal(t, uint64(1), got.Nonce)
	require.Equal(t, acnt.Index, got.Index)

	next := db.NewState()
	require.Equal(t, uint64(2), next.BlockNumber())
}

func TestIteratePendingOverCommitted(t *testing.T) {
	db, err := NewMemStateDB(cmtlog.NewNopLogger())
	require.NoError(t, err)
	st := db.NewState()
	st.SetHeight(1)
	st.set("x/a", []byte("1"))
	st.set("x/b", []byte("2"))
	st.set("x/c", []byte("3"))
	st.set("y/a", []byte("4"))
	commit(t, db, st)

	st = db.NewState()
	st.remove("x/b")
	st.set("x/c", []byte("33"))
	st.set("x/0", []byte("0"))

	var keys, vals []string
	require.NoError(t, st.iterate("x/", func(key string, val []byte) error {
		keys = append(keys, key)
		vals = append(vals, string(val))
		return nil
	}))
	require.Equal(t, []string{"x/0", "x/a", "x/c"}, keys)
	require.Equal(t, []string{"0", "1", "33"}, vals)
}

func TestVerifiedCount(t *testing.T) {
	db, err := NewMemStateDB(cmtlog.NewNopLogger())
	require.NoError(t, err)
	st := db.NewState()

	steps := []struct {
		account types.AccountID
		rep     types.Reputation
		count   uint64
	}{
		{"A", types.ReputationVerifiedLinked, 1},
		{"B", types.ReputationVerifiedUnlinked, 2},
		{"B", types.ReputationVerifiedLinked, 2},
		{"C", types.ReputationUnverifiedReputable, 2},
		{"A", types.ReputationUnverified, 1},
		{"A", types.ReputationUnverified, 1},
		{"C", types.ReputationVerifiedUnlinked, 2},
	}
	for i, s := range steps {
		require.NoError(t, st.SetReputation(testCommunity, 4, s.account, s.rep))
		count, err := st.VerifiedCount(testCommunity, 4)
		require.NoError(t, err)
		require.Equal(t, s.count, count, "step %d", i)
	}

	rep, err := st.Reputation(testCommunity, 4, "A")
	require.NoError(t, err)
	require.Equal(t, types.ReputationUnverified, rep)
	count, err := st.VerifiedCount(testCommunity, 5)
	require.NoError(t, err)
	require.Zero(t, count)

	require.Error(t, st.SetReputation(testCommunity, 4, "D", types.Reputation(9)))
}

func TestCloneIsolation(t *testing.T) {
	db, err := NewMemStateDB(cmtlog.NewNopLogger())
	require.NoError(t, err)
	st := db.NewState()
	require.NoError(t, st.SetProposalCount(1))
	pk := ed25519.GenPrivKey().PubKey().Bytes()
	_, err = st.IncreaseNonce(pk)
	require.NoError(t, err)

	c := st.Clone()
	require.NoError(t, c.SetProposalCount(2))
	acnt, err := c.IncreaseNonce(pk)
	require.NoError(t, err)
	require.Equal(t, uint64(2), acnt.Nonce)

	count, err := st.ProposalCount()
	require.NoError(t, err)
	require.Equal(t, uint64(1), count)
	orig, err := st.FindAccountByID(AccountIDFromPubKey(pk))
	require.NoError(t, err)
	require.Equal(t, uint64(1), orig.Nonce)
}

func TestCommunities(t *testing.T) {
	db, err := NewMemStateDB(cmtlog.NewNopLogger())
	require.NoError(t, err)
	st := db.NewState()
	other := types.CommunityID("sr2yk00000000")
	require.NoError(t, st.AddCommunity(&types.Community{ID: other, Name: "Leu"}))
	require.NoError(t, st.AddCommunity(&types.Community{ID: testCommunity, Name: "Zurich"}))
	require.ErrorIs(t, st.AddCommunity(&types.Community{ID: testCommunity}), ErrCommunityAlreadyExists)
	require.Error(t, st.AddCommunity(&types.Community{ID: "bad"}))

	require.NoError(t, st.RemoveCommunity(other))
	require.ErrorIs(t, st.RemoveCommunity(other), ErrCommunityNoexists)

	cids, err := st.Communities()
	require.NoError(t, err)
	require.Equal(t, []types.CommunityID{testCommunity}, cids)
	known, err := st.KnownCommunities()
	require.NoError(t, err)
	require.Equal(t, []types.CommunityID{other, testCommunity}, known)

	require.ErrorIs(t, st.SetNominalIncome(other, 5), ErrCommunityNoexists)
	require.NoError(t, st.SetDemurrage(testCommunity, 5))
	c, err := st.Community(testCommunity)
	require.NoError(t, err)
	require.Equal(t, uint64(5), c.Demurrage)
}

func TestVerify(t *testing.T) {
	db, err := NewMemStateDB(cmtlog.NewNopLogger())
	require.NoError(t, err)
	st := db.NewState()
	st.SetChainId("democracy-test")
	priv := ed25519.GenPrivKey()

	sign := func(nonce uint64) *tx.GovTx {
		btx := &tx.GovTx{
			Version: tx.GovTxVersion1,
			Type:    tx.GovTxTypeUpdateProposalState,
			Nonce:   nonce,
			PubKey:  priv.PubKey().Bytes(),
			Tx:      &tx.UpdateProposalStateTx{Proposal: 1},
		}
		dat, err := btx.SigData([]byte("democracy-test"))
		require.NoError(t, err)
		sig, err := priv.Sign(dat)
		require.NoError(t, err)
		btx.Sig = [][]byte{sig}
		return btx
	}

	ok, err := st.Verify(sign(0), false)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = st.Verify(sign(1), false)
	require.ErrorIs(t, err, ErrTxNonceInvalid)
	ok, err = st.Verify(sign(1), true)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = st.IncreaseNonce(priv.PubKey().Bytes())
	require.NoError(t, err)
	ok, err = st.Verify(sign(1), false)
	require.NoError(t, err)
	require.True(t, ok)

	forged := sign(1)
	forged.Tx = &tx.UpdateProposalStateTx{Proposal: 2}
	_, err = st.Verify(forged, false)
	require.ErrorIs(t, err, ErrTxSigInvalid)
}
