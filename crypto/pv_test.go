package crypto

import (
	"path/filepath"
	"testing"

	"github.com/cometbft/cometbft/crypto/ed25519"
	"github.com/stretchr/testify/require"
)

func TestGenAndReadFilePV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key.json")
	pv, err := GenFilePV(path)
	require.NoError(t, err)

	_, err = GenFilePV(path)
	require.Error(t, err)

	loaded, err := ReadFilePV(path)
	require.NoError(t, err)
	require.Equal(t, pv.PublicKey(), loaded.PublicKey())
	require.Equal(t, pv.Address(), string(loaded.AccountID()))

	msg := []byte("democracy")
	sig, err := loaded.Sign(msg)
	require.NoError(t, err)
	require.True(t, ed25519.PubKey(pv.PublicKey()).VerifySignature(msg, sig))
}
