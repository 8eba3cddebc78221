package crypto

import (
	"fmt"
	"os"

	"github.com/calehh/democracy-app/types"
	"github.com/cometbft/cometbft/crypto"
	cmtjson "github.com/cometbft/cometbft/libs/json"
	cmtos "github.com/cometbft/cometbft/libs/os"
	"github.com/cometbft/cometbft/privval"
)

// PV signs governance transactions with the key of a priv_validator_key.json
// file. Any CometBFT key file works, validator or not.
type PV struct {
	privateKey crypto.PrivKey
	publicKey  crypto.PubKey
}

func LoadFilePV(keyFilePath string) *PV {
	pv, err := ReadFilePV(keyFilePath)
	if err != nil {
		cmtos.Exit(err.Error())
	}
	return pv
}

func ReadFilePV(keyFilePath string) (*PV, error) {
	keyJSONBytes, err := os.ReadFile(keyFilePath)
	if err != nil {
		return nil, err
	}
	pvKey := privval.FilePVKey{}
	err = cmtjson.Unmarshal(keyJSONBytes, &pvKey)
	if err != nil {
		return nil, fmt.Errorf("error reading PrivValidator key from %v: %w", keyFilePath, err)
	}
	return &PV{
		privateKey: pvKey.PrivKey,
		publicKey:  pvKey.PubKey,
	}, nil
}

// GenFilePV writes a fresh ed25519 key to keyFilePath. Governance keys carry
// no signing state, so the state file stays in memory.
func GenFilePV(keyFilePath string) (*PV, error) {
	if cmtos.FileExists(keyFilePath) {
		return nil, fmt.Errorf("key file %v already exists", keyFilePath)
	}
	filePV := privval.GenFilePV(keyFilePath, "")
	filePV.Key.Save()
	return &PV{
		privateKey: filePV.Key.PrivKey,
		publicKey:  filePV.Key.PubKey,
	}, nil
}

func (k *PV) PublicKey() []byte {
	return k.publicKey.Bytes()
}

func (k *PV) Address() string {
	return k.publicKey.Address().String()
}

func (k *PV) AccountID() types.AccountID {
	return types.AccountID(k.Address())
}

func (k *PV) Sign(data []byte) ([]byte, error) {
	return k.privateKey.Sign(data)
}
