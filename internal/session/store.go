package session

import "github.com/halcyontrade/halcyon-api/internal/crypto"

// SigningMaterial is the decrypted signing key for one account. Callers must
// not retain it across a lock; they re-read from the store on every use.
type SigningMaterial struct {
	AccountID  string
	PrivateKey []byte
}

// secretStore holds every decrypted secret for the current unlocked session.
// A store is built complete before it becomes visible and is swapped out
// whole on lock, so readers never observe a partial view.
type secretStore struct {
	key          []byte // derived vault key, kept for writes while unlocked
	signing      map[string]*SigningMaterial
	mnemonics    map[string][]byte
	apiKeys      map[string]string
	rpcOverrides map[string]string
}

func newSecretStore(key []byte) *secretStore {
	return &secretStore{
		key:          key,
		signing:      make(map[string]*SigningMaterial),
		mnemonics:    make(map[string][]byte),
		apiKeys:      make(map[string]string),
		rpcOverrides: make(map[string]string),
	}
}

// wipe overwrites every buffer the store holds and empties the maps.
func (st *secretStore) wipe() {
	crypto.Zero(st.key)
	for id, mat := range st.signing {
		crypto.Zero(mat.PrivateKey)
		delete(st.signing, id)
	}
	for id, words := range st.mnemonics {
		crypto.Zero(words)
		delete(st.mnemonics, id)
	}
	for id := range st.apiKeys {
		delete(st.apiKeys, id)
	}
	for id := range st.rpcOverrides {
		delete(st.rpcOverrides, id)
	}
}

func (st *secretStore) size() int {
	return len(st.signing) + len(st.mnemonics) + len(st.apiKeys) + len(st.rpcOverrides)
}
