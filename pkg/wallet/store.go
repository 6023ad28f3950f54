package wallet

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"os"
	"sync"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/gagliardetto/solana-go"

	"pocketdex/pkg/storage"
	"pocketdex/pkg/types"
)

// ErrNoWallet is returned when an operation needs a key that has not been
// generated for the requested chain
var ErrNoWallet = errors.New("no wallet for chain")

// chainKey is one chain's key material inside the wallet file
type chainKey struct {
	PrivateKey string `json:"private_key"` // hex for EVM, base58 for Solana
	Address    string `json:"address"`
}

// walletData is the decrypted wallet file contents
type walletData struct {
	ActiveChain types.Chain               `json:"active_chain"`
	Keys        map[types.Chain]*chainKey `json:"keys"`
}

// Entry is the public view of one chain's wallet
type Entry struct {
	Chain   types.Chain
	Address string
}

// Store manages the encrypted local wallet file. At most one keypair exists
// per chain; generating a new one replaces the old, and the other chain's
// key is left untouched. All mutations are serialized through a single
// mutex, so concurrent generate/clear/switch calls cannot interleave their
// read-modify-write cycles.
type Store struct {
	mu   sync.Mutex
	file *storage.SecureFile
}

// NewStore creates a wallet store backed by an encrypted file at path
func NewStore(path string) *Store {
	return &Store{file: storage.NewSecureFile(path)}
}

// Path returns the wallet file path
func (s *Store) Path() string {
	return s.file.Path()
}

// Exists reports whether a wallet file is present
func (s *Store) Exists() bool {
	return s.file.Exists()
}

func (s *Store) load(password []byte) (*walletData, error) {
	data := &walletData{Keys: make(map[types.Chain]*chainKey)}
	err := s.file.Load(data, password)
	if err != nil {
		if os.IsNotExist(err) {
			return &walletData{Keys: make(map[types.Chain]*chainKey)}, nil
		}
		return nil, err
	}
	if data.Keys == nil {
		data.Keys = make(map[types.Chain]*chainKey)
	}
	return data, nil
}

// Generate creates a fresh keypair for the given chain and persists it.
// Any existing key for that chain is replaced and unrecoverable afterwards;
// the other chain's key is preserved as-is. The new address is returned.
func (s *Store) Generate(chain types.Chain, password []byte) (string, error) {
	if !chain.Valid() {
		return "", fmt.Errorf("unsupported chain %q", chain)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load(password)
	if err != nil {
		return "", err
	}

	key, err := newChainKey(chain)
	if err != nil {
		return "", err
	}

	data.Keys[chain] = key
	if data.ActiveChain == "" {
		data.ActiveChain = chain
	}

	if err := s.file.Save(data, password); err != nil {
		return "", err
	}

	return key.Address, nil
}

func newChainKey(chain types.Chain) (*chainKey, error) {
	switch chain {
	case types.ChainEVM:
		priv, err := ethcrypto.GenerateKey()
		if err != nil {
			return nil, fmt.Errorf("failed to generate key: %w", err)
		}
		return &chainKey{
			PrivateKey: fmt.Sprintf("%x", ethcrypto.FromECDSA(priv)),
			Address:    ethcrypto.PubkeyToAddress(priv.PublicKey).Hex(),
		}, nil
	case types.ChainSolana:
		w := solana.NewWallet()
		return &chainKey{
			PrivateKey: w.PrivateKey.String(),
			Address:    w.PublicKey().String(),
		}, nil
	default:
		return nil, fmt.Errorf("unsupported chain %q", chain)
	}
}

// Clear removes the key for one chain. Clearing a chain that has no key is
// a no-op. When the cleared chain was active, the active chain moves to the
// remaining one, or empties if none remain.
func (s *Store) Clear(chain types.Chain, password []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load(password)
	if err != nil {
		return err
	}

	delete(data.Keys, chain)

	if data.ActiveChain == chain {
		data.ActiveChain = ""
		for c := range data.Keys {
			data.ActiveChain = c
			break
		}
	}

	if len(data.Keys) == 0 {
		return s.file.Delete()
	}

	return s.file.Save(data, password)
}

// SwitchChain sets the active chain. The target chain must already have a
// generated key.
func (s *Store) SwitchChain(chain types.Chain, password []byte) error {
	if !chain.Valid() {
		return fmt.Errorf("unsupported chain %q", chain)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load(password)
	if err != nil {
		return err
	}

	if _, ok := data.Keys[chain]; !ok {
		return fmt.Errorf("%w %q: generate one first", ErrNoWallet, chain)
	}

	data.ActiveChain = chain
	return s.file.Save(data, password)
}

// Active returns the active chain's entry
func (s *Store) Active(password []byte) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load(password)
	if err != nil {
		return nil, err
	}

	key, ok := data.Keys[data.ActiveChain]
	if !ok {
		return nil, fmt.Errorf("%w: no active wallet", ErrNoWallet)
	}

	return &Entry{Chain: data.ActiveChain, Address: key.Address}, nil
}

// Entries returns all generated wallets
func (s *Store) Entries(password []byte) ([]*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load(password)
	if err != nil {
		return nil, err
	}

	entries := make([]*Entry, 0, len(data.Keys))
	for _, chain := range []types.Chain{types.ChainEVM, types.ChainSolana} {
		if key, ok := data.Keys[chain]; ok {
			entries = append(entries, &Entry{Chain: chain, Address: key.Address})
		}
	}
	return entries, nil
}

// Address returns the address for one chain without exposing key material
func (s *Store) Address(chain types.Chain, password []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load(password)
	if err != nil {
		return "", err
	}

	key, ok := data.Keys[chain]
	if !ok {
		return "", fmt.Errorf("%w %q", ErrNoWallet, chain)
	}
	return key.Address, nil
}

// EVMSigner reconstructs the EVM private key for signing
func (s *Store) EVMSigner(password []byte) (*ecdsa.PrivateKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load(password)
	if err != nil {
		return nil, err
	}

	key, ok := data.Keys[types.ChainEVM]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrNoWallet, types.ChainEVM)
	}

	priv, err := ethcrypto.HexToECDSA(key.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	return priv, nil
}

// SolanaSigner reconstructs the Solana private key for signing
func (s *Store) SolanaSigner(password []byte) (solana.PrivateKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load(password)
	if err != nil {
		return nil, err
	}

	key, ok := data.Keys[types.ChainSolana]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrNoWallet, types.ChainSolana)
	}

	priv, err := solana.PrivateKeyFromBase58(key.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	return priv, nil
}
