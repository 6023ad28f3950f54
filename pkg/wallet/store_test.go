package wallet

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"pocketdex/pkg/types"
)

var testPassword = []byte("correct horse battery staple")

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "wallet.json"))
}

func TestGenerateReplacesExistingKey(t *testing.T) {
	store := newTestStore(t)

	first, err := store.Generate(types.ChainEVM, testPassword)
	if err != nil {
		t.Fatalf("first Generate: %v", err)
	}

	second, err := store.Generate(types.ChainEVM, testPassword)
	if err != nil {
		t.Fatalf("second Generate: %v", err)
	}

	if first == second {
		t.Error("regenerating produced the same address; the key was not replaced")
	}

	current, err := store.Address(types.ChainEVM, testPassword)
	if err != nil {
		t.Fatalf("Address: %v", err)
	}
	if current != second {
		t.Errorf("stored address = %s, want the replacement %s", current, second)
	}
}

func TestGenerateLeavesOtherChainUntouched(t *testing.T) {
	store := newTestStore(t)

	solAddr, err := store.Generate(types.ChainSolana, testPassword)
	if err != nil {
		t.Fatalf("Generate sol: %v", err)
	}

	if _, err := store.Generate(types.ChainEVM, testPassword); err != nil {
		t.Fatalf("Generate eth: %v", err)
	}
	if _, err := store.Generate(types.ChainEVM, testPassword); err != nil {
		t.Fatalf("regenerate eth: %v", err)
	}

	stillSol, err := store.Address(types.ChainSolana, testPassword)
	if err != nil {
		t.Fatalf("Address sol: %v", err)
	}
	if stillSol != solAddr {
		t.Errorf("sol address changed from %s to %s while regenerating eth", solAddr, stillSol)
	}
}

func TestSignersRoundTrip(t *testing.T) {
	store := newTestStore(t)

	ethAddr, err := store.Generate(types.ChainEVM, testPassword)
	if err != nil {
		t.Fatalf("Generate eth: %v", err)
	}
	solAddr, err := store.Generate(types.ChainSolana, testPassword)
	if err != nil {
		t.Fatalf("Generate sol: %v", err)
	}

	ethKey, err := store.EVMSigner(testPassword)
	if err != nil {
		t.Fatalf("EVMSigner: %v", err)
	}
	if got := ethcrypto.PubkeyToAddress(ethKey.PublicKey).Hex(); got != ethAddr {
		t.Errorf("eth signer address = %s, want %s", got, ethAddr)
	}

	solKey, err := store.SolanaSigner(testPassword)
	if err != nil {
		t.Fatalf("SolanaSigner: %v", err)
	}
	if solKey.PublicKey().String() != solAddr {
		t.Errorf("sol signer pubkey = %s, want %s", solKey.PublicKey(), solAddr)
	}
}

func TestSwitchChainRequiresExistingKey(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.Generate(types.ChainEVM, testPassword); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	err := store.SwitchChain(types.ChainSolana, testPassword)
	if !errors.Is(err, ErrNoWallet) {
		t.Fatalf("SwitchChain error = %v, want ErrNoWallet", err)
	}

	if _, err := store.Generate(types.ChainSolana, testPassword); err != nil {
		t.Fatalf("Generate sol: %v", err)
	}
	if err := store.SwitchChain(types.ChainSolana, testPassword); err != nil {
		t.Fatalf("SwitchChain: %v", err)
	}

	active, err := store.Active(testPassword)
	if err != nil {
		t.Fatalf("Active: %v", err)
	}
	if active.Chain != types.ChainSolana {
		t.Errorf("active chain = %s, want sol", active.Chain)
	}
}

func TestClearRemovesOnlyTheGivenChain(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.Generate(types.ChainEVM, testPassword); err != nil {
		t.Fatalf("Generate eth: %v", err)
	}
	solAddr, err := store.Generate(types.ChainSolana, testPassword)
	if err != nil {
		t.Fatalf("Generate sol: %v", err)
	}

	if err := store.Clear(types.ChainEVM, testPassword); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	if _, err := store.Address(types.ChainEVM, testPassword); !errors.Is(err, ErrNoWallet) {
		t.Errorf("eth Address error = %v, want ErrNoWallet", err)
	}

	stillSol, err := store.Address(types.ChainSolana, testPassword)
	if err != nil {
		t.Fatalf("Address sol: %v", err)
	}
	if stillSol != solAddr {
		t.Errorf("sol address = %s, want %s", stillSol, solAddr)
	}
}

func TestClearLastChainDeletesTheFile(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.Generate(types.ChainEVM, testPassword); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if err := store.Clear(types.ChainEVM, testPassword); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	if store.Exists() {
		t.Error("wallet file still exists after clearing the last chain")
	}
}

func TestConcurrentMutationsDoNotInterleave(t *testing.T) {
	if testing.Short() {
		t.Skip("key derivation is slow")
	}

	store := newTestStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.Generate(types.ChainEVM, testPassword); err != nil {
				t.Errorf("Generate: %v", err)
			}
		}()
	}
	wg.Wait()

	// Whatever order the goroutines ran in, exactly one key must survive
	if _, err := store.Address(types.ChainEVM, testPassword); err != nil {
		t.Fatalf("Address after concurrent generates: %v", err)
	}
}
