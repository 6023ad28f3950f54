package chain

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// fakeBackend scripts the RPC surface
type fakeBackend struct {
	callResult     []byte
	receipt        *types.Receipt
	receiptErr     error
	receiptAfter   int
	receiptQueries int

	sentTx *types.Transaction
}

func (f *fakeBackend) CallContract(_ context.Context, _ ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	return f.callResult, nil
}

func (f *fakeBackend) BalanceAt(_ context.Context, _ common.Address, _ *big.Int) (*big.Int, error) {
	return big.NewInt(1e18), nil
}

func (f *fakeBackend) EstimateGas(_ context.Context, _ ethereum.CallMsg) (uint64, error) {
	return 21000, nil
}

func (f *fakeBackend) SuggestGasPrice(_ context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (f *fakeBackend) PendingNonceAt(_ context.Context, _ common.Address) (uint64, error) {
	return 7, nil
}

func (f *fakeBackend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	f.sentTx = tx
	return nil
}

func (f *fakeBackend) TransactionReceipt(_ context.Context, _ common.Hash) (*types.Receipt, error) {
	f.receiptQueries++
	if f.receiptErr != nil {
		return nil, f.receiptErr
	}
	if f.receiptQueries <= f.receiptAfter {
		return nil, ethereum.NotFound
	}
	return f.receipt, nil
}

func newTestEVMClient(t *testing.T, backend Backend) *EVMClient {
	t.Helper()
	client, err := NewEVMClient(backend, 1, 200*time.Millisecond, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("NewEVMClient: %v", err)
	}
	return client
}

func TestSignAndSendUsesPendingNonceAndChainID(t *testing.T) {
	backend := &fakeBackend{}
	client := newTestEVMClient(t, backend)

	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	to := common.HexToAddress("0x2222222222222222222222222222222222222222")
	hash, err := client.SignAndSend(context.Background(), key, to, nil, 21000, big.NewInt(1_000_000_000), nil)
	if err != nil {
		t.Fatalf("SignAndSend: %v", err)
	}

	if backend.sentTx == nil {
		t.Fatal("no transaction sent")
	}
	if backend.sentTx.Nonce() != 7 {
		t.Errorf("nonce = %d, want the pending nonce 7", backend.sentTx.Nonce())
	}
	if backend.sentTx.Hash() != hash {
		t.Errorf("returned hash %s does not match the sent transaction", hash.Hex())
	}

	sender, err := types.Sender(types.NewEIP155Signer(big.NewInt(1)), backend.sentTx)
	if err != nil {
		t.Fatalf("recover sender: %v", err)
	}
	if sender != crypto.PubkeyToAddress(key.PublicKey) {
		t.Errorf("recovered sender %s, want the key's address", sender.Hex())
	}
}

func TestWaitMinedToleratesNotFoundThenReturnsReceipt(t *testing.T) {
	backend := &fakeBackend{
		receipt:      &types.Receipt{Status: types.ReceiptStatusSuccessful},
		receiptAfter: 3,
	}
	client := newTestEVMClient(t, backend)

	receipt, err := client.WaitMined(context.Background(), common.HexToHash("0x1"))
	if err != nil {
		t.Fatalf("WaitMined: %v", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		t.Errorf("status = %d, want success", receipt.Status)
	}
	if backend.receiptQueries < 4 {
		t.Errorf("polled %d times, want the not-found phase retried", backend.receiptQueries)
	}
}

func TestWaitMinedTimesOut(t *testing.T) {
	backend := &fakeBackend{receiptAfter: 1 << 30}
	client := newTestEVMClient(t, backend)

	_, err := client.WaitMined(context.Background(), common.HexToHash("0x1"))
	if !errors.Is(err, ErrConfirmTimeout) {
		t.Fatalf("WaitMined error = %v, want ErrConfirmTimeout", err)
	}
}

func TestWaitMinedSurfacesHardErrors(t *testing.T) {
	backend := &fakeBackend{receiptErr: errors.New("connection reset")}
	client := newTestEVMClient(t, backend)

	_, err := client.WaitMined(context.Background(), common.HexToHash("0x1"))
	if err == nil || errors.Is(err, ErrConfirmTimeout) {
		t.Fatalf("WaitMined error = %v, want the RPC failure surfaced immediately", err)
	}
}

func TestAllowanceDecodesContractResult(t *testing.T) {
	backend := &fakeBackend{callResult: common.LeftPadBytes(big.NewInt(123456).Bytes(), 32)}
	client := newTestEVMClient(t, backend)

	allowance, err := client.Allowance(context.Background(),
		common.HexToAddress("0x3"), common.HexToAddress("0x4"), common.HexToAddress("0x5"))
	if err != nil {
		t.Fatalf("Allowance: %v", err)
	}
	if allowance.Cmp(big.NewInt(123456)) != 0 {
		t.Errorf("allowance = %s, want 123456", allowance)
	}
}
