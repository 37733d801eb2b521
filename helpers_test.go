package relaypay_test

import (
	"context"
	"io"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/sirupsen/logrus"

	relaypay "github.com/reserve-vault/relaypay/go"
	"github.com/reserve-vault/relaypay/go/mechanisms/evm"
	evmsigner "github.com/reserve-vault/relaypay/go/signers/evm"
	"github.com/reserve-vault/relaypay/go/test/mocks/chain"
)

const (
	tokenAddress     = "0xd6806a129E91077cCdbe055ec48b3FE3cdc9Ab5A"
	reserveAddress   = "0x4920E3E1E7c4D13c01188CfC7723873eef6639Bc"
	vaultAddress     = "0x7695b38d2A3308Cf45BFfdD8c297015F82708787"
	recipientAddress = "0x9876543210987654321098765432109876543210"
)

var testContracts = evm.ContractSet{
	Token:   tokenAddress,
	Reserve: reserveAddress,
	Vault:   vaultAddress,
}

func units(v int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(v), big.NewInt(1000000))
}

func quietLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type fixture struct {
	chain  *chain.Client
	signer *evmsigner.ClientSigner
	owner  string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	signer := evmsigner.NewClientSigner(key)
	client := chain.NewClient(signer.Address())
	client.SetDomain(tokenAddress, evm.TypedDataDomain{
		Name:              "Wrapped Token",
		Version:           "1",
		ChainID:           evm.ChainIDSepolia,
		VerifyingContract: tokenAddress,
	})
	return &fixture{chain: client, signer: signer, owner: signer.Address()}
}

func (f *fixture) authorizationSigner(opts ...relaypay.Option) *relaypay.AuthorizationSigner {
	opts = append([]relaypay.Option{relaypay.WithLogger(quietLogger())}, opts...)
	return relaypay.NewAuthorizationSigner(f.chain, f.signer, tokenAddress, opts...)
}

func (f *fixture) allowanceEngine() *relaypay.AllowanceMintEngine {
	return relaypay.NewAllowanceMintEngine(f.chain, f.owner, testContracts, relaypay.WithLogger(quietLogger()))
}

// scriptedSigner is a relaypay.Signer returning a fixed error
type scriptedSigner struct {
	address string
	err     error
}

func (s *scriptedSigner) Address() string {
	return s.address
}

func (s *scriptedSigner) SignTypedData(ctx context.Context, domain evm.TypedDataDomain, types map[string][]evm.TypedDataField, primaryType string, message map[string]interface{}) ([]byte, error) {
	return nil, s.err
}

// pausingSigner holds its first SignTypedData call until release is closed
type pausingSigner struct {
	relaypay.Signer
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newPausingSigner(signer relaypay.Signer) *pausingSigner {
	return &pausingSigner{
		Signer:  signer,
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (s *pausingSigner) SignTypedData(ctx context.Context, domain evm.TypedDataDomain, types map[string][]evm.TypedDataField, primaryType string, message map[string]interface{}) ([]byte, error) {
	first := false
	s.once.Do(func() { first = true })
	if first {
		close(s.entered)
		<-s.release
	}
	return s.Signer.SignTypedData(ctx, domain, types, primaryType, message)
}

// stubBalance is a relaypay.BalanceSource with a fixed hint
type stubBalance struct {
	known     string
	refreshes int
}

func (b *stubBalance) KnownBalance() string {
	return b.known
}

func (b *stubBalance) Refresh(ctx context.Context) error {
	b.refreshes++
	return nil
}
