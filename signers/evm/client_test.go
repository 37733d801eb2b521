package evm

import (
	"context"
	"math/big"
	"testing"

	relayevm "github.com/reserve-vault/relaypay/go/mechanisms/evm"
)

const (
	testPrivateKey = "0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
	testAddress    = "0x2c7536E3605D9C16a7a3D7b1898e529396a65c23"
)

func TestNewClientSignerFromPrivateKey(t *testing.T) {
	signer, err := NewClientSignerFromPrivateKey(testPrivateKey)
	if err != nil {
		t.Fatalf("Failed to create signer: %v", err)
	}
	if signer.Address() != testAddress {
		t.Errorf("Expected address %s, got %s", testAddress, signer.Address())
	}

	// prefix is optional
	signer, err = NewClientSignerFromPrivateKey(testPrivateKey[2:])
	if err != nil {
		t.Fatalf("Failed to create signer without prefix: %v", err)
	}
	if signer.Address() != testAddress {
		t.Errorf("Expected address %s, got %s", testAddress, signer.Address())
	}

	if _, err := NewClientSignerFromPrivateKey("0x1234"); err == nil {
		t.Error("Expected error for short key")
	}
}

func TestClientSignerSignTypedData(t *testing.T) {
	signer, err := NewClientSignerFromPrivateKey(testPrivateKey)
	if err != nil {
		t.Fatalf("Failed to create signer: %v", err)
	}

	domain := relayevm.TypedDataDomain{
		Name:              "Wrapped Token",
		Version:           "1",
		ChainID:           big.NewInt(11155111),
		VerifyingContract: "0xd6806a129E91077cCdbe055ec48b3FE3cdc9Ab5A",
	}
	nonce, _ := relayevm.CreateNonce()
	auth := relayevm.TransferWithAuthorization{
		From:        signer.Address(),
		To:          "0x9876543210987654321098765432109876543210",
		Value:       big.NewInt(1000000),
		ValidAfter:  1700000000,
		ValidBefore: 1700000900,
		Nonce:       nonce,
	}

	sig, err := signer.SignTypedData(
		context.Background(),
		domain,
		relayevm.GetTransferWithAuthorizationTypes(),
		relayevm.PrimaryTypeTransferWithAuthorization,
		auth.TypedMessage(),
	)
	if err != nil {
		t.Fatalf("Failed to sign: %v", err)
	}
	if len(sig) != 65 {
		t.Fatalf("Expected 65-byte signature, got %d", len(sig))
	}
	if sig[64] != 27 && sig[64] != 28 {
		t.Errorf("Expected v in 27/28 form, got %d", sig[64])
	}

	recovered, err := relayevm.RecoverTransferSigner(domain, auth, sig)
	if err != nil {
		t.Fatalf("Failed to recover: %v", err)
	}
	if recovered != testAddress {
		t.Errorf("Expected %s to be recovered, got %s", testAddress, recovered)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := signer.SignTypedData(ctx, domain, relayevm.GetTransferWithAuthorizationTypes(),
		relayevm.PrimaryTypeTransferWithAuthorization, auth.TypedMessage()); err == nil {
		t.Error("Expected error for cancelled context")
	}
}
