package evm

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
)

func testDomain() TypedDataDomain {
	return TypedDataDomain{
		Name:              "Wrapped Token",
		Version:           "1",
		ChainID:           big.NewInt(11155111),
		VerifyingContract: "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
	}
}

func testAuthorization(from string) TransferWithAuthorization {
	var nonce [32]byte
	nonce[31] = 1
	return TransferWithAuthorization{
		From:        from,
		To:          "0x9876543210987654321098765432109876543210",
		Value:       big.NewInt(12000000),
		ValidAfter:  1700000000,
		ValidBefore: 1700000900,
		Nonce:       nonce,
	}
}

func TestHashTransferWithAuthorization(t *testing.T) {
	auth := testAuthorization("0x1234567890123456789012345678901234567890")

	t.Run("Deterministic 32-byte hash", func(t *testing.T) {
		h1, err := HashTransferWithAuthorization(testDomain(), auth)
		if err != nil {
			t.Fatalf("hash failed: %v", err)
		}
		h2, _ := HashTransferWithAuthorization(testDomain(), auth)
		if len(h1) != 32 {
			t.Errorf("expected 32 bytes, got %d", len(h1))
		}
		if string(h1) != string(h2) {
			t.Error("same inputs should produce the same hash")
		}
	})

	t.Run("Chain and value change the hash", func(t *testing.T) {
		base, _ := HashTransferWithAuthorization(testDomain(), auth)

		otherChain := testDomain()
		otherChain.ChainID = big.NewInt(1)
		h, _ := HashTransferWithAuthorization(otherChain, auth)
		if string(h) == string(base) {
			t.Error("different chain id should produce a different hash")
		}

		otherValue := auth
		otherValue.Value = big.NewInt(12000001)
		h, _ = HashTransferWithAuthorization(testDomain(), otherValue)
		if string(h) == string(base) {
			t.Error("different value should produce a different hash")
		}
	})

	t.Run("Missing chain id", func(t *testing.T) {
		domain := testDomain()
		domain.ChainID = nil
		if _, err := HashTransferWithAuthorization(domain, auth); err == nil {
			t.Error("expected error without chain id")
		}
	})
}

func TestRecoverTransferSigner(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	from := crypto.PubkeyToAddress(key.PublicKey).Hex()
	auth := testAuthorization(from)

	digest, err := HashTransferWithAuthorization(testDomain(), auth)
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	sig, err := crypto.Sign(digest, key)
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}

	recovered, err := RecoverTransferSigner(testDomain(), auth, sig)
	if err != nil {
		t.Fatalf("recover failed: %v", err)
	}
	if recovered != from {
		t.Errorf("recovered %s, want %s", recovered, from)
	}

	// 27/28 form recovers the same signer
	sig[64] += 27
	ok, err := VerifyTransferSignature(testDomain(), auth, sig)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if !ok {
		t.Error("expected signature to verify")
	}

	tampered := auth
	tampered.Value = big.NewInt(1)
	ok, err = VerifyTransferSignature(testDomain(), tampered, sig)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if ok {
		t.Error("tampered authorization should not verify")
	}

	if _, err := RecoverTransferSigner(testDomain(), auth, sig[:64]); err == nil {
		t.Error("expected error for short signature")
	}
}

func TestTransferWithAuthorizationValidate(t *testing.T) {
	auth := testAuthorization("0x1234567890123456789012345678901234567890")
	if err := auth.Validate(); err != nil {
		t.Fatalf("expected valid authorization: %v", err)
	}

	bad := auth
	bad.To = "0x1234"
	if err := bad.Validate(); err == nil {
		t.Error("expected invalid recipient to fail")
	}

	bad = auth
	bad.Value = big.NewInt(0)
	if err := bad.Validate(); err == nil {
		t.Error("expected zero value to fail")
	}

	bad = auth
	bad.ValidBefore = bad.ValidAfter
	if err := bad.Validate(); err == nil {
		t.Error("expected empty validity window to fail")
	}
}
