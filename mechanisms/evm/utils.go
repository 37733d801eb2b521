package evm

import (
	"crypto/rand"
	"fmt"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

var addressPattern = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)

// IsValidAddress reports whether address is a 0x-prefixed, 20-byte hex address
func IsValidAddress(address string) bool {
	return addressPattern.MatchString(address)
}

// NormalizeAddress returns the EIP-55 checksummed form of address
func NormalizeAddress(address string) string {
	return common.HexToAddress(address).Hex()
}

// CreateNonce generates a random 32-byte EIP-3009 nonce
func CreateNonce() ([32]byte, error) {
	var nonce [32]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nonce, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return nonce, nil
}

// BytesToHex encodes b as a 0x-prefixed hex string
func BytesToHex(b []byte) string {
	return hexutil.Encode(b)
}

// HexToBytes decodes a hex string with or without the 0x prefix
func HexToBytes(s string) ([]byte, error) {
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		s = "0x" + s
	}
	b, err := hexutil.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex %q: %w", s, err)
	}
	return b, nil
}

// HexToBytes32 decodes a 32-byte hex value such as a nonce
func HexToBytes32(s string) ([32]byte, error) {
	var out [32]byte
	b, err := HexToBytes(s)
	if err != nil {
		return out, err
	}
	if len(b) != 32 {
		return out, fmt.Errorf("expected 32 bytes, got %d", len(b))
	}
	copy(out[:], b)
	return out, nil
}

// SplitSignature decomposes a 65-byte r || s || v signature. A recovery id of
// 0/1 is normalised to 27/28.
func SplitSignature(sig []byte) (Signature, error) {
	var out Signature
	if len(sig) != 65 {
		return out, fmt.Errorf("invalid signature length: %d", len(sig))
	}
	copy(out.R[:], sig[0:32])
	copy(out.S[:], sig[32:64])
	out.V = sig[64]
	if out.V < 27 {
		out.V += 27
	}
	if out.V != 27 && out.V != 28 {
		return out, fmt.Errorf("invalid signature recovery byte: %d", sig[64])
	}
	return out, nil
}
