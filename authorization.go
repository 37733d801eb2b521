package relaypay

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/reserve-vault/relaypay/go/mechanisms/evm"
)

// AuthorizationSigner builds and signs EIP-3009 transfer authorizations for
// the wrapped token. It never submits anything on-chain.
type AuthorizationSigner struct {
	chain  ChainClient
	signer Signer
	token  string
	logger logrus.FieldLogger
	now    func() time.Time

	mu   sync.Mutex
	last *TransferAuthorization
	// epoch advances on every clear; a signing call that started in an
	// earlier epoch does not record its result
	epoch uint64
}

// NewAuthorizationSigner creates a signer for authorizations over token
func NewAuthorizationSigner(chain ChainClient, signer Signer, token string, opts ...Option) *AuthorizationSigner {
	o := applyOptions(opts)
	return &AuthorizationSigner{
		chain:  chain,
		signer: signer,
		token:  token,
		logger: o.logger.WithField("component", "authorization"),
		now:    o.now,
	}
}

// LastAuthorization returns the most recently produced authorization, or nil
func (s *AuthorizationSigner) LastAuthorization() *TransferAuthorization {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// ClearLastAuthorization discards the stored authorization. Signing calls
// already in progress will not store theirs.
func (s *AuthorizationSigner) ClearLastAuthorization() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = nil
	s.epoch++
}

// SignTransferAuthorization signs a single-use authorization moving
// amount+fee from the signer to recipient. The fee is folded into the signed
// value. An empty fee means no fee; an empty knownBalance skips the balance check.
func (s *AuthorizationSigner) SignTransferAuthorization(ctx context.Context, recipient, amount, fee, knownBalance string) (*TransferAuthorization, error) {
	s.mu.Lock()
	epoch := s.epoch
	s.mu.Unlock()

	if !evm.IsValidAddress(recipient) {
		return nil, NewProtocolError(ErrCodeInvalidAddress, "please enter a valid recipient address", nil)
	}
	d, err := parseAmount(amount)
	if err != nil {
		return nil, err
	}
	feeAmount := decimal.Zero
	if fee != "" {
		feeAmount, err = evm.ParseDecimal(fee)
		if err != nil {
			return nil, NewProtocolError(ErrCodeInvalidInput, "invalid transfer fee", err)
		}
	}
	total := d.Add(feeAmount)

	balance, hasBalance, err := parseBalanceHint(knownBalance)
	if err != nil {
		return nil, err
	}
	if hasBalance && total.GreaterThan(balance) {
		return nil, &ProtocolError{
			Code:    ErrCodeInsufficientBalance,
			Message: "insufficient balance: the transfer requires " + total.String() + " including a fee of " + feeAmount.String(),
			Details: map[string]interface{}{
				"amount":  d.String(),
				"fee":     feeAmount.String(),
				"balance": balance.String(),
			},
		}
	}

	if s.chain == nil {
		return nil, notReady("chain client")
	}
	if s.signer == nil || !evm.IsValidAddress(s.signer.Address()) {
		return nil, notReady("wallet")
	}
	if !evm.IsValidAddress(s.token) {
		return nil, notReady("token contract")
	}

	log := s.logger.WithFields(logrus.Fields{
		"recipient": recipient,
		"amount":    d.String(),
		"fee":       feeAmount.String(),
	})

	decimals := resolvePrecision(ctx, s.chain, s.token, log)
	value := evm.RoundToSmallestUnit(total, decimals)

	nonce, err := evm.CreateNonce()
	if err != nil {
		return nil, NewProtocolError(ErrCodeSigningFailed, "failed to generate nonce", err)
	}

	validAfter := s.now().Unix()
	validBefore := validAfter + evm.AuthorizationValidity

	domain, err := s.chain.DomainParams(ctx, s.token)
	if err != nil {
		log.WithError(err).Error("failed to read token domain")
		return nil, NewProtocolError(ErrCodeNotReady, "token contract is not available", err)
	}

	auth := evm.TransferWithAuthorization{
		From:        s.signer.Address(),
		To:          recipient,
		Value:       value,
		ValidAfter:  validAfter,
		ValidBefore: validBefore,
		Nonce:       nonce,
	}

	sigBytes, err := s.signer.SignTypedData(
		ctx,
		domain,
		evm.GetTransferWithAuthorizationTypes(),
		evm.PrimaryTypeTransferWithAuthorization,
		auth.TypedMessage(),
	)
	if err != nil {
		log.WithError(err).Warn("signing failed")
		return nil, WrapSignerError(err)
	}

	sig, err := evm.SplitSignature(sigBytes)
	if err != nil {
		return nil, NewProtocolError(ErrCodeSigningFailed, "signer returned a malformed signature", err)
	}

	result := &TransferAuthorization{
		Domain:      domain,
		From:        evm.NormalizeAddress(auth.From),
		To:          evm.NormalizeAddress(auth.To),
		Value:       value,
		ValidAfter:  validAfter,
		ValidBefore: validBefore,
		Nonce:       evm.BytesToHex(nonce[:]),
		Signature:   evm.BytesToHex(sig.Bytes()),
		V:           sig.V,
		R:           evm.BytesToHex(sig.R[:]),
		S:           evm.BytesToHex(sig.S[:]),
	}

	s.mu.Lock()
	if s.epoch == epoch {
		s.last = result
	}
	s.mu.Unlock()

	log.WithField("value", value.String()).Info("transfer authorization signed")
	return result, nil
}
