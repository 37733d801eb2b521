package relaypay

import (
	"context"
	"math/big"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/reserve-vault/relaypay/go/mechanisms/evm"
)

// ApprovalState is the engine's local record of what it last approved.
// It is either unapproved or approved for exactly one amount.
type ApprovalState struct {
	approved bool
	amount   decimal.Decimal
}

// Unapproved returns the empty approval state
func Unapproved() ApprovalState {
	return ApprovalState{}
}

// ApprovedFor returns the approval state for amount
func ApprovedFor(amount decimal.Decimal) ApprovalState {
	return ApprovalState{approved: true, amount: amount}
}

// IsApproved reports whether any amount is approved
func (a ApprovalState) IsApproved() bool {
	return a.approved
}

// Amount returns the approved amount; ok is false when unapproved
func (a ApprovalState) Amount() (amount decimal.Decimal, ok bool) {
	return a.amount, a.approved
}

// Covers reports whether the state is approved for exactly amount
func (a ApprovalState) Covers(amount decimal.Decimal) bool {
	return a.approved && a.amount.Equal(amount)
}

func (a ApprovalState) String() string {
	if !a.approved {
		return "unapproved"
	}
	return "approvedFor(" + a.amount.String() + ")"
}

// AllowanceMintEngine grants the vault an allowance on the reserve asset and
// then mints the wrapped token against it.
type AllowanceMintEngine struct {
	chain     ChainClient
	owner     string
	contracts evm.ContractSet
	logger    logrus.FieldLogger

	mu       sync.Mutex
	approval ApprovalState
}

// NewAllowanceMintEngine creates an engine acting for owner against contracts
func NewAllowanceMintEngine(chain ChainClient, owner string, contracts evm.ContractSet, opts ...Option) *AllowanceMintEngine {
	o := applyOptions(opts)
	return &AllowanceMintEngine{
		chain:     chain,
		owner:     owner,
		contracts: contracts,
		logger:    o.logger.WithField("component", "allowance"),
	}
}

// Approval returns the current approval state
func (e *AllowanceMintEngine) Approval() ApprovalState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.approval
}

// Reset clears the approval state
func (e *AllowanceMintEngine) Reset() {
	e.setApproval(Unapproved())
}

func (e *AllowanceMintEngine) setApproval(state ApprovalState) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.approval = state
}

// Approve makes sure the vault may spend amount of the owner's reserve asset.
// An existing allowance that already covers amount is reused without a
// transaction; a smaller non-zero allowance is first reset to zero.
func (e *AllowanceMintEngine) Approve(ctx context.Context, amount string, knownBalance string) error {
	d, err := parseAmount(amount)
	if err != nil {
		return err
	}
	balance, hasBalance, err := parseBalanceHint(knownBalance)
	if err != nil {
		return err
	}
	if hasBalance && d.GreaterThan(balance) {
		return NewProtocolError(ErrCodeInvalidInput, "amount exceeds your balance", nil)
	}
	if err := e.ready(); err != nil {
		return err
	}

	log := e.logger.WithField("amount", d.String())

	decimals := resolvePrecision(ctx, e.chain, e.contracts.Reserve, log)
	value, err := toSmallestUnit(d, decimals)
	if err != nil {
		return err
	}

	current, err := e.readAllowance(ctx)
	if err != nil {
		return err
	}
	if current.Cmp(value) >= 0 {
		log.WithField("allowance", current.String()).Info("existing allowance is sufficient")
		e.setApproval(ApprovedFor(d))
		return nil
	}

	if current.Sign() > 0 {
		log.WithField("allowance", current.String()).Info("resetting existing allowance to zero")
		if _, err := submitAndConfirm(ctx, e.chain, e.approveCall(big.NewInt(0)), evm.ResetApprovalConfirmations, log); err != nil {
			return err
		}

		after, err := e.readAllowance(ctx)
		if err != nil {
			return err
		}
		if after.Sign() != 0 {
			log.WithField("allowance", after.String()).Warn("allowance changed after reset")
			return NewProtocolError(ErrCodeAllowanceRace, "allowance changed while resetting approval, please try again", nil)
		}
	}

	if _, err := submitAndConfirm(ctx, e.chain, e.approveCall(value), evm.ApprovalConfirmations, log); err != nil {
		return err
	}

	e.setApproval(ApprovedFor(d))
	log.Info("approval granted")
	return nil
}

// Mint mints amount of the wrapped token. The engine must be approved for
// exactly amount; the approval is consumed on success.
func (e *AllowanceMintEngine) Mint(ctx context.Context, amount string) error {
	d, err := parseAmount(amount)
	if err != nil {
		return err
	}

	approval := e.Approval()
	if !approval.IsApproved() {
		return NewProtocolError(ErrCodeNotApproved, "please approve the amount before minting", nil)
	}
	if !approval.Covers(d) {
		e.Reset()
		return &ProtocolError{
			Code:    ErrCodeAmountMismatch,
			Message: "amount changed since approval, please approve again",
			Details: map[string]interface{}{
				"approved":  approval.amount.String(),
				"requested": d.String(),
			},
		}
	}
	if err := e.ready(); err != nil {
		return err
	}

	log := e.logger.WithField("amount", d.String())

	decimals := resolvePrecision(ctx, e.chain, e.contracts.Reserve, log)
	value, err := toSmallestUnit(d, decimals)
	if err != nil {
		return err
	}

	current, err := e.readAllowance(ctx)
	if err != nil {
		return err
	}
	if current.Cmp(value) < 0 {
		e.Reset()
		log.WithField("allowance", current.String()).Warn("allowance dropped below approved amount")
		return NewProtocolError(ErrCodeAllowanceRace, "allowance is no longer sufficient, please approve again", nil)
	}

	call := ContractCall{
		Contract: e.contracts.Vault,
		ABI:      evm.VaultABI,
		Method:   evm.FunctionMint,
		Args:     []interface{}{value},
	}
	if _, err := submitAndConfirm(ctx, e.chain, call, evm.MintConfirmations, log); err != nil {
		return err
	}

	e.Reset()
	log.Info("mint confirmed")
	return nil
}

func (e *AllowanceMintEngine) ready() error {
	if e.chain == nil {
		return notReady("chain client")
	}
	if !evm.IsValidAddress(e.owner) {
		return notReady("wallet")
	}
	if !evm.IsValidAddress(e.contracts.Reserve) || !evm.IsValidAddress(e.contracts.Vault) {
		return notReady("contract")
	}
	return nil
}

func (e *AllowanceMintEngine) readAllowance(ctx context.Context) (*big.Int, error) {
	allowance, err := e.chain.Allowance(ctx, e.contracts.Reserve, e.owner, e.contracts.Vault)
	if err != nil {
		e.logger.WithError(err).Error("failed to read allowance")
		return nil, chainFailure(err, "failed to read allowance")
	}
	if allowance == nil {
		return new(big.Int), nil
	}
	return allowance, nil
}

func (e *AllowanceMintEngine) approveCall(value *big.Int) ContractCall {
	return ContractCall{
		Contract: e.contracts.Reserve,
		ABI:      evm.ERC20ABI,
		Method:   evm.FunctionApprove,
		Args:     []interface{}{e.contracts.Vault, value},
	}
}
