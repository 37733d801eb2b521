package cmd

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"

	relaypay "github.com/reserve-vault/relaypay/go"
	relayhttp "github.com/reserve-vault/relaypay/go/http"
	"github.com/reserve-vault/relaypay/go/internal/conf"
	"github.com/reserve-vault/relaypay/go/internal/observability"
	signerevm "github.com/reserve-vault/relaypay/go/signers/evm"
)

// app wires the engines from configuration
type app struct {
	config *conf.GlobalConfiguration
	logger *logrus.Entry
	rpc    *ethclient.Client
	signer *signerevm.ClientSigner
	chain  *signerevm.ChainClient
}

func newApp(ctx context.Context, config *conf.GlobalConfiguration) (*app, error) {
	logger, err := observability.ConfigureLogging(&config.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to configure logging: %w", err)
	}

	if config.Chain.RPCURL == "" {
		return nil, fmt.Errorf("RELAYPAY_CHAIN_RPC_URL is required")
	}
	if config.Wallet.PrivateKey == "" {
		return nil, fmt.Errorf("RELAYPAY_WALLET_PRIVATE_KEY is required")
	}

	signer, err := signerevm.NewClientSignerFromPrivateKey(config.Wallet.PrivateKey)
	if err != nil {
		return nil, err
	}

	rpc, err := ethclient.DialContext(ctx, config.Chain.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", config.Chain.RPCURL, err)
	}

	chain := signerevm.NewChainClient(rpc, signer, config.Chain.ChainID(),
		signerevm.WithPollInterval(config.Chain.PollInterval),
		signerevm.WithLogger(logger),
	)

	logger.WithFields(logrus.Fields{
		"network": config.Chain.Network(),
		"wallet":  signer.Address(),
	}).Debug("wallet connected")

	return &app{
		config: config,
		logger: logger,
		rpc:    rpc,
		signer: signer,
		chain:  chain,
	}, nil
}

func (a *app) close() {
	a.rpc.Close()
}

func (a *app) options() []relaypay.Option {
	return []relaypay.Option{
		relaypay.WithLogger(a.logger),
		relaypay.WithTransferFee(a.config.Relayer.Fee),
		relaypay.WithSettleRetry(a.config.Relayer.SettleAttempts, a.config.Relayer.SettleDelay),
	}
}

func (a *app) allowanceEngine() *relaypay.AllowanceMintEngine {
	return relaypay.NewAllowanceMintEngine(a.chain, a.signer.Address(), a.config.Chain.Contracts(), a.options()...)
}

func (a *app) redeemEngine() *relaypay.RedeemEngine {
	return relaypay.NewRedeemEngine(a.chain, a.signer.Address(), a.config.Chain.Contracts(), a.options()...)
}

func (a *app) transferEngine() *relaypay.TransferEngine {
	return relaypay.NewTransferEngine(a.chain, a.signer.Address(), a.config.Chain.TokenAddress, a.options()...)
}

func (a *app) balance(asset string) *relaypay.BalanceTracker {
	return relaypay.NewBalanceTracker(a.chain, asset, a.signer.Address(), a.options()...)
}

func (a *app) coordinator(balance relaypay.BalanceSource) *relaypay.SettlementCoordinator {
	config := &relayhttp.RelayerConfig{
		URL:     a.config.Relayer.URL,
		Timeout: a.config.Relayer.Timeout,
		Logger:  a.logger,
	}
	if a.config.Relayer.APIKey != "" {
		config.AuthProvider = relayhttp.NewStaticAuthProvider(a.config.Relayer.APIKey)
	}
	relayer := relayhttp.NewHTTPRelayerClient(config)
	signer := relaypay.NewAuthorizationSigner(a.chain, a.signer, a.config.Chain.TokenAddress, a.options()...)
	opts := append(a.options(), relaypay.WithBalanceSource(balance))
	return relaypay.NewSettlementCoordinator(signer, relayer, opts...)
}

// withApp loads the wiring or exits
func withApp(ctx context.Context, config *conf.GlobalConfiguration, fn func(a *app) error) {
	a, err := newApp(ctx, config)
	if err != nil {
		logrus.WithError(err).Fatal("unable to start")
	}
	defer a.close()

	if err := fn(a); err != nil {
		a.logger.WithField("code", relaypay.CodeOf(err)).Error(relaypay.MessageOf(err))
		logrus.Exit(1)
	}
}
