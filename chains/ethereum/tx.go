package ethereum

import (
	"context"
	"math/big"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/params"

	"github.com/datachainlab/crossdomain-relayer/core"
	"github.com/datachainlab/crossdomain-relayer/log"
)

const (
	// extra gas on top of the message's own gas limit to cover the
	// messenger's relay bookkeeping
	relayGasOverhead = 200_000

	receiptPollInterval = 500 * time.Millisecond
	receiptWaitTimeout  = 30 * time.Second
)

// target balance kept on the relay sender in the drill environment
var relaySenderBalance = new(big.Int).Mul(big.NewInt(10_000), big.NewInt(params.Ether))

// SetupForRelay prepares the privileged relay sender: the account is
// impersonated and topped up through the test platform's dev RPC namespace.
// A production deployment would hold a funded signing key instead.
func (c *Chain) SetupForRelay(ctx context.Context) error {
	if c.relaySender == (common.Address{}) {
		return errors.New("relay sender is not configured")
	}
	if err := c.ImpersonateAccount(ctx, c.relaySender); err != nil {
		return err
	}
	if err := c.SetBalance(ctx, c.relaySender, relaySenderBalance); err != nil {
		return err
	}
	log.GetLogger().WithModule("chains.ethereum").Info("relay sender ready",
		"chain_id", c.ChainID(),
		"sender", c.relaySender,
	)
	return nil
}

// ImpersonateAccount enables sending transactions from the given account
// without its private key. Available on anvil and hardhat nodes only.
func (c *Chain) ImpersonateAccount(ctx context.Context, account common.Address) error {
	return c.devCall(ctx, []string{"anvil_impersonateAccount", "hardhat_impersonateAccount"}, account)
}

// SetBalance sets the native-currency balance of the account directly.
// Available on anvil and hardhat nodes only.
func (c *Chain) SetBalance(ctx context.Context, account common.Address, amount *big.Int) error {
	return c.devCall(ctx, []string{"anvil_setBalance", "hardhat_setBalance"}, account, hexutil.EncodeBig(amount))
}

// devCall tries each method name in order; node implementations expose the
// same capability under different namespaces.
func (c *Chain) devCall(ctx context.Context, methods []string, args ...interface{}) error {
	var lastErr error
	for _, method := range methods {
		callCtx, cancel := c.callCtx(ctx)
		err := c.rpcClient.CallContext(callCtx, nil, method, args...)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return errors.Wrapf(lastErr, "dev RPC call failed on chain %s (tried %v)", c.ChainID(), methods)
}

// RelayMessage submits a relayMessage transaction for the message from the
// impersonated relay sender and waits for its inclusion receipt. A reverted
// transaction is an error; the caller decides whether to retry.
func (c *Chain) RelayMessage(ctx context.Context, msg *core.Message) error {
	calldata, err := messengerABI.Pack("relayMessage",
		msg.Nonce, msg.Sender, msg.Target, msg.Value, msg.GasLimit, msg.Data)
	if err != nil {
		return errors.Wrap(err, "failed to pack relayMessage calldata")
	}

	sendArgs := map[string]interface{}{
		"from": c.relaySender,
		"to":   c.messenger,
		"gas":  hexutil.EncodeUint64(msg.GasLimit.Uint64() + relayGasOverhead),
		"data": hexutil.Encode(calldata),
	}
	if msg.Value != nil && msg.Value.Sign() > 0 {
		sendArgs["value"] = hexutil.EncodeBig(msg.Value)
	}

	var txHash common.Hash
	callCtx, cancel := c.callCtx(ctx)
	err = c.rpcClient.CallContext(callCtx, &txHash, "eth_sendTransaction", sendArgs)
	cancel()
	if err != nil {
		return errors.Wrapf(err, "failed to submit relay transaction on chain %s", c.ChainID())
	}

	receipt, err := c.waitMined(ctx, txHash)
	if err != nil {
		return err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return errors.Newf("relay transaction %s reverted on chain %s", txHash, c.ChainID())
	}
	return nil
}

func (c *Chain) waitMined(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, receiptWaitTimeout)
	defer cancel()
	for {
		receipt, err := c.client.TransactionReceipt(ctx, txHash)
		if err == nil {
			return receipt, nil
		}
		select {
		case <-ctx.Done():
			return nil, errors.Wrapf(ctx.Err(), "timed out waiting for receipt of %s on chain %s", txHash, c.ChainID())
		case <-time.After(receiptPollInterval):
		}
	}
}
