// signer.go implements EIP-712 signing of exchange orders.
//
// Every order is a typed-data message over the exchange's CTF Exchange
// contract domain. The maker field is always set to the signer's own
// address before hashing — this pipeline never signs on behalf of a
// counterparty or proxy wallet.
package exchange

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	ethmath "github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"sniper/internal/errs"
	"sniper/pkg/types"
)

// verifyingContract is the CTF Exchange contract address orders are signed
// against.
const verifyingContract = "0x4bFb41d5B3570DeFd03C39a9A4D8dE6Bd8B8982E"

// chainID is the Polygon mainnet chain this exchange operates on.
const chainID = 137

var orderTypedDataTypes = apitypes.Types{
	"EIP712Domain": {
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
		{Name: "chainId", Type: "uint256"},
		{Name: "verifyingContract", Type: "address"},
	},
	"Order": {
		{Name: "maker", Type: "address"},
		{Name: "taker", Type: "address"},
		{Name: "tokenId", Type: "uint256"},
		{Name: "makerAmount", Type: "uint256"},
		{Name: "takerAmount", Type: "uint256"},
		{Name: "side", Type: "uint8"},
		{Name: "feeRateBps", Type: "uint256"},
		{Name: "nonce", Type: "uint256"},
		{Name: "signer", Type: "address"},
		{Name: "expiration", Type: "uint256"},
		{Name: "salt", Type: "uint256"},
	},
}

var orderDomain = apitypes.TypedDataDomain{
	Name:              "Polymarket CTF Exchange",
	Version:           "1",
	ChainId:           (*ethmath.HexOrDecimal256)(big.NewInt(chainID)),
	VerifyingContract: verifyingContract,
}

// Signer signs orders on behalf of a single EOA.
type Signer struct {
	privateKeyHex string
	address       common.Address
	signFn        func(hash []byte) ([]byte, error)
}

// NewSigner creates a Signer from a hex-encoded private key (with or
// without a leading 0x).
func NewSigner(privateKeyHex string) (*Signer, error) {
	keyHex := privateKeyHex
	if len(keyHex) >= 2 && keyHex[:2] == "0x" {
		keyHex = keyHex[2:]
	}

	key, err := crypto.HexToECDSA(keyHex)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	address := crypto.PubkeyToAddress(key.PublicKey)

	return &Signer{
		address: address,
		signFn: func(hash []byte) ([]byte, error) {
			return crypto.Sign(hash, key)
		},
	}, nil
}

// Address returns the signer's Ethereum address.
func (s *Signer) Address() common.Address {
	return s.address
}

// SignOrder sets order.Signer and order.Maker to this signer's address,
// hashes the order per the exchange's EIP-712 domain, and returns the
// order with its Signature set to the 0x-prefixed hex signature.
func (s *Signer) SignOrder(order types.Order) (types.Order, error) {
	signerAddr := s.address.Hex()
	order.Signer = signerAddr
	order.Maker = signerAddr

	tokenID, ok := new(big.Int).SetString(order.TokenID, 10)
	if !ok {
		return order, fmt.Errorf("invalid token id: %q", order.TokenID)
	}

	taker := order.Taker
	if taker == "" {
		taker = "0x0000000000000000000000000000000000000000"
	}

	message := apitypes.TypedDataMessage{
		"maker":       order.Maker,
		"taker":       taker,
		"tokenId":     tokenID.String(),
		"makerAmount": order.MakerAmount.String(),
		"takerAmount": order.TakerAmount.String(),
		"side":        fmt.Sprintf("%d", order.Side),
		"feeRateBps":  fmt.Sprintf("%d", order.FeeRateBps),
		"nonce":       fmt.Sprintf("%d", order.Nonce),
		"signer":      order.Signer,
		"expiration":  fmt.Sprintf("%d", order.Expiration),
		"salt":        fmt.Sprintf("%d", order.Salt),
	}

	typedData := apitypes.TypedData{
		Types:       orderTypedDataTypes,
		PrimaryType: "Order",
		Domain:      orderDomain,
		Message:     message,
	}

	hash, _, err := apitypes.TypedDataAndHash(typedData)
	if err != nil {
		return order, &errs.SigningError{Err: fmt.Errorf("typed data hash: %w", err)}
	}

	sig, err := s.signFn(hash)
	if err != nil {
		return order, &errs.SigningError{Err: err}
	}
	if sig[64] < 27 {
		sig[64] += 27
	}

	order.Signature = "0x" + common.Bytes2Hex(sig)
	return order, nil
}
