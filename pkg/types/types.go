// Package types defines shared data structures used across all packages.
//
// This package is the common vocabulary for the pipeline — market metadata,
// price/book updates, and the on-chain order format. It has no dependencies
// on internal packages, so it can be imported by any layer.
package types

import (
	"math/big"
	"time"
)

// ————————————————————————————————————————————————————————————————————————
// Core enums
// ————————————————————————————————————————————————————————————————————————

// Side represents the direction of an order: BUY or SELL.
type Side int

const (
	BUY  Side = 0
	SELL Side = 1
)

func (s Side) String() string {
	if s == SELL {
		return "SELL"
	}
	return "BUY"
}

// Asset identifies the spot instrument a binary market is priced against.
type Asset string

const (
	BTC     Asset = "BTC"
	ETH     Asset = "ETH"
	SOL     Asset = "SOL"
	Unknown Asset = "UNKNOWN"
)

// SignatureType identifies the signing scheme for the CTF exchange contract.
// Only EOA is exercised by this pipeline; the others are carried for
// completeness against the contract's ABI.
type SignatureType int

const (
	SigEOA        SignatureType = 0
	SigProxy      SignatureType = 1
	SigGnosisSafe SignatureType = 2
)

// ————————————————————————————————————————————————————————————————————————
// Market metadata
// ————————————————————————————————————————————————————————————————————————

// MarketMetadata identifies a single 15-minute binary market. Created by
// MarketDiscovery and never mutated in place — a re-discovered market
// replaces its prior MarketMetadata entirely.
type MarketMetadata struct {
	MarketID   string    // opaque Gamma market ID
	Question   string    // free-text market title
	Asset      Asset     // parsed from Question by QuestionParser
	Strike     float64   // parsed from Question by QuestionParser, quote units
	TokenIDYes string    // CLOB token ID for the YES outcome, decimal string
	TokenIDNo  string    // CLOB token ID for the NO outcome, decimal string
	Expiration time.Time // UTC
}

// ————————————————————————————————————————————————————————————————————————
// Market data
// ————————————————————————————————————————————————————————————————————————

// PriceUpdate is an ephemeral spot trade tick from the centralized-exchange feed.
type PriceUpdate struct {
	Symbol         string // e.g. "BTCUSDT"
	Price          float64
	ExchangeTimeMs int64
}

// OrderbookUpdate is the best-bid/ask projection of a market's book,
// published to the bus on every book change.
type OrderbookUpdate struct {
	MarketID    string
	BestBid     float64
	BestAsk     float64
	TimestampMs int64
}

// FairValueUpdate carries the PricingEngine's current theoretical value for
// a market's YES token.
type FairValueUpdate struct {
	MarketID    string
	FairPrice   float64 // in [0, 1]
	Confidence  float64 // in [0, 1]
	TimestampMs int64
}

// ————————————————————————————————————————————————————————————————————————
// Orders
// ————————————————————————————————————————————————————————————————————————

// Order is the EIP-712-typed struct submitted to the Polymarket CTF
// exchange. MakerAmount/TakerAmount are 6-decimal USDC-scale integers.
// Constructed by the engine's execution loop from a strategy command, with
// Maker/Signer/Nonce left zero; the Submitter fills Nonce and the Signer
// fills Maker/Signer before signing.
type Order struct {
	Maker       string   `json:"maker"`
	Taker       string   `json:"taker"`
	TokenID     string   `json:"tokenId"`
	MakerAmount *big.Int `json:"makerAmount"`
	TakerAmount *big.Int `json:"takerAmount"`
	Side        Side     `json:"side"`
	FeeRateBps  int64    `json:"feeRateBps"`
	Nonce       uint64   `json:"nonce"`
	Signer      string   `json:"signer"`
	Expiration  uint64   `json:"expiration"`
	Salt        int64    `json:"salt"`
	Signature   string   `json:"signature,omitempty"` // 0x + 130 hex chars once signed
}

// OrderPayload is one element of the JSON batch POSTed to /orders.
type OrderPayload struct {
	Order     Order  `json:"order"`
	Owner     string `json:"owner"`
	Signature string `json:"signature"`
}

// OrderResponse is the REST response for each order in a batch POST.
type OrderResponse struct {
	Success  bool   `json:"success"`
	ErrorMsg string `json:"errorMsg"`
	OrderID  string `json:"orderID"`
	Status   string `json:"status"`
}

// ————————————————————————————————————————————————————————————————————————
// Catalog / WS wire shapes
// ————————————————————————————————————————————————————————————————————————

// CatalogRecord is the JSON shape of one record in the market catalog feed.
type CatalogRecord struct {
	ID           string   `json:"id"`
	Question     string   `json:"question"`
	ClobTokenIds []string `json:"clobTokenIds"`
	EndDate      string   `json:"endDate"`
}

// SpotStreamEnvelope is the wrapper around a spot trade message:
// {stream, data:{s:symbol, p:price_string, T:ts_ms}}.
type SpotStreamEnvelope struct {
	Stream string         `json:"stream"`
	Data   SpotStreamData `json:"data"`
}

// SpotStreamData is the inner aggregated-trade payload.
type SpotStreamData struct {
	Symbol string `json:"s"`
	Price  string `json:"p"`
	TsMs   int64  `json:"T"`
}

// BookLevel is a single [price, size] pair as sent over the wire (strings
// to preserve decimal precision).
type BookLevel [2]string

// PredictionBookMessage is a full book snapshot for one market:
// {type|action == "book", market_id, bids:[[price,size],...], asks:[[...]]}.
type PredictionBookMessage struct {
	Type     string      `json:"type"`
	Action   string      `json:"action"`
	MarketID string      `json:"market_id"`
	Bids     []BookLevel `json:"bids"`
	Asks     []BookLevel `json:"asks"`
}
