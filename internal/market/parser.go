package market

import (
	"regexp"
	"strconv"
	"strings"

	"sniper/pkg/types"
)

// assetPattern matches the asset name anywhere in a market title,
// case-insensitively.
var assetPattern = regexp.MustCompile(`(?i)(Bitcoin|BTC|Ethereum|ETH|Solana|SOL)`)

// strikePattern matches a strike price following a comparison cue:
// ">", "<", "above", or "below", optionally prefixed with "$", with
// comma-grouped digits and an optional decimal part, optionally suffixed
// with "k" (thousands).
var strikePattern = regexp.MustCompile(`(?i)(?:>|\babove\b|\bbelow\b|<)\s*\$?\s*([\d,]+(?:\.\d+)?)(k)?`)

// Parser extracts (asset, strike) pairs from free-text market questions.
// It is the sole coupling between market titles and the pricing engine's
// numeric inputs.
type Parser struct{}

// NewParser creates a QuestionParser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse returns the detected asset and strike, or ok=false if either is
// missing from the title.
func (p *Parser) Parse(title string) (asset types.Asset, strike float64, ok bool) {
	asset = p.detectAsset(title)
	if asset == types.Unknown {
		return types.Unknown, 0, false
	}

	strike, found := p.extractStrike(title)
	if !found {
		return types.Unknown, 0, false
	}

	return asset, strike, true
}

func (p *Parser) detectAsset(title string) types.Asset {
	match := assetPattern.FindString(title)
	switch strings.ToLower(match) {
	case "bitcoin", "btc":
		return types.BTC
	case "ethereum", "eth":
		return types.ETH
	case "solana", "sol":
		return types.SOL
	default:
		return types.Unknown
	}
}

func (p *Parser) extractStrike(title string) (float64, bool) {
	caps := strikePattern.FindStringSubmatch(title)
	if caps == nil {
		return 0, false
	}

	numStr := strings.ReplaceAll(caps[1], ",", "")
	val, err := strconv.ParseFloat(numStr, 64)
	if err != nil {
		return 0, false
	}

	if caps[2] != "" {
		val *= 1000
	}

	return val, true
}
