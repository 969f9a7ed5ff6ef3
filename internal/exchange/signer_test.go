package exchange

import (
	"math/big"
	"strings"
	"testing"

	"sniper/pkg/types"
)

// testPrivateKey is Hardhat's well-known first deterministic test account.
const testPrivateKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
const testAddress = "0xf39Fd6e51aad88F6f4ce6aB8827279cffFb92266"

func TestNewSignerDerivesAddress(t *testing.T) {
	t.Parallel()

	s, err := NewSigner(testPrivateKey)
	if err != nil {
		t.Fatalf("NewSigner() error = %v", err)
	}
	if got := s.Address().Hex(); !strings.EqualFold(got, testAddress) {
		t.Errorf("Address() = %s, want %s", got, testAddress)
	}
}

func TestSignOrderSetsMakerToSigner(t *testing.T) {
	t.Parallel()

	s, err := NewSigner(testPrivateKey)
	if err != nil {
		t.Fatal(err)
	}

	order := types.Order{
		TokenID:     "12345",
		MakerAmount: big.NewInt(1_000_000),
		TakerAmount: big.NewInt(2_000_000),
		Side:        types.BUY,
		Nonce:       1,
		Expiration:  0,
		Salt:        42,
	}

	signed, err := s.SignOrder(order)
	if err != nil {
		t.Fatalf("SignOrder() error = %v", err)
	}

	if !strings.EqualFold(signed.Maker, testAddress) {
		t.Errorf("Maker = %s, want signer address %s", signed.Maker, testAddress)
	}
	if !strings.EqualFold(signed.Signer, testAddress) {
		t.Errorf("Signer = %s, want signer address %s", signed.Signer, testAddress)
	}
	if !strings.HasPrefix(signed.Signature, "0x") {
		t.Errorf("Signature = %q, want 0x-prefixed", signed.Signature)
	}
	if len(signed.Signature) != 2+65*2 {
		t.Errorf("Signature length = %d, want %d (65-byte sig)", len(signed.Signature), 2+65*2)
	}
}

func TestSignOrderRejectsInvalidTokenID(t *testing.T) {
	t.Parallel()

	s, err := NewSigner(testPrivateKey)
	if err != nil {
		t.Fatal(err)
	}

	order := types.Order{
		TokenID:     "not-a-number",
		MakerAmount: big.NewInt(1),
		TakerAmount: big.NewInt(1),
	}

	if _, err := s.SignOrder(order); err == nil {
		t.Fatal("expected an error for a non-numeric token id")
	}
}
