package solana

import (
	"crypto/sha256"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// PumpFunProgram is the pump.fun bonding-curve program ID.
const PumpFunProgram = "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P"

// BondingCurveAddress derives the bonding-curve account for a mint.
// The platform derives it as a PDA of the pump.fun program with seeds
// ["bonding-curve", mint]; stream payloads usually carry it, this covers
// the ones that do not.
func BondingCurveAddress(mint string) (string, error) {
	mintBytes, err := base58.Decode(mint)
	if err != nil {
		return "", fmt.Errorf("decode mint: %w", err)
	}
	programBytes, err := base58.Decode(PumpFunProgram)
	if err != nil {
		return "", fmt.Errorf("decode program id: %w", err)
	}

	addr := derivePDA([][]byte{[]byte("bonding-curve"), mintBytes}, programBytes)
	if addr == "" {
		return "", fmt.Errorf("no valid bump seed for mint %s", mint)
	}
	return addr, nil
}

// derivePDA derives a Program Derived Address using the Solana algorithm:
// append a bump seed, the program ID and the PDA marker to the seeds,
// SHA256 the result, and take the first bump whose hash is off the
// ed25519 curve.
func derivePDA(seeds [][]byte, programID []byte) string {
	for bump := byte(255); bump > 0; bump-- {
		data := make([]byte, 0)
		for _, seed := range seeds {
			data = append(data, seed...)
		}
		data = append(data, bump)
		data = append(data, programID...)
		data = append(data, []byte("ProgramDerivedAddress")...)

		hash := sha256.Sum256(data)

		if !isOnCurve(hash[:]) {
			return base58.Encode(hash[:])
		}
	}

	return ""
}

func isOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}
