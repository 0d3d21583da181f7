// Package tax provides the rounding primitive for tax-included totals.
//
// Amounts are integers in the smallest currency unit (cents, yen, etc.).
// The tax rate is an exact decimal, so 0.1 means exactly 10% rather than
// the nearest float64. Rounding policy is caller-chosen:
//
//	tax.Apply(105, rate, tax.RoundFloor)   // 10
//	tax.Apply(105, rate, tax.RoundCeil)    // 11
//	tax.Apply(105, rate, tax.RoundNearest) // 11 (half rounds up)
package tax

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// RoundMode selects how a fractional tax amount becomes an integer.
type RoundMode string

const (
	// RoundFloor truncates the fractional tax (largest integer <= raw).
	RoundFloor RoundMode = "floor"
	// RoundCeil takes the smallest integer >= raw.
	RoundCeil RoundMode = "ceil"
	// RoundNearest rounds to the nearest integer, half away from zero.
	RoundNearest RoundMode = "nearest"
)

// DefaultRoundMode is used when a request leaves the mode unset.
const DefaultRoundMode = RoundFloor

// ParseRoundMode converts a string into a RoundMode.
// The empty string maps to DefaultRoundMode.
func ParseRoundMode(s string) (RoundMode, error) {
	switch s {
	case "":
		return DefaultRoundMode, nil
	case string(RoundFloor):
		return RoundFloor, nil
	case string(RoundCeil):
		return RoundCeil, nil
	case string(RoundNearest):
		return RoundNearest, nil
	}
	return "", fmt.Errorf("unknown round mode: %q", s)
}

// Apply computes the integer tax on amount at the given rate.
//
// Callers guarantee amount >= 0 and rate in [0, 1]; within that domain the
// function is total and side-effect-free. Unknown modes fall back to floor.
func Apply(amount int64, rate decimal.Decimal, mode RoundMode) int64 {
	raw := rate.Mul(decimal.NewFromInt(amount))

	switch mode {
	case RoundCeil:
		return raw.Ceil().IntPart()
	case RoundNearest:
		// decimal.Round is half-away-from-zero, which is half-up for
		// the non-negative amounts we handle.
		return raw.Round(0).IntPart()
	default:
		return raw.Floor().IntPart()
	}
}
