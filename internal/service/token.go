package service

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

const tokenBytes = 32

// newToken returns 256 bits of randomness, hex encoded.
func newToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// inviteAlphabet leaves out 0, O, 1 and I so codes survive being read aloud.
// Its length divides 256, so masking a random byte picks each symbol evenly.
const inviteAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const inviteCodeLen = 8

// newInviteCode returns a short human-typable code carrying 40 bits of randomness.
func newInviteCode() (string, error) {
	buf := make([]byte, inviteCodeLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	for i, b := range buf {
		buf[i] = inviteAlphabet[int(b)&(len(inviteAlphabet)-1)]
	}
	return string(buf), nil
}
