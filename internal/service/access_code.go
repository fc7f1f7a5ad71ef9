package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"nikosoko-backend/internal/domain"
	"nikosoko-backend/internal/repository"
)

const (
	accessCodeMin  = 100000
	accessCodeSpan = 900000

	// DefaultCodeAttempts bounds the draws made to find a code not held by another
	// redeemable invitation.
	DefaultCodeAttempts = 20
)

// ErrCodeSpaceExhausted is returned when every draw collided with a live code.
var ErrCodeSpaceExhausted = errors.New("could not allocate a free access code")

// CodeGenerator draws a candidate access code.
type CodeGenerator func() (string, error)

// RandomAccessCode returns a uniformly drawn six digit code in [100000, 999999].
func RandomAccessCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(accessCodeSpan))
	if err != nil {
		return "", fmt.Errorf("failed to draw access code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+accessCodeMin), nil
}

// allocateCode draws codes until one is not carried by a redeemable invitation. The
// caller must hold the access code issuance lock.
func allocateCode(ctx context.Context, invRepo repository.InvitationRepository, gen CodeGenerator, attempts int) (string, error) {
	for range attempts {
		code, err := gen()
		if err != nil {
			return "", err
		}
		_, err = invRepo.FindRedeemable(ctx, code)
		if errors.Is(err, domain.ErrNotFound) {
			return code, nil
		}
		if err != nil {
			return "", fmt.Errorf("failed to check access code: %w", err)
		}
	}
	return "", ErrCodeSpaceExhausted
}
