package auth

import (
	"context"
	"errors"
	"fmt"

	goerrors "github.com/goliatone/go-errors"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// Hasher is a bcrypt PasswordHasher. At most concurrency hashes run at once
// so bursts of logins cannot starve the rest of the process.
type Hasher struct {
	cost int
	sem  *semaphore.Weighted
}

var _ PasswordHasher = (*Hasher)(nil)

// NewHasher creates a Hasher with the given cost and pool size
func NewHasher(cost, concurrency int) *Hasher {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Hasher{
		cost: passwordHashCost(cost),
		sem:  semaphore.NewWeighted(int64(concurrency)),
	}
}

// Hash will generate a password hash
func (h *Hasher) Hash(ctx context.Context, password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}

	if err := h.acquire(ctx); err != nil {
		return "", err
	}
	defer h.sem.Release(1)

	out, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", NewPasswordPolicyError([]string{fmt.Sprintf("password must not be longer than %d bytes", MaxPasswordBytes)})
	}
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "unable to hash password").
			WithTextCode(TextCodeInternal).
			WithCode(goerrors.CodeInternal)
	}
	return string(out), nil
}

// Compare will validate the given cleartext password matches the hashed
// password
func (h *Hasher) Compare(ctx context.Context, password, hash string) error {
	if err := h.acquire(ctx); err != nil {
		return err
	}
	defer h.sem.Release(1)

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatchedHashAndPassword
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "unable to compare password").
			WithTextCode(TextCodeInternal).
			WithCode(goerrors.CodeInternal)
	}
	return nil
}

func (h *Hasher) acquire(ctx context.Context) error {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "password hashing cancelled").
			WithTextCode(TextCodeInternal).
			WithCode(goerrors.CodeRequestTimeout)
	}
	return nil
}
