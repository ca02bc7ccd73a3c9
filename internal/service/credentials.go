package service

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/igarcialujan/user-management-api/internal/model"
)

// credentialChecker compares a password against a user's hash. When there is
// no user it still runs one comparison against a throwaway hash, so "no such
// user" and "wrong password" cost the same.
type credentialChecker struct {
	hasher    PasswordHasher
	dummyHash string
}

func newCredentialChecker(hasher PasswordHasher) (*credentialChecker, error) {
	dummy, err := hasher.Hash(uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("prepare credential checker: %w", err)
	}

	return &credentialChecker{hasher: hasher, dummyHash: dummy}, nil
}

func (c *credentialChecker) matches(plain string, user *model.User) (bool, error) {
	if user == nil {
		_, _ = c.hasher.Verify(plain, c.dummyHash)
		return false, nil
	}

	return c.hasher.Verify(plain, user.PasswordHash)
}
