package auth

import (
	"fmt"

	"github.com/dmitrijs2005/buildbio/internal/common"
	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the shortest password accepted at sign-up.
const MinPasswordLength = 8

// bcrypt ignores everything past 72 bytes.
const maxPasswordLength = 72

var ErrPasswordLength = fmt.Errorf("%w: password must be between 8 and 72 bytes", common.ErrorValidation)

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) ([]byte, error) {
	if len(password) < MinPasswordLength || len(password) > maxPasswordLength {
		return nil, ErrPasswordLength
	}
	return bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
}

// CheckPassword reports whether password matches hash.
func CheckPassword(hash []byte, password string) bool {
	return bcrypt.CompareHashAndPassword(hash, []byte(password)) == nil
}

// dummyHash is compared against when the account does not exist so that
// unknown emails cost the same as wrong passwords.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("buildbio-dummy-password"), bcrypt.DefaultCost)

// BurnPasswordCheck spends the same work as CheckPassword and always fails.
func BurnPasswordCheck(password string) bool {
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
	return false
}
