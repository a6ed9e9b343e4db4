package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Staff accounts made with `manage createsuperuser` log in with a password;
// Kakao accounts have an empty hash and can never do so.
//
// bcrypt embeds the salt and cost in its output:
//
//	$2a$12$<22-char salt><31-char hash>
const (
	defaultCost = 12

	minPasswordLen = 8
	// bcrypt ignores everything past 72 bytes.
	maxPasswordLen = 72
)

// ErrNoPassword is returned by Verify for accounts that have no password set.
var ErrNoPassword = errors.New("auth: account has no password")

// PasswordService hashes and checks staff passwords. The cost is a field so
// tests can use the bcrypt minimum.
type PasswordService struct {
	cost int
}

func NewPasswordService() *PasswordService {
	return &PasswordService{cost: defaultCost}
}

// NewPasswordServiceForTest uses the given (low) cost. Never use it outside
// tests.
func NewPasswordServiceForTest(cost int) *PasswordService {
	return &PasswordService{cost: cost}
}

// Hash checks the length bounds and hashes plaintext.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if len(plaintext) < minPasswordLen {
		return "", fmt.Errorf("auth: password must be at least %d characters", minPasswordLen)
	}
	if len(plaintext) > maxPasswordLen {
		return "", fmt.Errorf("auth: password must be %d bytes or fewer", maxPasswordLen)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}
	return string(hashed), nil
}

// Verify returns nil when plaintext matches hash. The comparison is
// constant-time inside bcrypt.
func (p *PasswordService) Verify(hash, plaintext string) error {
	if hash == "" {
		return ErrNoPassword
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return fmt.Errorf("auth: invalid password")
		}
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
	return nil
}
