package auth

import "golang.org/x/crypto/bcrypt"

// PasswordVerifier checks a plaintext password against its stored hash.
// Compare returns nil on match and an error otherwise.
type PasswordVerifier interface {
	Compare(hashedPassword, password string) error
}

// BcryptVerifier is the bcrypt-backed PasswordVerifier used in production.
type BcryptVerifier struct{}

// NewBcryptVerifier creates a BcryptVerifier.
func NewBcryptVerifier() *BcryptVerifier {
	return &BcryptVerifier{}
}

// Compare implements PasswordVerifier.
func (v *BcryptVerifier) Compare(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// HashPassword hashes a plaintext password with bcrypt at the given cost.
// A cost of 0 uses the bcrypt default.
func HashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
