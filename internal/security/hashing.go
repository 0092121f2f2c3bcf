package security

import "golang.org/x/crypto/bcrypt"

// DefaultBcryptCost is the work factor used when none is configured. High
// enough for interactive logins without making the login endpoint sluggish.
const DefaultBcryptCost = 12

// PasswordHasher derives and verifies bcrypt hashes for login credentials.
type PasswordHasher struct {
	cost int
}

// NewHasher returns a PasswordHasher with the cost clamped to bcrypt's valid
// range. A non-positive cost selects DefaultBcryptCost.
func NewHasher(cost int) *PasswordHasher {
	switch {
	case cost <= 0:
		cost = DefaultBcryptCost
	case cost < bcrypt.MinCost:
		cost = bcrypt.MinCost
	case cost > bcrypt.MaxCost:
		cost = bcrypt.MaxCost
	}
	return &PasswordHasher{cost: cost}
}

// Cost reports the configured work factor.
func (h *PasswordHasher) Cost() int { return h.cost }

// Hash derives a bcrypt hash of password for storage on the user record.
func (h *PasswordHasher) Hash(password []byte) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword(password, h.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Compare verifies password against a stored hash; nil means match. bcrypt
// compares in constant time, and a malformed stored hash is a mismatch.
func (h *PasswordHasher) Compare(storedHash string, password []byte) error {
	return bcrypt.CompareHashAndPassword([]byte(storedHash), password)
}
