package utils

import "golang.org/x/crypto/bcrypt"

// passwordHashCost is kept at the library default; raise it together with a
// rehash-on-login migration, existing hashes keep their original cost.
const passwordHashCost = bcrypt.DefaultCost

// HashPassword returns the bcrypt hash of a plaintext password for storage.
func HashPassword(s string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(s), passwordHashCost)
}

// ComparePassword checks a login attempt against the stored hash. A non-nil
// error means the credentials do not match.
func ComparePassword(hashed string, normal string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(normal))
}
