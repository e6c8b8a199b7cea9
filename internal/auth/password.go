package auth

import "golang.org/x/crypto/bcrypt"

const passwordCost = 10

func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), passwordCost)
	return string(b), err
}

// ComparePassword returns bcrypt.ErrMismatchedHashAndPassword on a wrong
// password and a different error when the stored hash is malformed.
func ComparePassword(password, hash string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

func CheckPassword(password, hash string) bool {
	return ComparePassword(password, hash) == nil
}
