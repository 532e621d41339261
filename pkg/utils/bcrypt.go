package utils

import (
	"golang.org/x/crypto/bcrypt"
)

// EncryptApiKey bcrypt hash of an api key, written into config as apiKeyHash
func EncryptApiKey(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func MatchApiKey(key, encryptedKey string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(encryptedKey), []byte(key))
	return err == nil
}
