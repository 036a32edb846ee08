package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// shortKeyLen is how much of a key is shown in logs and Info output.
const shortKeyLen = 16

// DeriveKey builds the cache key for an extraction of dataType from the
// cleaned page text of url. Each field is length prefixed before hashing so
// that moving bytes between fields always changes the key.
func DeriveKey(url, text, dataType string) string {
	h := sha256.New()
	for _, field := range []string{dataType, url, text} {
		h.Write([]byte(strconv.Itoa(len(field))))
		h.Write([]byte{':'})
		h.Write([]byte(field))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// ShortKey truncates key for display.
func ShortKey(key string) string {
	if len(key) <= shortKeyLen {
		return key + "..."
	}
	return key[:shortKeyLen] + "..."
}
