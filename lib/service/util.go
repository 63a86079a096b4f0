package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/labstack/gommon/random"
)

const alphaNumBytes = random.Alphanumeric

func randBytesFromStr(length int, from string) ([]byte, error) {
	b := make([]byte, length)
	fromLenBigInt := big.NewInt(int64(len(from)))
	for i := range b {
		r, err := rand.Int(rand.Reader, fromLenBigInt)
		if err != nil {
			return nil, err
		}
		b[i] = from[r.Int64()]
	}
	return b, nil
}

// randInt returns a uniform integer in [min, max].
func randInt(min, max int64) (int64, error) {
	r, err := rand.Int(rand.Reader, big.NewInt(max-min+1))
	if err != nil {
		return 0, err
	}
	return min + r.Int64(), nil
}

// newReference builds QRIS-<unix ms>-<8 random alphanumerics>.
func newReference(now time.Time) (string, error) {
	suffix, err := randBytesFromStr(8, random.Uppercase+random.Numeric)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("QRIS-%d-%s", now.UnixMilli(), suffix), nil
}

// newMerchantRef builds SUB-<user>-<unix ms>.
func newMerchantRef(userID int64, now time.Time) string {
	return fmt.Sprintf("SUB-%d-%d", userID, now.UnixMilli())
}

func pageOffset(page, limit int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * limit
}
