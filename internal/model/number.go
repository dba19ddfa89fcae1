package model

import (
	"crypto/rand"
	"fmt"
	"time"
)

// orderNumberCharset drops 0, 1, I and O so order numbers stay legible when
// read back over the phone. 32 characters, so a random byte maps evenly.
const orderNumberCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// OrderNumberLength is the length of generated order numbers
const OrderNumberLength = 6

// GenerateOrderNumber returns a random human-readable order number.
// Uniqueness is enforced by the database index; callers retry on conflict.
func GenerateOrderNumber() string {
	b := make([]byte, OrderNumberLength)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	for i := range b {
		b[i] = orderNumberCharset[int(b[i])%len(orderNumberCharset)]
	}
	return string(b)
}

// GeneratePosTransactionNumber returns a transaction number of the form
// POS-YYYYMMDD-HHMMSS-NNN. The random suffix disambiguates sales rung up
// within the same second; the unique index catches the residual collisions
// and callers retry.
func GeneratePosTransactionNumber(now time.Time) string {
	b := make([]byte, 2)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	suffix := (int(b[0])<<8 | int(b[1])) % 1000
	return fmt.Sprintf("POS-%s-%s-%03d", now.Format("20060102"), now.Format("150405"), suffix)
}
