package api

import (
	"crypto/rand"
	"math/big"
	"regexp"
)

const (
	idLength = 24
	charset  = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	threadIDPrefix = "thread_"
	callIDPrefix   = "call_"
)

var threadIDPattern = regexp.MustCompile(`^thread_[a-zA-Z0-9]{24}$`)

// NewThreadID generates a new thread ID with the "thread_" prefix
// followed by 24 cryptographically random alphanumeric characters.
// Callers may supply their own thread ids; this is the mint used when
// a conversation starts without one.
func NewThreadID() string {
	return threadIDPrefix + randomAlphanumeric(idLength)
}

// NewCallID generates a tool-call ID with the "call_" prefix. Used when
// a reasoning backend omits call ids from its tool-call payload.
func NewCallID() string {
	return callIDPrefix + randomAlphanumeric(idLength)
}

// ValidateThreadID checks whether the given string is a minted thread ID
// (matches "thread_" + 24 alphanumeric characters). Caller-supplied ids
// of other shapes remain acceptable; this only validates minted ones.
func ValidateThreadID(id string) bool {
	return threadIDPattern.MatchString(id)
}

func randomAlphanumeric(n int) string {
	max := big.NewInt(int64(len(charset)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic("crypto/rand failed: " + err.Error())
		}
		b[i] = charset[idx.Int64()]
	}
	return string(b)
}
