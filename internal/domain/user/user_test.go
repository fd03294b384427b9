package user

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGuestEmail(t *testing.T) {
	assert.Equal(t, "0600000000@guest.local", GuestEmail("0600000000"))
}

func TestHasCredential(t *testing.T) {
	assert.True(t, (&User{PasswordHash: "hash"}).HasCredential())
	assert.False(t, (&User{}).HasCredential())
}
