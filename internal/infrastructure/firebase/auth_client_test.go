package firebase

import (
	"testing"

	"firebase.google.com/go/v4/auth"
	"github.com/stretchr/testify/assert"
)

func TestIdentityFromToken(t *testing.T) {
	identity := IdentityFromToken(&auth.Token{
		UID: "u1",
		Claims: map[string]interface{}{
			"name":    "Puki Ben David",
			"picture": "https://example.com/puki.png",
			"admin":   true,
		},
	})

	assert.Equal(t, "u1", identity.ID)
	assert.Equal(t, "Puki Ben David", identity.Fullname)
	assert.Equal(t, "https://example.com/puki.png", identity.ImgURL)
	assert.True(t, identity.IsAdmin)
}

func TestIdentityFromTokenWithoutClaims(t *testing.T) {
	identity := IdentityFromToken(&auth.Token{UID: "u2"})

	assert.Equal(t, "u2", identity.ID)
	assert.Empty(t, identity.Fullname)
	assert.False(t, identity.IsAdmin)
}
