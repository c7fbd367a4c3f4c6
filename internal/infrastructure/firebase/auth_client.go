package firebase

import (
	"context"

	"firebase.google.com/go/v4/auth"

	"github.com/InbalMary/mistertoy-mongo-backend/internal/domain/entity"
)

type FirebaseAuthClient struct {
	client *auth.Client
}

func NewFirebaseAuthClient(client *auth.Client) *FirebaseAuthClient {
	return &FirebaseAuthClient{
		client: client,
	}
}

func (f *FirebaseAuthClient) VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error) {
	return f.client.VerifyIDToken(ctx, idToken)
}

// IdentityFromToken reads the caller out of a verified ID token. The admin
// flag is the custom claim "admin".
func IdentityFromToken(token *auth.Token) *entity.Identity {
	identity := &entity.Identity{ID: token.UID}
	if name, ok := token.Claims["name"].(string); ok {
		identity.Fullname = name
	}
	if picture, ok := token.Claims["picture"].(string); ok {
		identity.ImgURL = picture
	}
	if admin, ok := token.Claims["admin"].(bool); ok {
		identity.IsAdmin = admin
	}
	return identity
}
