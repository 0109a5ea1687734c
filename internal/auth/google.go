package auth

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ctenopool/labeler/internal/models"
	"google.golang.org/api/idtoken"
)

// GoogleVerifier validates Google Identity Services ID tokens
type GoogleVerifier struct {
	ClientID string
	validate func(ctx context.Context, token, audience string) (*idtoken.Payload, error)
}

func NewGoogleVerifier(clientID string) *GoogleVerifier {
	return &GoogleVerifier{ClientID: clientID, validate: idtoken.Validate}
}

func (v *GoogleVerifier) Verify(r *http.Request, token string) (*models.Identity, error) {
	payload, err := v.validate(r.Context(), token, v.ClientID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	id := &models.Identity{Subject: payload.Subject}
	id.DisplayName, _ = payload.Claims["name"].(string)
	if email, _ := payload.Claims["email"].(string); email != "" {
		if verified, ok := payload.Claims["email_verified"].(bool); !ok || verified {
			id.Email = email
		}
	}
	return id, nil
}
