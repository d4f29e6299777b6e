package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/socialflow-inc/socialflow-engine/pkg/models"
)

// requiredFieldsByPlatform lists the secret fields each platform's API
// client needs before a call can even be attempted.
var requiredFieldsByPlatform = map[string][]string{
	models.PlatformFacebook:  {"access_token", "page_access_token"},
	models.PlatformInstagram: {"access_token", "business_account_id"},
	models.PlatformTwitter:   {"api_key", "api_secret", "access_token"},
	models.PlatformLinkedIn:  {"client_id", "client_secret", "access_token"},
	models.PlatformTikTok:    {"client_id", "client_secret", "access_token"},
	models.PlatformYouTube:   {"client_id", "client_secret", "refresh_token"},
	models.PlatformPinterest: {"access_token"},
}

// platformVerifier is the default CredentialVerifier. It checks structural
// completeness per platform; live API verification calls are delegated to
// the automation workflows, not performed here.
type platformVerifier struct {
	logger *zap.Logger
}

// NewPlatformVerifier creates the default credential verifier.
func NewPlatformVerifier(logger *zap.Logger) CredentialVerifier {
	return &platformVerifier{logger: logger.Named("verifier")}
}

// Verify checks that every secret field the platform requires is present.
func (v *platformVerifier) Verify(ctx context.Context, cred *models.Credential) (bool, error) {
	required, ok := requiredFieldsByPlatform[cred.Platform]
	if !ok {
		return false, fmt.Errorf("unsupported platform %q", cred.Platform)
	}

	var missing []string
	for _, field := range required {
		if !cred.HasSecretField(field) {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return false, fmt.Errorf("missing required fields for %s: %s",
			cred.Platform, strings.Join(missing, ", "))
	}

	v.logger.Debug("Credential structurally complete",
		zap.String("credential_id", cred.ID.String()),
		zap.String("platform", cred.Platform))

	return true, nil
}

var _ CredentialVerifier = (*platformVerifier)(nil)
