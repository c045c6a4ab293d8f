package speech

import (
	"fmt"
	"strings"

	speechmodel "github.com/carinitosdigital/detalles/internal/model/speech"
)

// resolveCredentials returns the trimmed app id and access token.
func resolveCredentials(cfg *speechmodel.Config) (string, string, error) {
	if cfg == nil {
		return "", "", fmt.Errorf("%w: speech config is not initialized", speechmodel.ErrUnsupported)
	}
	appID := strings.TrimSpace(cfg.AppID)
	token := strings.TrimSpace(cfg.AccessToken)
	if token == "" {
		token = strings.TrimSpace(cfg.APIKey)
	}
	if appID == "" || token == "" {
		return "", "", fmt.Errorf("%w: missing Volcengine app id or access token", speechmodel.ErrUnsupported)
	}
	return appID, token, nil
}
