package browser

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/entrhq/sessionrig/pkg/capabilities"
	"github.com/entrhq/sessionrig/pkg/config"
)

// Endpoint builds the WebSocket URI for a remote target. Desktop targets use
// the Playwright endpoint; devices use the per-platform device endpoint. The
// descriptor travels URL-encoded in the caps query parameter.
func Endpoint(remote config.RemoteConfig, target capabilities.Target, desc capabilities.Descriptor) (string, error) {
	base := remote.Endpoint
	if target.IsMobileDevice() {
		if target.Device == nil || target.Device.OS == "" {
			return "", fmt.Errorf("device target %s has no platform", target.Name)
		}
		base = strings.TrimRight(remote.DeviceEndpoint, "/") + "/" + target.Device.OS
	}

	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint %q: %w", base, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return "", fmt.Errorf("endpoint %q must use ws or wss", base)
	}

	caps, err := json.Marshal(desc)
	if err != nil {
		return "", fmt.Errorf("failed to encode capabilities: %w", err)
	}

	q := u.Query()
	q.Set("caps", string(caps))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// AuthHeaders returns the Basic authorization header for the account.
func AuthHeaders(remote config.RemoteConfig) map[string]string {
	token := base64.StdEncoding.EncodeToString([]byte(remote.Username + ":" + remote.AccessKey))
	return map[string]string{"Authorization": "Basic " + token}
}
