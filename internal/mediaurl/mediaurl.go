package mediaurl

import (
	"net/url"
	"path"
	"strings"
)

const PathPrefix = "/media/"

// Asset builds the public URL of a locally stored asset.
func Asset(baseURL, publicID string) string {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return PathPrefix + publicID
	}
	return baseURL + PathPrefix + publicID
}

// ParsePublicID extracts the public ID from an asset URL or a bare
// /media/ path. IDs may contain folder segments but never climb out of the
// media root.
func ParsePublicID(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}

	p := u.Path
	if p == "" {
		p = raw
	}

	if !strings.HasPrefix(p, PathPrefix) {
		return "", false
	}

	publicID := strings.TrimPrefix(p, PathPrefix)
	if publicID == "" || strings.HasSuffix(publicID, "/") {
		return "", false
	}
	if path.Clean("/"+publicID) != "/"+publicID {
		return "", false
	}

	return publicID, true
}
