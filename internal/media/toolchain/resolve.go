package toolchain

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var youtubeIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// ResolveSourceID derives a canonical source id from a locator. Supported
// forms: YouTube watch/short URLs, bare 11-character YouTube ids, and local
// file paths (id is the basename without extension). Anything else is
// rejected so the rights gate and ledger always have a stable identifier.
func ResolveSourceID(locator string) (string, error) {
	locator = strings.TrimSpace(locator)
	if locator == "" {
		return "", fmt.Errorf("resolve source id: empty locator")
	}

	if youtubeIDPattern.MatchString(locator) {
		return locator, nil
	}

	if strings.HasPrefix(locator, "http://") || strings.HasPrefix(locator, "https://") {
		parsed, err := url.Parse(locator)
		if err != nil {
			return "", fmt.Errorf("resolve source id: parse url: %w", err)
		}
		host := strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
		switch host {
		case "youtube.com", "m.youtube.com":
			if id := parsed.Query().Get("v"); youtubeIDPattern.MatchString(id) {
				return id, nil
			}
			if rest, ok := strings.CutPrefix(parsed.Path, "/shorts/"); ok {
				id := strings.SplitN(rest, "/", 2)[0]
				if youtubeIDPattern.MatchString(id) {
					return id, nil
				}
			}
			return "", fmt.Errorf("resolve source id: no video id in %s", locator)
		case "youtu.be":
			id := strings.Trim(parsed.Path, "/")
			if youtubeIDPattern.MatchString(id) {
				return id, nil
			}
			return "", fmt.Errorf("resolve source id: no video id in %s", locator)
		default:
			// Other platforms: use the final path element as the id.
			id := strings.Trim(filepath.Base(parsed.Path), "/")
			if id == "" || id == "." {
				return "", fmt.Errorf("resolve source id: unresolvable url %s", locator)
			}
			return id, nil
		}
	}

	if info, err := os.Stat(locator); err == nil && !info.IsDir() {
		base := filepath.Base(locator)
		return strings.TrimSuffix(base, filepath.Ext(base)), nil
	}

	return "", fmt.Errorf("resolve source id: unresolvable locator %q", locator)
}

// IsLocalFile reports whether the locator refers to an existing local file.
func IsLocalFile(locator string) bool {
	info, err := os.Stat(strings.TrimSpace(locator))
	return err == nil && !info.IsDir()
}

// PlatformForLocator names the hosting platform for license-awareness
// warnings, or the empty string for local files and unknown hosts.
func PlatformForLocator(locator string) string {
	locator = strings.TrimSpace(locator)
	if youtubeIDPattern.MatchString(locator) {
		return "youtube"
	}
	parsed, err := url.Parse(locator)
	if err != nil || parsed.Hostname() == "" {
		return ""
	}
	host := strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
	switch {
	case host == "youtu.be" || strings.HasSuffix(host, "youtube.com"):
		return "youtube"
	case strings.HasSuffix(host, "vimeo.com"):
		return "vimeo"
	case strings.HasSuffix(host, "tiktok.com"):
		return "tiktok"
	default:
		return host
	}
}
