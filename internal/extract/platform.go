package extract

import (
	"net/url"
	"strings"
)

// Platform tags the source marketplace a URL belongs to. Detection is a
// host substring match against the storefronts the importer understands;
// anything else falls through to the generic fallback provider.
type Platform string

const (
	PlatformAmazon     Platform = "amazon"
	PlatformAlibaba    Platform = "alibaba"
	PlatformAliExpress Platform = "aliexpress"
	PlatformEbay       Platform = "ebay"
	PlatformWalmart    Platform = "walmart"
	PlatformShopify    Platform = "shopify"
	PlatformUnknown    Platform = ""
)

// hostMarkers is ordered: aliexpress must be tested before alibaba because
// both share the "ali" prefix family of domains.
var hostMarkers = []struct {
	marker   string
	platform Platform
}{
	{"aliexpress.", PlatformAliExpress},
	{"alibaba.", PlatformAlibaba},
	{"amazon.", PlatformAmazon},
	{"ebay.", PlatformEbay},
	{"walmart.", PlatformWalmart},
	{"myshopify.com", PlatformShopify},
	{"shopify.", PlatformShopify},
}

// DetectPlatform derives the platform tag from the URL host. Unknown
// domains return PlatformUnknown.
func DetectPlatform(rawURL string) Platform {
	u, err := url.Parse(rawURL)
	if err != nil {
		return PlatformUnknown
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return PlatformUnknown
	}
	// Strip a leading www. so "www.amazon.com" matches "amazon.".
	host = strings.TrimPrefix(host, "www.")

	for _, m := range hostMarkers {
		if strings.Contains(host, m.marker) {
			return m.platform
		}
	}
	return PlatformUnknown
}
