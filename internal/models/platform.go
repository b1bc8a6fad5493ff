package models

// Platform is the closed set of publish targets. Adding one means extending
// every switch below; the compiler has no exhaustiveness check for string
// enums, so AllPlatforms is the single source of truth for validation.
type Platform string

const (
	PlatformFacebook  Platform = "facebook"
	PlatformInstagram Platform = "instagram"
	PlatformLinkedIn  Platform = "linkedin"
	PlatformTwitter   Platform = "twitter"
	PlatformTiktok    Platform = "tiktok"
)

var AllPlatforms = []Platform{
	PlatformFacebook,
	PlatformInstagram,
	PlatformLinkedIn,
	PlatformTwitter,
	PlatformTiktok,
}

var platformSet = func() map[Platform]struct{} {
	set := make(map[Platform]struct{}, len(AllPlatforms))
	for _, p := range AllPlatforms {
		set[p] = struct{}{}
	}
	return set
}()

func ParsePlatform(s string) (Platform, bool) {
	p := Platform(s)
	_, ok := platformSet[p]
	return p, ok
}

func (p Platform) Valid() bool {
	_, ok := platformSet[p]
	return ok
}

// DisplayName is the human label used in redirects and error details.
func (p Platform) DisplayName() string {
	switch p {
	case PlatformFacebook:
		return "Facebook"
	case PlatformInstagram:
		return "Instagram"
	case PlatformLinkedIn:
		return "LinkedIn"
	case PlatformTwitter:
		return "Twitter"
	case PlatformTiktok:
		return "TikTok"
	default:
		return string(p)
	}
}
