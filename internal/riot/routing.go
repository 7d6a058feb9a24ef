package riot

import "strings"

// Regional routing values.
const (
	RegionAmericas = "americas"
	RegionAsia     = "asia"
	RegionEurope   = "europe"
	RegionSEA      = "sea"
)

var platformRegions = map[string]string{
	"br1":  RegionAmericas,
	"la1":  RegionAmericas,
	"la2":  RegionAmericas,
	"na1":  RegionAmericas,
	"oc1":  RegionAmericas,
	"jp1":  RegionAsia,
	"kr":   RegionAsia,
	"ph2":  RegionAsia,
	"sg2":  RegionAsia,
	"th2":  RegionAsia,
	"tw2":  RegionAsia,
	"vn2":  RegionAsia,
	"eun1": RegionEurope,
	"euw1": RegionEurope,
	"ru":   RegionEurope,
	"tr1":  RegionEurope,
}

// IsRegion reports whether v names a regional routing value.
func IsRegion(v string) bool {
	switch strings.ToLower(v) {
	case RegionAmericas, RegionAsia, RegionEurope, RegionSEA:
		return true
	default:
		return false
	}
}

// RegionForPlatform maps a platform (or an explicit region) to its regional
// routing value. Matching is case-insensitive; unknown or empty input yields fallback.
func RegionForPlatform(platform, fallback string) string {
	p := strings.ToLower(strings.TrimSpace(platform))
	if IsRegion(p) {
		return p
	}
	if region, ok := platformRegions[p]; ok {
		return region
	}
	if fallback == "" {
		return RegionAmericas
	}
	return strings.ToLower(fallback)
}

// PlatformFromMatchID extracts the platform prefix of a match ID ("NA1_123" -> "na1").
// Returns "" when the ID carries no known platform.
func PlatformFromMatchID(matchID string) string {
	i := strings.IndexByte(matchID, '_')
	if i <= 0 {
		return ""
	}
	p := strings.ToLower(matchID[:i])
	if _, ok := platformRegions[p]; !ok {
		return ""
	}
	return p
}
