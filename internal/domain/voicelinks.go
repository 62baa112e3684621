package domain

import (
	_ "embed"
	"encoding/json"
)

//go:embed data/voice-links.json
var bundledVoiceLinksJSON []byte

// LoadBundledVoiceLinks parses the read-only link map shipped with the
// binary. Broken or missing data yields an empty envelope.
func LoadBundledVoiceLinks() *VoiceLinkCache {
	return ParseVoiceLinkPayload(bundledVoiceLinksJSON)
}

// ParseVoiceLinkPayload decodes a cache envelope, degrading to an
// empty one on any failure. The cache is advisory; corruption must
// never fail resolution.
func ParseVoiceLinkPayload(data []byte) *VoiceLinkCache {
	cache := NewVoiceLinkCache()
	if len(data) == 0 {
		return cache
	}

	var parsed VoiceLinkCache
	if err := json.Unmarshal(data, &parsed); err != nil || parsed.Students == nil {
		return cache
	}

	cache.UpdatedAt = parsed.UpdatedAt
	cache.Students = parsed.Students
	return cache
}
