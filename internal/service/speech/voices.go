package speech

import "strings"

// Default voices per primary language subtag.
var languageVoices = map[string]string{
	"es": "multi_female_shuangkuaisisi_moon_bigtts",
	"en": "en_female_amy_jupiter_bigtts",
	"zh": "zh_female_vv_uranus_bigtts",
}

// Regional overrides, checked before the primary subtag.
var regionVoices = map[string]string{
	"es-mx": "multi_male_jingqiangkanye_moon_bigtts",
}

const fallbackLanguage = "es"

var voiceAliases = map[string]string{
	"asistente":  languageVoices["es"],
	"es_default": languageVoices["es"],
	"en_default": languageVoices["en"],
	"zh_default": languageVoices["zh"],
}

// SelectVoice picks a speaker. An explicitly configured voice (or alias)
// wins; otherwise the exact language tag, then its primary subtag, then
// Spanish.
func SelectVoice(language, configured string) string {
	if v := strings.TrimSpace(configured); v != "" {
		if mapped, ok := voiceAliases[strings.ToLower(v)]; ok {
			return mapped
		}
		return v
	}

	tag := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(language), "_", "-"))
	if v, ok := regionVoices[tag]; ok {
		return v
	}
	primary, _, _ := strings.Cut(tag, "-")
	if v, ok := languageVoices[primary]; ok {
		return v
	}
	return languageVoices[fallbackLanguage]
}

// resolveTTSSpeakerCandidates orders the speakers to try: the requested one,
// then the fallback, without duplicates.
func resolveTTSSpeakerCandidates(requested, fallback string) []string {
	var candidates []string
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		if mapped, ok := voiceAliases[strings.ToLower(s)]; ok {
			s = mapped
		}
		for _, existing := range candidates {
			if strings.EqualFold(existing, s) {
				return
			}
		}
		candidates = append(candidates, s)
	}
	add(requested)
	add(fallback)
	if len(candidates) == 0 {
		return []string{languageVoices[fallbackLanguage]}
	}
	return candidates
}

// resolveTTSResourceCandidates lists the resource ids a speaker may live under.
func resolveTTSResourceCandidates(voice string) []string {
	const (
		defaultResource = "volc.service_type.10029"
		megaResource    = "volc.megatts.default"
		seedResource    = "seed-tts-2.0"
	)

	voice = strings.TrimSpace(voice)
	if voice == "" {
		return []string{defaultResource, seedResource}
	}
	if strings.HasPrefix(voice, "S_") {
		return []string{megaResource}
	}

	normalized := strings.ToLower(voice)
	for _, hint := range []string{"bigtts", "seed", "megatts", "uranus", "jupiter", "moon", "mars"} {
		if strings.Contains(normalized, hint) {
			return []string{seedResource, defaultResource}
		}
	}
	return []string{defaultResource, seedResource}
}

func isResourceMismatchError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "resource ID is mismatched with speaker related resource")
}
