package domain

type SpeechEngine string

const (
	EngineNative SpeechEngine = "native"
	EngineRemote SpeechEngine = "remote"
)

const (
	LangEnglish = "en"
	LangBengali = "bn"
)

// SpeechPlan tells the client how to voice a selection.
type SpeechPlan struct {
	Engine       SpeechEngine `json:"engine"`
	Lang         string       `json:"lang"`
	Text         string       `json:"text"`
	Rate         float64      `json:"rate"`
	AudioURL     string       `json:"audio_url,omitempty"`
	PlaybackRate float64      `json:"playback_rate,omitempty"`
}

type TranslationResponse struct {
	Text        string `json:"text"`
	Translation string `json:"translation"`
	Syllables   string `json:"syllables,omitempty"`
}
