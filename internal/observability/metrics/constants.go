package metrics

// Operation names accepted by Recorder implementations.
const (
	OpAudioRun     = "audio_run"
	OpDetectRun    = "detect_run"
	OpModelLoad    = "model_load"
	OpFeatures     = "features"
	OpScore        = "score"
	OpDetectPass   = "detect_pass"
	OpQuote        = "quote"
	OpHistorySave  = "history_save"
	OpHistoryQuery = "history_query"
	OpPublish      = "publish"
)

// Status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusFound   = "found"
	StatusMissing = "missing"
)
