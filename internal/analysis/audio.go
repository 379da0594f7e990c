package analysis

import (
	"context"
	"path/filepath"
	"time"

	"github.com/tphakala/snapquote/internal/audio"
	"github.com/tphakala/snapquote/internal/calibration"
	"github.com/tphakala/snapquote/internal/datastore"
	"github.com/tphakala/snapquote/internal/errors"
	"github.com/tphakala/snapquote/internal/features"
	"github.com/tphakala/snapquote/internal/inference"
	"github.com/tphakala/snapquote/internal/locator"
	"github.com/tphakala/snapquote/internal/logger"
	"github.com/tphakala/snapquote/internal/observability/metrics"
)

const (
	DefaultAudioModel  = "toycar_anomaly_detector_improved.tflite"
	DefaultScalerName  = "scaler.json"
	DefaultSampleRate  = 16000
	DefaultFeatureType = string(features.KindMultiple)
)

// ProbabilityScorer maps a feature vector to class probabilities.
type ProbabilityScorer interface {
	Score(features []float64) ([]float64, error)
	Close() error
}

// ClassifierLoader opens a ProbabilityScorer from a model file.
type ClassifierLoader func(path string, threads int) (ProbabilityScorer, error)

func loadTFLiteClassifier(path string, threads int) (ProbabilityScorer, error) {
	c, err := inference.LoadClassifier(path, threads)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// AudioOptions configures an AudioJob.
type AudioOptions struct {
	Input       string
	Model       string // file name or path, resolved through the locator
	Scaler      string // empty auto-locates DefaultScalerName next to the model
	FeatureType string
	SampleRate  int
	Threshold   float64
	MaxDuration time.Duration
	Threads     int
}

// AudioReport is the emitted document of an audio run.
type AudioReport struct {
	Prediction           int     `json:"prediction"`
	Class                string  `json:"class"`
	ProbabilityNormal    float64 `json:"probability_normal"`
	ProbabilityAnomalous float64 `json:"probability_anomalous"`
	Confidence           float64 `json:"confidence"`
	Uncertain            bool    `json:"uncertain"`
	Score                int     `json:"score"`

	model     string
	threshold float64
}

// NewAudioReport converts a calibrated two-class result.
func NewAudioReport(res calibration.Result) (AudioReport, error) {
	if len(res.Probabilities) < 2 {
		return AudioReport{}, errors.Newf("classifier returned %d probabilities, need 2", len(res.Probabilities)).
			Component("analysis").
			Category(errors.CategoryInvalidInput).
			Build()
	}
	return AudioReport{
		Prediction:           res.PredictedClass,
		Class:                string(res.Label),
		ProbabilityNormal:    res.Probabilities[0],
		ProbabilityAnomalous: res.Probabilities[1],
		Confidence:           res.Confidence,
		Uncertain:            res.Uncertain,
		Score:                res.Score,
		threshold:            res.Threshold,
	}, nil
}

// Summary implements Report.
func (r AudioReport) Summary() Summary {
	return Summary{
		Model:          r.model,
		ConfidenceUsed: r.threshold,
		Passes:         1,
		Labels:         []string{r.Class},
	}
}

// AudioJob classifies one audio file as Normal, Anomalous or Uncertain.
type AudioJob struct {
	opts    AudioOptions
	locator *locator.Locator
	metrics *metrics.InferenceMetrics
	loader  ClassifierLoader
	log     logger.Logger

	modelPath  string
	extractor  features.Extractor
	scaler     *features.Scaler
	classifier ProbabilityScorer
}

var _ Job[AudioReport] = (*AudioJob)(nil)

// NewAudioJob returns a job using the TFLite classifier. m may be nil.
func NewAudioJob(opts AudioOptions, loc *locator.Locator, m *metrics.InferenceMetrics) *AudioJob {
	if opts.Model == "" {
		opts.Model = DefaultAudioModel
	}
	if opts.FeatureType == "" {
		opts.FeatureType = DefaultFeatureType
	}
	if opts.SampleRate <= 0 {
		opts.SampleRate = DefaultSampleRate
	}
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = audio.DefaultMaxDuration
	}
	return &AudioJob{
		opts:    opts,
		locator: loc,
		metrics: m,
		loader:  loadTFLiteClassifier,
		log:     GetLogger().Module("audio"),
	}
}

// WithClassifierLoader replaces the model backend.
func (j *AudioJob) WithClassifierLoader(loader ClassifierLoader) *AudioJob {
	j.loader = loader
	return j
}

func (j *AudioJob) Kind() string   { return datastore.KindAudio }
func (j *AudioJob) Source() string { return j.opts.Input }

// Model returns the resolved model path, or the hint before Prepare.
func (j *AudioJob) Model() string {
	if j.modelPath != "" {
		return j.modelPath
	}
	return j.opts.Model
}

// Prepare resolves and loads the model and the scaler. A missing model is
// fatal, a missing scaler only degrades normalization.
func (j *AudioJob) Prepare(_ context.Context) error {
	extractor, err := features.NewExtractor(j.opts.FeatureType)
	if err != nil {
		return err
	}
	j.extractor = extractor

	res := j.locator.Resolve(j.opts.Model, locator.KindModel)
	j.recordArtifact(locator.KindModel, res.Found)
	if err := res.Err(); err != nil {
		return err
	}
	j.modelPath = res.Path
	j.log.Debug("model resolved", logger.String("path", res.Path))

	start := time.Now()
	classifier, err := j.loader(res.Path, j.opts.Threads)
	j.recordDuration(metrics.OpModelLoad, start, err)
	if err != nil {
		return err
	}
	j.classifier = classifier

	j.scaler = j.loadScaler()
	return nil
}

// loadScaler returns nil when the scaler is missing or unusable.
func (j *AudioJob) loadScaler() *features.Scaler {
	hint := j.opts.Scaler
	if hint == "" {
		hint = DefaultScalerName
	}

	res := j.locator.WithExtraDirs(filepath.Dir(j.modelPath)).Resolve(hint, locator.KindScaler)
	j.recordArtifact(locator.KindScaler, res.Found)
	if !res.Found {
		j.log.Warn("scaler not found, using raw features; confidence scores may be unreliable",
			logger.Strings("searched", res.Candidates))
		return nil
	}

	scaler, err := features.LoadScaler(res.Path)
	if err != nil {
		j.log.Warn("failed to load scaler, using raw features; confidence scores may be unreliable",
			logger.String("path", res.Path),
			logger.Error(err))
		return nil
	}
	j.log.Debug("scaler loaded", logger.String("path", res.Path), logger.Int("dim", scaler.Dim()))
	return scaler
}

// Infer decodes the audio, extracts features, scores and calibrates.
func (j *AudioJob) Infer(ctx context.Context) (AudioReport, error) {
	if err := ctx.Err(); err != nil {
		return AudioReport{}, err
	}

	clip, err := audio.ReadFile(j.opts.Input, audio.ReadOptions{
		SampleRate:  j.opts.SampleRate,
		MaxDuration: j.opts.MaxDuration,
	})
	if err != nil {
		return AudioReport{}, err
	}
	j.log.Debug("audio loaded",
		logger.Int("samples", len(clip.Samples)),
		logger.Int("sample_rate", clip.SampleRate))

	start := time.Now()
	vec, err := j.extractor.Extract(clip.Samples, clip.SampleRate)
	j.recordDuration(metrics.OpFeatures, start, err)
	if err != nil {
		return AudioReport{}, err
	}

	if j.scaler != nil {
		scaled, err := j.scaler.Transform(vec)
		if err != nil {
			j.log.Warn("scaler does not fit features, using raw features; confidence scores may be unreliable",
				logger.Error(err))
		} else {
			vec = scaled
		}
	}

	start = time.Now()
	probs, err := j.classifier.Score(vec)
	j.recordDuration(metrics.OpScore, start, err)
	if err != nil {
		if !errors.IsCategory(err, errors.CategoryScorerFailure) {
			err = errors.New(err).
				Component("analysis").
				Category(errors.CategoryScorerFailure).
				ModelContext(j.modelPath, "tflite").
				Build()
		}
		return AudioReport{}, err
	}

	res, err := calibration.New(j.threshold()).Calibrate(probs)
	if err != nil {
		// An unusable vector here means the model produced it.
		return AudioReport{}, errors.New(err).
			Component("analysis").
			Category(errors.CategoryScorerFailure).
			ModelContext(j.modelPath, "tflite").
			Context("output_length", len(probs)).
			Build()
	}
	report, err := NewAudioReport(res)
	if err != nil {
		return AudioReport{}, err
	}
	report.model = j.modelPath

	if j.metrics != nil {
		j.metrics.RecordCalibration(report.Class)
	}
	if report.Uncertain {
		j.log.Debug("prediction uncertain",
			logger.Float64("confidence", report.Confidence),
			logger.Float64("threshold", res.Threshold))
	} else {
		j.log.Debug("prediction",
			logger.String("class", report.Class),
			logger.Float64("confidence", report.Confidence))
	}
	return report, nil
}

// threshold falls back to the default for values outside (0, 1].
func (j *AudioJob) threshold() float64 {
	if err := calibration.Validate(j.opts.Threshold); err != nil {
		j.log.Warn("invalid threshold, using default",
			logger.Float64("default", calibration.DefaultThreshold),
			logger.Error(err))
		return calibration.DefaultThreshold
	}
	return j.opts.Threshold
}

// Close releases the classifier.
func (j *AudioJob) Close() error {
	if j.classifier == nil {
		return nil
	}
	err := j.classifier.Close()
	j.classifier = nil
	return err
}

func (j *AudioJob) recordArtifact(kind locator.Kind, found bool) {
	if j.metrics != nil {
		j.metrics.RecordArtifact(string(kind), found)
	}
}

func (j *AudioJob) recordDuration(op string, start time.Time, err error) {
	recordOp(j.metrics, op, start, err)
}

// recordOp records one timed step on m.
func recordOp(m *metrics.InferenceMetrics, op string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.RecordDuration(op, time.Since(start).Seconds())
	if err != nil {
		m.RecordOperation(op, metrics.StatusError)
		m.RecordError(op, string(errors.CategoryOf(err)))
		return
	}
	m.RecordOperation(op, metrics.StatusSuccess)
}
