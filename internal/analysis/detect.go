package analysis

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/tphakala/snapquote/internal/datastore"
	"github.com/tphakala/snapquote/internal/detection"
	"github.com/tphakala/snapquote/internal/errors"
	"github.com/tphakala/snapquote/internal/inference"
	"github.com/tphakala/snapquote/internal/locator"
	"github.com/tphakala/snapquote/internal/logger"
	"github.com/tphakala/snapquote/internal/observability/metrics"
	"github.com/tphakala/snapquote/internal/quote"
)

// DefaultClassMapName is the class map probed next to the weights.
const DefaultClassMapName = "class_map.json"

// DetectorBackend is a detection.Scorer holding model resources.
type DetectorBackend interface {
	detection.Scorer
	Close() error
}

// DetectorLoader opens a DetectorBackend from a weights file.
type DetectorLoader func(weights string, opts inference.DetectorOptions) (DetectorBackend, error)

func loadTFLiteDetector(weights string, opts inference.DetectorOptions) (DetectorBackend, error) {
	d, err := inference.LoadDetector(weights, opts)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// DefaultPricingName is the pricing table probed for quotes.
const DefaultPricingName = "part_cost.json"

// QuoteOptions enables a repair quote for the detected parts.
type QuoteOptions struct {
	Pricing string // pricing table hint, empty uses DefaultPricingName
	Region  string
}

// DetectOptions configures a DetectJob.
type DetectOptions struct {
	Source   string
	Weights  string
	ClassMap string   // empty uses DefaultClassMapName
	Forced   *float64 // user supplied first-pass threshold
	Policy   detection.RetryPolicy
	Detector inference.DetectorOptions
	Quote    *QuoteOptions // nil disables quoting
}

// DetectReport is the emitted document of a detect run.
type DetectReport struct {
	detection.Batch

	Quote        *quote.Quote     `json:"quote,omitempty"`
	Passes       []detection.Pass `json:"-"`
	FallbackUsed bool             `json:"-"`
	model        string
}

// Summary implements Report.
func (r DetectReport) Summary() Summary {
	s := Summary{
		Model:          r.model,
		ConfidenceUsed: r.ConfidenceUsed,
		Passes:         len(r.Passes),
		FallbackUsed:   r.FallbackUsed,
		Labels:         r.DistinctLabels,
	}
	if r.Quote != nil {
		s.QuoteTotal = r.Quote.Total
		s.Currency = r.Quote.Currency
	}
	return s
}

// DetectJob finds parts in one image with the two-pass threshold policy.
type DetectJob struct {
	opts    DetectOptions
	locator *locator.Locator
	metrics *metrics.InferenceMetrics
	loader  DetectorLoader
	log     logger.Logger

	weightsPath string
	classMap    detection.ClassMap
	pricing     *quote.Table
	backend     DetectorBackend
}

var _ Job[DetectReport] = (*DetectJob)(nil)

// NewDetectJob returns a job using the TFLite detector. m may be nil.
func NewDetectJob(opts DetectOptions, loc *locator.Locator, m *metrics.InferenceMetrics) *DetectJob {
	if opts.ClassMap == "" {
		opts.ClassMap = DefaultClassMapName
	}
	if opts.Quote != nil && opts.Quote.Pricing == "" {
		q := *opts.Quote
		q.Pricing = DefaultPricingName
		opts.Quote = &q
	}
	if opts.Policy == (detection.RetryPolicy{}) {
		opts.Policy = detection.DefaultRetryPolicy()
	}
	return &DetectJob{
		opts:    opts,
		locator: loc,
		metrics: m,
		loader:  loadTFLiteDetector,
		log:     GetLogger().Module("detect"),
	}
}

// WithDetectorLoader replaces the model backend.
func (j *DetectJob) WithDetectorLoader(loader DetectorLoader) *DetectJob {
	j.loader = loader
	return j
}

func (j *DetectJob) Kind() string   { return datastore.KindDetect }
func (j *DetectJob) Source() string { return j.opts.Source }

// Model returns the resolved weights path, or the hint before Prepare.
func (j *DetectJob) Model() string {
	if j.weightsPath != "" {
		return j.weightsPath
	}
	return j.opts.Weights
}

// Prepare checks weights then source, loads the class map once and opens the
// detector.
func (j *DetectJob) Prepare(_ context.Context) error {
	if j.opts.Weights == "" {
		return errors.Newf("weights path is required").
			Component("analysis").
			Category(errors.CategoryArtifactNotFound).
			Build()
	}
	res := j.locator.Resolve(j.opts.Weights, locator.KindModel)
	j.recordArtifact(locator.KindModel, res.Found)
	if err := res.Err(); err != nil {
		return err
	}
	j.weightsPath = res.Path

	if err := checkInput(j.opts.Source); err != nil {
		return err
	}

	j.classMap = j.loadClassMap()
	if j.opts.Quote != nil {
		j.pricing = j.loadPricing()
	}

	start := time.Now()
	backend, err := j.loader(j.weightsPath, j.opts.Detector)
	recordOp(j.metrics, metrics.OpModelLoad, start, err)
	if err != nil {
		return err
	}
	j.backend = backend
	return nil
}

// loadClassMap returns nil when no usable class map exists.
func (j *DetectJob) loadClassMap() detection.ClassMap {
	res := j.locator.WithExtraDirs(filepath.Dir(j.weightsPath)).Resolve(j.opts.ClassMap, locator.KindClassMap)
	j.recordArtifact(locator.KindClassMap, res.Found)
	if !res.Found {
		j.log.Info("class map not found, using default names",
			logger.Strings("searched", res.Candidates))
		return nil
	}
	return detection.LoadClassMap(res.Path)
}

// loadPricing returns the resolved pricing table, or the built-in one when
// the table is missing or unusable.
func (j *DetectJob) loadPricing() *quote.Table {
	res := j.locator.WithExtraDirs(filepath.Dir(j.weightsPath)).Resolve(j.opts.Quote.Pricing, locator.KindPricing)
	j.recordArtifact(locator.KindPricing, res.Found)
	if !res.Found {
		j.log.Info("pricing table not found, using built-in prices",
			logger.Strings("searched", res.Candidates))
		return quote.Default()
	}
	table, err := quote.LoadTable(res.Path)
	if err != nil {
		j.log.Warn("pricing table unusable, using built-in prices",
			logger.String("path", res.Path),
			logger.Error(err))
		return quote.Default()
	}
	return table
}

// Infer runs the retry controller and assembles the batch.
func (j *DetectJob) Infer(ctx context.Context) (DetectReport, error) {
	rc := detection.NewRetryController(&timedScorer{scorer: j.backend, metrics: j.metrics}, j.opts.Policy)
	rc.Logger = j.log

	out, err := rc.Run(ctx, j.opts.Source, j.opts.Forced)
	if err != nil {
		return DetectReport{}, err
	}

	mapper := detection.NewMapper(j.classMap, detection.NamingUnknown)
	batch := detection.Aggregate(mapper.Relabel(out.Detections), out.ConfidenceUsed, j.opts.Source)

	if j.metrics != nil {
		for i := range batch.Detections {
			j.metrics.RecordDetection(batch.Detections[i].MappedLabel)
		}
	}

	j.log.Debug("detection finished",
		logger.Strings("parts", batch.DistinctLabels),
		logger.Int("detections", len(batch.Detections)),
		logger.Float64("confidence_used", batch.ConfidenceUsed))

	report := DetectReport{
		Batch:        batch,
		Passes:       out.Passes,
		FallbackUsed: out.FallbackUsed,
		model:        j.weightsPath,
	}
	if j.pricing != nil {
		start := time.Now()
		q := quote.Estimate(batch, j.pricing, j.opts.Quote.Region)
		recordOp(j.metrics, metrics.OpQuote, start, nil)
		j.log.Debug("quote priced",
			logger.Int("lines", len(q.Lines)),
			logger.Int64("total", q.Total),
			logger.String("currency", q.Currency))
		report.Quote = &q
	}
	return report, nil
}

// Close releases the detector.
func (j *DetectJob) Close() error {
	if j.backend == nil {
		return nil
	}
	err := j.backend.Close()
	j.backend = nil
	return err
}

func (j *DetectJob) recordArtifact(kind locator.Kind, found bool) {
	if j.metrics != nil {
		j.metrics.RecordArtifact(string(kind), found)
	}
}

// timedScorer records every detector pass.
type timedScorer struct {
	scorer  detection.Scorer
	metrics *metrics.InferenceMetrics
}

func (s *timedScorer) Detect(ctx context.Context, source string, threshold float64) ([]detection.RawDetection, error) {
	start := time.Now()
	dets, err := s.scorer.Detect(ctx, source, threshold)
	recordOp(s.metrics, metrics.OpDetectPass, start, err)
	return dets, err
}

// checkInput reports a missing or unreadable input file as InputNotFound.
func checkInput(path string) error {
	info, err := os.Stat(path)
	if err == nil && !info.IsDir() {
		return nil
	}
	if err == nil {
		err = errors.NewStd("path is a directory")
	}
	return errors.Newf("input file not found: %s", path).
		Component("analysis").
		Category(errors.CategoryInputNotFound).
		Context("path", path).
		Context("cause", err.Error()).
		Build()
}
