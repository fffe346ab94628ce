package manipulation

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"FlowHunter/internal/domain/models"
	"FlowHunter/pkg/config"
	"FlowHunter/pkg/logger"
)

// Deviations within this fraction of the peer mean are noise, however small
// the peers' spread.
const minRelDeviation = 0.1

// CoordinationDetector recognizes several venues moving together against
// the rest of the market. No heuristic ships with the detector.
type CoordinationDetector interface {
	Detect(series string, flows []models.ExchangeFlow) (bool, string)
}

type Option func(*Detector)

// WithCoordinationDetector plugs in a coordinated-manipulation heuristic.
func WithCoordinationDetector(cd CoordinationDetector) Option {
	return func(d *Detector) { d.coord = cd }
}

// Detector checks whether one venue is distorting the cross-venue flow.
type Detector struct {
	log   *logger.Logger
	coord CoordinationDetector

	mu      sync.Mutex
	cfg     config.ManipulationConfig
	tracker *tracker
}

func NewDetector(cfg config.ManipulationConfig, log *logger.Logger, opts ...Option) *Detector {
	d := &Detector{
		log:     log.With(logger.String("component", "manipulation")),
		cfg:     cfg,
		tracker: newTracker(cfg.SustainedWindows),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SetConfig swaps thresholds. Sustained history survives unless the window
// count changes.
func (d *Detector) SetConfig(cfg config.ManipulationConfig) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if cfg.SustainedWindows != d.cfg.SustainedWindows {
		d.tracker = newTracker(cfg.SustainedWindows)
	}
	d.cfg = cfg
}

// Analyze runs divergence, outlier and spike checks over the connected
// flows and folds the result into the sustained history of series, one
// entry per window period.
func (d *Detector) Analyze(series string, window time.Duration, at time.Time, flows []models.ExchangeFlow) models.ManipulationAnalysis {
	d.mu.Lock()
	defer d.mu.Unlock()
	cfg := d.cfg

	connected := make([]models.ExchangeFlow, 0, len(flows))
	for _, f := range flows {
		if f.Connected() {
			connected = append(connected, f)
		}
	}
	sort.Slice(connected, func(i, j int) bool { return connected[i].Venue < connected[j].Venue })

	res := models.ManipulationAnalysis{
		Pattern:        models.PatternNone,
		Recommendation: models.RecommendProceed,
	}
	res.Divergence = Divergence(connected, cfg.LagRatio, cfg.DivergenceThreshold)
	if res.Divergence.HasDivergence {
		res.Reasoning = append(res.Reasoning, fmt.Sprintf("divergence score %.1f, leader %s, lagging %v",
			res.Divergence.Score, res.Divergence.Leader, res.Divergence.Lagging))
	}

	res.Outliers = Outliers(connected, cfg.OutlierSigma)
	var outlierVenue models.Venue
	for _, o := range res.Outliers {
		if o.Score > res.OutlierScore {
			res.OutlierScore = o.Score
			outlierVenue = o.Venue
		}
		res.Reasoning = append(res.Reasoning, fmt.Sprintf("%s %s deviates %.1fσ from peers", o.Venue, o.Metric, o.ZScore))
	}

	spikeVenue, spike := VolumeSpike(connected, cfg.VolumeSpikeMultiple)
	res.VolumeSpike = spike
	if spike {
		res.Reasoning = append(res.Reasoning, fmt.Sprintf("%s volume above %.1fx peer average", spikeVenue, cfg.VolumeSpikeMultiple))
	}

	d.tracker.record(series, window, at, outlierVenue)
	sustainedVenue, sustained := d.tracker.sustained(series, cfg.SustainedRatio)
	res.Sustained = sustained

	var coordinated bool
	var coordReason string
	if d.coord != nil {
		coordinated, coordReason = d.coord.Detect(series, connected)
	}

	switch {
	case coordinated:
		res.Pattern = models.PatternCoordinated
		res.Reasoning = append(res.Reasoning, coordReason)
	case sustained:
		res.Pattern = models.PatternSustained
		res.SuspectVenue = sustainedVenue
		res.Reasoning = append(res.Reasoning, fmt.Sprintf("%s flagged in %.0f%%+ of recent windows", sustainedVenue, cfg.SustainedRatio*100))
	case outlierVenue != "":
		res.Pattern = models.PatternSingleOutlier
		res.SuspectVenue = outlierVenue
	case spike:
		res.Pattern = models.PatternVolumeSpike
		res.SuspectVenue = spikeVenue
	}

	spikeScore := 0.0
	if spike {
		spikeScore = 100
	}
	res.Confidence = clamp(0.4*res.OutlierScore+0.4*res.Divergence.Score+0.2*spikeScore, 0, 100)
	switch {
	case res.Confidence >= cfg.VetoAt:
		res.Recommendation = models.RecommendVeto
	case res.Confidence >= cfg.CautionAt:
		res.Recommendation = models.RecommendCaution
	}
	res.Detected = res.Recommendation != models.RecommendProceed

	if res.Detected {
		d.log.Debug("manipulation suspected",
			logger.String("series", series),
			logger.String("pattern", string(res.Pattern)),
			logger.String("venue", string(res.SuspectVenue)),
			logger.Float64("confidence", res.Confidence))
	}
	return res
}

// Divergence compares every connected venue to the one with the largest
// absolute CVD. Score blends CVD divergence (60%) and volume divergence (40%).
func Divergence(connected []models.ExchangeFlow, lagRatio, threshold float64) models.DivergenceAnalysis {
	var out models.DivergenceAnalysis
	if len(connected) < 2 {
		return out
	}
	leader := connected[0]
	for _, f := range connected[1:] {
		if math.Abs(f.CVD) > math.Abs(leader.CVD) {
			leader = f
		}
	}
	out.Leader = leader.Venue

	var cvdDiv, volDiv float64
	n := 0
	for _, f := range connected {
		if f.Venue == leader.Venue {
			continue
		}
		n++
		if leader.CVD*f.CVD < 0 || math.Abs(f.CVD) < lagRatio*math.Abs(leader.CVD) {
			out.Lagging = append(out.Lagging, f.Venue)
		}
		cvdDiv += relDiff(leader.CVD, f.CVD)
		volDiv += relDiff(leader.Volume, f.Volume)
	}
	out.CVDDivergence = 100 * cvdDiv / float64(n)
	out.VolDivergence = 100 * volDiv / float64(n)
	out.Score = clamp(0.6*out.CVDDivergence+0.4*out.VolDivergence, 0, 100)
	out.HasDivergence = out.Score > threshold
	return out
}

// Outliers flags venues whose CVD or volume deviates from the mean of the
// other connected venues by more than k standard deviations.
func Outliers(connected []models.ExchangeFlow, k float64) []models.VenueOutlier {
	if len(connected) < 3 || k <= 0 {
		return nil
	}
	var out []models.VenueOutlier
	for _, metric := range []string{"cvd", "volume"} {
		values := make([]float64, len(connected))
		for i, f := range connected {
			if metric == "cvd" {
				values[i] = f.CVD
			} else {
				values[i] = f.Volume
			}
		}
		for i, f := range connected {
			mean, sd := meanStd(values, i)
			dev := math.Abs(values[i] - mean)
			if dev == 0 || dev <= minRelDeviation*math.Abs(mean) {
				continue
			}
			z := 2 * k
			if sd > 0 {
				z = dev / sd
			}
			if z <= k {
				continue
			}
			out = append(out, models.VenueOutlier{Venue: f.Venue, Metric: metric, ZScore: z, Score: clamp(100*z/(2*k), 0, 100)})
		}
	}
	return out
}

// VolumeSpike reports the venue with the largest volume when it exceeds
// multiple times the average of the others.
func VolumeSpike(connected []models.ExchangeFlow, multiple float64) (models.Venue, bool) {
	if len(connected) < 2 || multiple <= 0 {
		return "", false
	}
	var total float64
	for _, f := range connected {
		total += f.Volume
	}
	var best models.Venue
	var bestRatio float64
	for _, f := range connected {
		others := (total - f.Volume) / float64(len(connected)-1)
		if others <= 0 {
			continue
		}
		if r := f.Volume / others; r > multiple && r > bestRatio {
			best, bestRatio = f.Venue, r
		}
	}
	return best, best != ""
}

// meanStd returns the population mean and deviation of values without values[skip].
func meanStd(values []float64, skip int) (float64, float64) {
	var sum float64
	n := 0
	for i, v := range values {
		if i != skip {
			sum += v
			n++
		}
	}
	mean := sum / float64(n)
	var sq float64
	for i, v := range values {
		if i != skip {
			sq += (v - mean) * (v - mean)
		}
	}
	return mean, math.Sqrt(sq / float64(n))
}

func relDiff(a, b float64) float64 {
	den := math.Abs(a) + math.Abs(b)
	if den == 0 {
		return 0
	}
	return math.Abs(a-b) / den
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
