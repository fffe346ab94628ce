package models

// Recommendation is the manipulation detector's verdict for downstream gating.
type Recommendation string

const (
	RecommendProceed Recommendation = "proceed"
	RecommendCaution Recommendation = "caution"
	RecommendVeto    Recommendation = "veto"
)

// Pattern tags the dominant manipulation pattern.
type Pattern string

const (
	PatternNone          Pattern = "none"
	PatternSingleOutlier Pattern = "single_venue_outlier"
	PatternVolumeSpike   Pattern = "volume_spike"
	PatternSustained     Pattern = "sustained_manipulation"
	PatternCoordinated   Pattern = "coordinated_manipulation"
)

// DivergenceAnalysis compares every venue to the leading venue.
type DivergenceAnalysis struct {
	Leader        Venue   `json:"leader"`
	Lagging       []Venue `json:"lagging"`
	CVDDivergence float64 `json:"cvd_divergence"`
	VolDivergence float64 `json:"vol_divergence"`
	Score         float64 `json:"score"`
	HasDivergence bool    `json:"has_divergence"`
}

// VenueOutlier describes a single venue that deviates from its peers.
type VenueOutlier struct {
	Venue  Venue   `json:"venue"`
	Metric string  `json:"metric"` // cvd | volume
	ZScore float64 `json:"z_score"`
	Score  float64 `json:"score"`
}

// ManipulationAnalysis is the detector output for one snapshot.
type ManipulationAnalysis struct {
	Detected       bool               `json:"detected"`
	Confidence     float64            `json:"confidence"`
	Pattern        Pattern            `json:"pattern"`
	SuspectVenue   Venue              `json:"suspect_venue,omitempty"`
	Recommendation Recommendation     `json:"recommendation"`
	Divergence     DivergenceAnalysis `json:"divergence"`
	Outliers       []VenueOutlier     `json:"outliers,omitempty"`
	OutlierScore   float64            `json:"outlier_score"`
	VolumeSpike    bool               `json:"volume_spike"`
	Sustained      bool               `json:"sustained"`
	Reasoning      []string           `json:"reasoning,omitempty"`
}
