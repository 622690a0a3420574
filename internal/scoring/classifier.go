package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"collarwatch/internal/model"
)

var degradedScores = promauto.NewCounter(prometheus.CounterOpts{
	Name: "collarwatch_model_degraded_total",
	Help: "Scores served from the safe default because the model was unavailable or failed",
})

// Scorer is the opaque scoring backend: a scaled feature row in, the raw
// model outputs back. Backends may return either a single probability array
// or a (predictions, probabilities) pair; the Classifier sorts that out.
type Scorer interface {
	Probabilities(ctx context.Context, row []float64) ([][]float64, error)
}

// Artifact is the trained-model metadata loaded once at startup: feature
// column order, standard-scaler parameters and the class label table.
type Artifact struct {
	FeatureNames []string          `json:"feature_names"`
	Scaler       ScalerParams      `json:"scaler"`
	Labels       map[string]string `json:"labels"`
}

// ScalerParams are per-column standardization parameters.
type ScalerParams struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// LoadArtifact reads and checks the model metadata file.
func LoadArtifact(path string) (*Artifact, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model artifact: %w", err)
	}
	var a Artifact
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("parse model artifact: %w", err)
	}
	if len(a.FeatureNames) == 0 {
		return nil, fmt.Errorf("model artifact: no feature names")
	}
	if len(a.Scaler.Mean) != len(a.FeatureNames) || len(a.Scaler.Scale) != len(a.FeatureNames) {
		return nil, fmt.Errorf("model artifact: scaler size %d/%d does not match %d features",
			len(a.Scaler.Mean), len(a.Scaler.Scale), len(a.FeatureNames))
	}
	return &a, nil
}

// ScoreResult is the classifier's verdict for one reading.
type ScoreResult struct {
	ClassIndex  int     `json:"aggression_level"`
	Label       string  `json:"aggression_label"`
	Probability float64 `json:"probability"`
	Degraded    bool    `json:"-"`
}

// safeDefault is returned whenever scoring cannot run. Ingestion must never
// be held hostage by the model backend.
func safeDefault() ScoreResult {
	return ScoreResult{ClassIndex: int(model.AggressionCalm), Label: "CALM", Probability: 0.1, Degraded: true}
}

// Classifier wraps the opaque scoring backend with the artifact's column
// order, scaling and label table. A Classifier constructed without an
// artifact or backend runs permanently degraded.
type Classifier struct {
	artifact *Artifact
	scorer   Scorer
}

// NewClassifier builds the adapter. Both arguments may be nil; the result is
// then a degraded classifier that always answers with the safe default.
func NewClassifier(artifact *Artifact, scorer Scorer) *Classifier {
	return &Classifier{artifact: artifact, scorer: scorer}
}

// Ready reports whether the classifier can actually invoke the model.
func (c *Classifier) Ready() bool { return c.artifact != nil && c.scorer != nil }

// FeatureOrder exposes the artifact's column order for the transform. Nil
// when the classifier is degraded.
func (c *Classifier) FeatureOrder() []string {
	if c.artifact == nil {
		return nil
	}
	return c.artifact.FeatureNames
}

// Score classifies one reading. It never returns an error: any failure along
// the way degrades to the safe default and is counted and logged so silent
// model unavailability stays observable.
func (c *Classifier) Score(ctx context.Context, r *model.SensorReading, dog model.DogAttributes) ScoreResult {
	if !c.Ready() {
		degradedScores.Inc()
		return safeDefault()
	}

	vec, err := Vector(r, dog, c.artifact.FeatureNames)
	if err != nil {
		log.Printf("classifier: feature transform failed, using safe default: %v", err)
		degradedScores.Inc()
		return safeDefault()
	}

	scaled := make([]float64, len(vec))
	for i, v := range vec {
		s := c.artifact.Scaler.Scale[i]
		if s == 0 {
			s = 1
		}
		scaled[i] = (v - c.artifact.Scaler.Mean[i]) / s
	}

	outputs, err := c.scorer.Probabilities(ctx, scaled)
	if err != nil {
		log.Printf("classifier: scoring backend failed, using safe default: %v", err)
		degradedScores.Inc()
		return safeDefault()
	}

	probs, ok := pickDistribution(outputs)
	if !ok {
		log.Printf("classifier: backend returned no probability distribution, using safe default")
		degradedScores.Inc()
		return safeDefault()
	}

	idx, p := argmax(probs)
	return ScoreResult{ClassIndex: idx, Label: c.label(idx), Probability: p}
}

// pickDistribution selects the probability array from the backend outputs.
// Backends return either [probs] or [predictions, probs].
func pickDistribution(outputs [][]float64) ([]float64, bool) {
	switch len(outputs) {
	case 1:
		if len(outputs[0]) == 0 {
			return nil, false
		}
		return outputs[0], true
	case 2:
		if len(outputs[1]) == 0 {
			return nil, false
		}
		return outputs[1], true
	default:
		return nil, false
	}
}

// argmax returns the first maximum, so exact ties resolve to the lowest
// class index.
func argmax(probs []float64) (int, float64) {
	best, bestP := 0, probs[0]
	for i, p := range probs[1:] {
		if p > bestP {
			best, bestP = i+1, p
		}
	}
	return best, bestP
}

func (c *Classifier) label(idx int) string {
	if l, ok := c.artifact.Labels[strconv.Itoa(idx)]; ok {
		return l
	}
	return strconv.Itoa(idx)
}

// HTTPScorer invokes a model-serving endpoint over HTTP. The client timeout
// is the implicit bound that keeps a hung backend from blocking ingestion.
type HTTPScorer struct {
	url    string
	client *http.Client
}

// NewHTTPScorer points the scorer at a model server base URL.
func NewHTTPScorer(baseURL string) *HTTPScorer {
	return &HTTPScorer{
		url:    baseURL + "/predict",
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

type predictRequest struct {
	Rows [][]float64 `json:"rows"`
}

type predictResponse struct {
	Outputs [][]float64 `json:"outputs"`
}

// Probabilities posts one scaled row and returns the server's raw outputs.
func (s *HTTPScorer) Probabilities(ctx context.Context, row []float64) ([][]float64, error) {
	body, err := json.Marshal(predictRequest{Rows: [][]float64{row}})
	if err != nil {
		return nil, fmt.Errorf("marshal predict request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build predict request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call model server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("model server returned %d", resp.StatusCode)
	}

	var out predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode predict response: %w", err)
	}
	return out.Outputs, nil
}
