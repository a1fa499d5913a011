package ai

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rustyeddy/autotrader/market"
	"github.com/rustyeddy/autotrader/strategies"
)

const (
	StrategyName     = "AI_ML"
	MinBars          = 200
	DefaultThreshold = 0.75

	minFeatureRows = 100
	minAlignedRows = 50
	minBinaryRows  = 30
	splitSeed      = 42
)

var (
	ErrInsufficientData = errors.New("insufficient data for training")
	ErrNotTrained       = errors.New("models are not trained")
)

// Prediction is one model's vote.
type Prediction struct {
	Model      string
	Buy        bool
	Confidence float64
}

// Info describes the generator state.
type Info struct {
	Trained      bool
	Models       []string
	FeatureCount int
	Threshold    float64
	TrainedAt    time.Time
	Accuracy     map[string]float64
}

// Generator trains the ensemble lazily on the first window it sees and then
// scores the latest bar of each new window.
type Generator struct {
	mu        sync.Mutex
	log       *zap.Logger
	newModels func() []Classifier
	models    []Classifier
	threshold float64
	trained   bool
	trainedAt time.Time
	accuracy  map[string]float64
}

func NewGenerator(log *zap.Logger) *Generator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Generator{
		log:       log,
		threshold: DefaultThreshold,
		newModels: func() []Classifier {
			return []Classifier{NewRandomForest(), NewGradientBoosting(), NewLogisticRegression()}
		},
	}
}

// SetThreshold accepts values in [0.5, 1.0].
func (g *Generator) SetThreshold(t float64) error {
	if t < 0.5 || t > 1.0 {
		return fmt.Errorf("invalid confidence threshold %.2f (must be between 0.5 and 1.0)", t)
	}
	g.mu.Lock()
	g.threshold = t
	g.mu.Unlock()
	g.log.Info("ai confidence threshold updated", zap.Float64("threshold", t))
	return nil
}

func (g *Generator) Info() Info {
	g.mu.Lock()
	defer g.mu.Unlock()

	info := Info{
		Trained:      g.trained,
		FeatureCount: len(FeatureNames),
		Threshold:    g.threshold,
		TrainedAt:    g.trainedAt,
		Accuracy:     map[string]float64{},
	}
	for _, m := range g.models {
		info.Models = append(info.Models, m.Name())
	}
	for k, v := range g.accuracy {
		info.Accuracy[k] = v
	}
	return info
}

// Retrain discards the current models and fits new ones on candles.
func (g *Generator) Retrain(candles []market.Candle) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.trained = false
	return g.train(candles)
}

func (g *Generator) train(candles []market.Candle) error {
	feats := BuildFeatures(candles)
	if feats.Len() < minFeatureRows {
		return fmt.Errorf("%w: %d feature rows", ErrInsufficientData, feats.Len())
	}

	labels, ok := Labels(market.Closes(candles), lookahead, labelThreshold)
	var X [][]float64
	var y []int
	aligned := 0
	for r, ci := range feats.Index {
		if !ok[ci] {
			continue
		}
		aligned++
		if labels[ci] == Hold {
			continue
		}
		X = append(X, feats.Rows[r])
		if labels[ci] == Buy {
			y = append(y, 1)
		} else {
			y = append(y, 0)
		}
	}
	if aligned < minAlignedRows {
		return fmt.Errorf("%w: %d aligned rows", ErrInsufficientData, aligned)
	}
	if len(X) < minBinaryRows {
		return fmt.Errorf("%w: %d buy/sell rows", ErrInsufficientData, len(X))
	}

	xTrain, xTest, yTrain, yTest := trainTestSplit(X, y, 0.2, splitSeed)

	g.log.Info("training ai models", zap.Int("rows", len(xTrain)), zap.Int("holdout", len(xTest)))
	var models []Classifier
	acc := map[string]float64{}
	for _, m := range g.newModels() {
		p := &pipeline{model: m}
		if err := p.Fit(xTrain, yTrain); err != nil {
			g.log.Warn("model training failed", zap.String("model", m.Name()), zap.Error(err))
			continue
		}
		acc[m.Name()] = accuracy(p, xTest, yTest)
		g.log.Info("model trained", zap.String("model", m.Name()), zap.Float64("accuracy", acc[m.Name()]))
		models = append(models, p)
	}
	if len(models) == 0 {
		return errors.New("no models successfully trained")
	}

	g.models = models
	g.accuracy = acc
	g.trained = true
	g.trainedAt = time.Now().UTC()
	return nil
}

// Generate scores the latest bar. It trains first if needed and returns
// false when there is too little data or the vote is not confident enough.
func (g *Generator) Generate(symbol string, candles []market.Candle) (strategies.Signal, bool) {
	if len(candles) < MinBars {
		return strategies.Signal{}, false
	}
	feats := BuildFeatures(candles)
	if feats.Len() == 0 {
		return strategies.Signal{}, false
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.trained {
		if err := g.train(candles); err != nil {
			g.log.Warn("ai training skipped", zap.Error(err))
			return strategies.Signal{}, false
		}
	}

	x := feats.Last()
	preds := make([]Prediction, 0, len(g.models))
	for _, m := range g.models {
		p := m.PredictProba(x)
		if math.IsNaN(p) {
			continue
		}
		preds = append(preds, Prediction{Model: m.Name(), Buy: p >= 0.5, Confidence: math.Max(p, 1-p)})
	}

	sig, ok := Vote(preds, g.threshold)
	if !ok {
		return strategies.Signal{}, false
	}
	sig.Symbol = symbol
	sig.Time = candles[len(candles)-1].Time
	g.log.Info("ai signal", zap.String("side", sig.Side.String()), zap.Float64("confidence", sig.Confidence))
	return sig, true
}

// Vote combines per-model predictions. Each model adds its confidence to
// the side it predicts. The ensemble abstains when the mean confidence or
// the winning side's share is below threshold.
func Vote(preds []Prediction, threshold float64) (strategies.Signal, bool) {
	if len(preds) == 0 {
		return strategies.Signal{}, false
	}

	var buy, sell, total float64
	for _, p := range preds {
		if p.Buy {
			buy += p.Confidence
		} else {
			sell += p.Confidence
		}
		total += p.Confidence
	}
	if total/float64(len(preds)) < threshold {
		return strategies.Signal{}, false
	}

	side, conf := market.Sell, sell/(buy+sell)
	if buy > sell {
		side, conf = market.Buy, buy/(buy+sell)
	}
	if conf < threshold {
		return strategies.Signal{}, false
	}

	return strategies.Signal{
		Side:       side,
		Strategy:   StrategyName,
		Confidence: conf,
		Price:      0,
		Reason:     fmt.Sprintf("AI ensemble vote (%d models)", len(preds)),
		Meta: map[string]float64{
			"buy_votes":   buy,
			"sell_votes":  sell,
			"model_count": float64(len(preds)),
		},
	}, true
}
