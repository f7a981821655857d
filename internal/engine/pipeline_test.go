package engine

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/miradorstack/churn-explainer/internal/classifier"
	"github.com/miradorstack/churn-explainer/internal/dataset"
	"github.com/miradorstack/churn-explainer/internal/models"
	"github.com/miradorstack/churn-explainer/internal/utils"
)

type fakeExplainer struct {
	text    string
	err     error
	calls   int
	risk    float64
	surname string
}

func (f *fakeExplainer) Explain(_ context.Context, risk float64, _ []models.Feature, surname string, _ *dataset.Dataset) (string, error) {
	f.calls++
	f.risk = risk
	f.surname = surname
	return f.text, f.err
}

func loadRegistry(t *testing.T) *classifier.Registry {
	t.Helper()
	sources := []classifier.Source{
		{Name: "xgb_model", Label: "XGBoost"},
		{Name: "rfc_model", Label: "Random Forest"},
		{Name: "knn_model", Label: "K-Nearest Neighbors"},
		{Name: "gnb_model", Label: "Naive Bayes"},
	}
	reg, err := classifier.LoadRegistry("../../models", sources, []string{"xgb_model", "rfc_model", "knn_model"}, nil)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	return reg
}

func loadDataset(t *testing.T) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.Load("../dataset/testdata/customers.csv")
	if err != nil {
		t.Fatalf("dataset.Load: %v", err)
	}
	return ds
}

func riskyInputs() *models.CustomerInputs {
	return &models.CustomerInputs{
		CreditScore: 650, Geography: models.GeographyGermany, Gender: models.GenderFemale,
		Age: 55, Tenure: 5, Balance: 100000, NumOfProducts: 1,
		HasCrCard: true, IsActiveMember: false, EstimatedSalary: 100000,
	}
}

func safeInputs() *models.CustomerInputs {
	in := riskyInputs()
	in.Age = 30
	in.NumOfProducts = 3
	in.IsActiveMember = true
	in.Geography = models.GeographyFrance
	return in
}

func TestAggregate(t *testing.T) {
	risk, err := Aggregate([]models.ModelScore{{Probability: 0.2}, {Probability: 0.4}, {Probability: 0.9}})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if risk < 0.4999 || risk > 0.5001 {
		t.Fatalf("expected mean 0.5, got %f", risk)
	}
	if _, err := Aggregate(nil); !errors.Is(err, ErrNoScores) {
		t.Fatalf("expected ErrNoScores, got %v", err)
	}
}

func TestPipelinePredictScenario(t *testing.T) {
	explainer := &fakeExplainer{text: "They hold one product and are inactive."}
	p := NewPipeline(nil, loadRegistry(t), loadDataset(t), explainer, 0.6)

	risky, err := p.Predict(context.Background(), models.PredictionRequest{CustomerID: 102, Inputs: riskyInputs()})
	if err != nil {
		t.Fatalf("Predict risky: %v", err)
	}
	safe, err := p.Predict(context.Background(), models.PredictionRequest{CustomerID: 102, Inputs: safeInputs()})
	if err != nil {
		t.Fatalf("Predict safe: %v", err)
	}

	if risky.Risk <= safe.Risk {
		t.Fatalf("expected risky customer to score higher: %f <= %f", risky.Risk, safe.Risk)
	}
	if risky.Risk < 0.65 || risky.Risk > 0.67 {
		t.Fatalf("unexpected risky aggregate %f", risky.Risk)
	}
	if len(risky.Scores) != 3 || risky.Scores[0].Label != "XGBoost" {
		t.Fatalf("expected the three aggregate scores in order, got %+v", risky.Scores)
	}
	if risky.Band != models.RiskBandHigh || safe.Band != models.RiskBandLow {
		t.Fatalf("unexpected bands %s / %s", risky.Band, safe.Band)
	}
	if risky.Surname != "Baker" || explainer.surname != "Baker" {
		t.Fatalf("expected surname from the dataset, got %q", risky.Surname)
	}
	if risky.Explanation == "" || risky.ExplanationError != "" {
		t.Fatalf("expected explanation, got %+v", risky)
	}
	if risky.PredictionID == "" || risky.PredictionID == safe.PredictionID {
		t.Fatalf("expected unique prediction ids")
	}
	if len(risky.Features) != 13 || risky.Charts.Gauge.Color != "red" {
		t.Fatalf("unexpected features or gauge: %d %s", len(risky.Features), risky.Charts.Gauge.Color)
	}
	if explainer.risk != risky.Risk {
		t.Fatalf("explainer received risk %f, want %f", explainer.risk, risky.Risk)
	}
}

func TestPipelinePredictIsIdempotent(t *testing.T) {
	p := NewPipeline(nil, loadRegistry(t), loadDataset(t), nil, 0)
	req := models.PredictionRequest{CustomerID: 103, SkipExplanation: true}
	first, err := p.Predict(context.Background(), req)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	second, err := p.Predict(context.Background(), req)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if first.Risk != second.Risk {
		t.Fatalf("risk changed between runs: %f vs %f", first.Risk, second.Risk)
	}
	for i := range first.Scores {
		if first.Scores[i] != second.Scores[i] {
			t.Fatalf("score %d changed: %+v vs %+v", i, first.Scores[i], second.Scores[i])
		}
	}
	for i := range first.Features {
		if first.Features[i] != second.Features[i] {
			t.Fatalf("feature %d changed", i)
		}
	}
}

func TestPipelineExplanationFailureKeepsScores(t *testing.T) {
	explainer := &fakeExplainer{err: utils.NewAppError(utils.KindRemoteService, "test", "service unavailable", nil)}
	p := NewPipeline(nil, loadRegistry(t), loadDataset(t), explainer, 0.6)

	res, err := p.Predict(context.Background(), models.PredictionRequest{CustomerID: 101})
	if err != nil {
		t.Fatalf("remote failure must not abort the prediction: %v", err)
	}
	if len(res.Scores) != 3 || res.Risk <= 0 {
		t.Fatalf("expected numeric results, got %+v", res)
	}
	if res.ExplanationError == "" || res.Explanation != "" {
		t.Fatalf("expected explanation error, got %+v", res)
	}
}

func TestPipelineSkipExplanation(t *testing.T) {
	explainer := &fakeExplainer{text: "unused"}
	p := NewPipeline(nil, loadRegistry(t), loadDataset(t), explainer, 0.6)
	if _, err := p.Predict(context.Background(), models.PredictionRequest{CustomerID: 101, SkipExplanation: true}); err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if explainer.calls != 0 {
		t.Fatalf("expected no explanation call, got %d", explainer.calls)
	}
}

func TestPipelineResolveErrors(t *testing.T) {
	p := NewPipeline(nil, loadRegistry(t), loadDataset(t), nil, 0.6)

	_, err := p.Predict(context.Background(), models.PredictionRequest{CustomerID: 999})
	if !utils.IsKind(err, utils.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	_, err = p.Predict(context.Background(), models.PredictionRequest{})
	if !utils.IsKind(err, utils.KindInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}

	res, err := p.Predict(context.Background(), models.PredictionRequest{Inputs: riskyInputs(), Surname: "Walk-in", SkipExplanation: true})
	if err != nil {
		t.Fatalf("ad-hoc prediction: %v", err)
	}
	if res.CustomerID != 0 || res.Surname != "Walk-in" {
		t.Fatalf("unexpected ad-hoc result %+v", res)
	}
}

func TestPipelineInspect(t *testing.T) {
	p := NewPipeline(nil, loadRegistry(t), loadDataset(t), nil, 0.6)
	res, err := p.Inspect(models.PredictionRequest{CustomerID: 104})
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if len(res.Scores) != 4 || res.Scores[3].Model != "gnb_model" {
		t.Fatalf("expected every model scored, got %+v", res.Scores)
	}
	if len(res.Aggregate) != 3 {
		t.Fatalf("expected aggregate names, got %v", res.Aggregate)
	}
}

func TestScorerSchemaMismatch(t *testing.T) {
	model, err := classifier.Build(classifier.Artifact{
		Name: "odd", Kind: classifier.KindLinearSVM,
		Features: []string{"Age", "Surname_Length"},
		SVM:      &classifier.SVMSpec{Coef: []float64{0.1, 0.1}},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	reg, err := classifier.NewRegistry([]classifier.Entry{{Name: "odd", Model: model}}, []string{"odd"})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	p := NewPipeline(nil, reg, loadDataset(t), nil, 0.6)
	_, err = p.Predict(context.Background(), models.PredictionRequest{CustomerID: 101, SkipExplanation: true})
	if !utils.IsKind(err, utils.KindSchemaMismatch) {
		t.Fatalf("expected schema mismatch, got %v", err)
	}
}

func TestInspectScoresEngineeredAndResampledModels(t *testing.T) {
	sources := []classifier.Source{
		{Name: "xgb_model"},
		{Name: "rfc_model"},
		{Name: "knn_model"},
		{Name: "xgb_featureengineering"},
		{Name: "xgb_smote"},
	}
	reg, err := classifier.LoadRegistry("../../models", sources, []string{"xgb_model", "rfc_model", "knn_model"}, nil)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	p := NewPipeline(nil, reg, loadDataset(t), nil, 0.6)

	res, err := p.Inspect(models.PredictionRequest{Inputs: riskyInputs()})
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	want := map[string]float64{"xgb_featureengineering": 0.4784, "xgb_smote": 0.8581}
	for _, s := range res.Scores {
		if w, ok := want[s.Model]; ok && math.Abs(s.Probability-w) > 1e-3 {
			t.Fatalf("%s scored %f, want %f", s.Model, s.Probability, w)
		}
	}
	if len(res.Scores) != 5 {
		t.Fatalf("expected five scores, got %+v", res.Scores)
	}

	// extra models never move the headline risk
	pred, err := p.Predict(context.Background(), models.PredictionRequest{Inputs: riskyInputs(), SkipExplanation: true})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if len(pred.Scores) != 3 || pred.Risk < 0.65 || pred.Risk > 0.67 {
		t.Fatalf("unexpected aggregate %f over %d scores", pred.Risk, len(pred.Scores))
	}
}
