package services

import (
	"context"
	"errors"
	"net"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/churn-explainer/internal/api"
	"github.com/miradorstack/churn-explainer/internal/classifier"
	"github.com/miradorstack/churn-explainer/internal/config"
	"github.com/miradorstack/churn-explainer/internal/dataset"
	"github.com/miradorstack/churn-explainer/internal/engine"
	"github.com/miradorstack/churn-explainer/internal/models"
)

type stubExplainer struct {
	err error
}

func (s stubExplainer) Explain(context.Context, float64, []models.Feature, string, *dataset.Dataset) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "Stub explanation.", nil
}

func newTestService(t *testing.T, explainer engine.Explainer) *PredictionService {
	t.Helper()
	reg, err := classifier.LoadRegistry("../../models", []classifier.Source{
		{Name: "xgb_model", Label: "XGBoost"},
		{Name: "rfc_model", Label: "Random Forest"},
		{Name: "knn_model", Label: "K-Nearest Neighbors"},
		{Name: "svm_model"},
	}, []string{"xgb_model", "rfc_model", "knn_model"}, nil)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	ds, err := dataset.Load("../dataset/testdata/customers.csv")
	if err != nil {
		t.Fatalf("dataset.Load: %v", err)
	}
	return NewPredictionService(nil, engine.NewPipeline(nil, reg, ds, explainer, 0.6), reg, ds)
}

func dialService(t *testing.T, svc api.ChurnPredictorServer) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := api.NewServerWithListener(config.ServerConfig{}, lis, svc)
	go func() { _ = srv.Start() }()
	t.Cleanup(func() { srv.Shutdown(context.Background()) })

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("grpc.NewClient: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func mustStruct(t *testing.T, v map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(v)
	if err != nil {
		t.Fatalf("NewStruct: %v", err)
	}
	return s
}

func TestGRPCPredict(t *testing.T) {
	conn := dialService(t, newTestService(t, stubExplainer{}))

	out := new(structpb.Struct)
	err := conn.Invoke(context.Background(), api.PredictMethod, mustStruct(t, map[string]any{"customer_id": 102}), out)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	fields := out.GetFields()
	if fields["surname"].GetStringValue() != "Baker" {
		t.Fatalf("unexpected surname %v", fields["surname"])
	}
	if risk := fields["risk"].GetNumberValue(); risk <= 0 || risk > 1 {
		t.Fatalf("unexpected risk %v", risk)
	}
	if scores := fields["scores"].GetListValue().GetValues(); len(scores) != 3 {
		t.Fatalf("expected 3 scores, got %d", len(scores))
	}
	if fields["explanation"].GetStringValue() != "Stub explanation." {
		t.Fatalf("unexpected explanation %v", fields["explanation"])
	}
}

func TestGRPCPredictExplanationFailure(t *testing.T) {
	conn := dialService(t, newTestService(t, stubExplainer{err: errors.New("upstream 503")}))

	out := new(structpb.Struct)
	err := conn.Invoke(context.Background(), api.PredictMethod, mustStruct(t, map[string]any{"customer_id": 101}), out)
	if err != nil {
		t.Fatalf("remote failure must not fail the call: %v", err)
	}
	if out.GetFields()["explanation_error"].GetStringValue() == "" {
		t.Fatalf("expected explanation_error in response")
	}
}

func TestGRPCErrorCodes(t *testing.T) {
	conn := dialService(t, newTestService(t, stubExplainer{}))
	ctx := context.Background()

	err := conn.Invoke(ctx, api.PredictMethod, mustStruct(t, map[string]any{"customer_id": 999}), new(structpb.Struct))
	if status.Code(err) != codes.NotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}

	bad := mustStruct(t, map[string]any{
		"customer_id": 101,
		"inputs": map[string]any{
			"credit_score": 200, "geography": "France", "gender": "Male", "age": 30,
			"tenure": 1, "balance": 0, "num_of_products": 1, "estimated_salary": 1000,
		},
	})
	err = conn.Invoke(ctx, api.PredictMethod, bad, new(structpb.Struct))
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument for credit score 200, got %v", err)
	}

	err = conn.Invoke(ctx, api.PredictMethod, mustStruct(t, map[string]any{}), new(structpb.Struct))
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument without customer or inputs, got %v", err)
	}
}

func TestGRPCInspectAndList(t *testing.T) {
	conn := dialService(t, newTestService(t, stubExplainer{}))
	ctx := context.Background()

	inspected := new(structpb.Struct)
	if err := conn.Invoke(ctx, api.InspectMethod, mustStruct(t, map[string]any{"customer_id": 103}), inspected); err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if n := len(inspected.GetFields()["scores"].GetListValue().GetValues()); n != 4 {
		t.Fatalf("expected every model scored, got %d", n)
	}

	listed := new(structpb.Struct)
	if err := conn.Invoke(ctx, api.ListCustomersMethod, &structpb.Struct{}, listed); err != nil {
		t.Fatalf("ListCustomers: %v", err)
	}
	customers := listed.GetFields()["customers"].GetListValue().GetValues()
	if len(customers) != 4 {
		t.Fatalf("expected 4 customers, got %d", len(customers))
	}
	if label := customers[0].GetStructValue().GetFields()["label"].GetStringValue(); label != "101 - Adams" {
		t.Fatalf("unexpected label %q", label)
	}

	health := new(structpb.Struct)
	if err := conn.Invoke(ctx, api.HealthCheckMethod, &structpb.Struct{}, health); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
	if health.GetFields()["status"].GetStringValue() != "SERVING" {
		t.Fatalf("unexpected health %v", health)
	}
}

func TestCustomerLookup(t *testing.T) {
	svc := newTestService(t, nil)
	if _, err := svc.Customer(101); err != nil {
		t.Fatalf("Customer: %v", err)
	}
	if _, err := svc.Customer(5); err == nil {
		t.Fatalf("expected not found")
	}
	if got := len(svc.Models()); got != 4 {
		t.Fatalf("expected 4 models, got %d", got)
	}
}
