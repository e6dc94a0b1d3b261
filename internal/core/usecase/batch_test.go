package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kirillkom/news-classifier/internal/core/domain"
)

func TestPredictBatchPreservesOrderAndIsolatesFailures(t *testing.T) {
	classifier := newClassifierFake()
	classifier.failFor["B"] = domain.WrapError(domain.ErrInference, "predict", errors.New("injected"))
	uc := NewPredictUseCase(classifier, newCacheFake(), nil, Config{BatchConcurrency: 3})

	batch, err := uc.PredictBatch(context.Background(), []string{"A", "B", "C"}, true)
	if err != nil {
		t.Fatalf("PredictBatch() error = %v", err)
	}
	if len(batch.Items) != 3 {
		t.Fatalf("expected 3 slots, got %d", len(batch.Items))
	}

	for i, text := range []string{"A", "B", "C"} {
		item := batch.Items[i]
		if item.Index != i || item.Text != text {
			t.Fatalf("slot %d holds index=%d text=%q", i, item.Index, item.Text)
		}
	}
	if batch.Items[0].Err != nil || batch.Items[0].Result == nil {
		t.Fatalf("item 0 must succeed: %v", batch.Items[0].Err)
	}
	if !domain.IsKind(batch.Items[1].Err, domain.ErrInference) || batch.Items[1].Result != nil {
		t.Fatalf("item 1 must fail with ErrInference: %v", batch.Items[1].Err)
	}
	if batch.Items[2].Err != nil || batch.Items[2].Result == nil {
		t.Fatalf("item 2 must succeed: %v", batch.Items[2].Err)
	}
}

func TestPredictBatchRejectsOversizedBatchBeforeDispatch(t *testing.T) {
	classifier := newClassifierFake()
	uc := NewPredictUseCase(classifier, nil, nil, Config{BatchMaxItems: 100})

	texts := make([]string, 101)
	for i := range texts {
		texts[i] = "headline"
	}
	_, err := uc.PredictBatch(context.Background(), texts, true)
	if !domain.IsKind(err, domain.ErrBatchTooLarge) {
		t.Fatalf("expected ErrBatchTooLarge, got %v", err)
	}
	if classifier.invocations() != 0 {
		t.Fatalf("oversized batch must not invoke the classifier, got %d calls", classifier.invocations())
	}
}

func TestPredictBatchRejectsEmptyBatch(t *testing.T) {
	uc := NewPredictUseCase(newClassifierFake(), nil, nil, Config{})
	_, err := uc.PredictBatch(context.Background(), nil, true)
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestPredictBatchInvalidItemFillsOnlyItsSlot(t *testing.T) {
	uc := NewPredictUseCase(newClassifierFake(), nil, nil, Config{})

	batch, err := uc.PredictBatch(context.Background(), []string{"fine", "", "also fine"}, false)
	if err != nil {
		t.Fatalf("PredictBatch() error = %v", err)
	}
	if !domain.IsKind(batch.Items[1].Err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput in slot 1, got %v", batch.Items[1].Err)
	}
	if batch.Items[0].Err != nil || batch.Items[2].Err != nil {
		t.Fatalf("sibling items must be unaffected")
	}
}

type slowClassifier struct {
	*classifierFake
	delays map[string]time.Duration
}

func (s *slowClassifier) Infer(ctx context.Context, text string) (domain.LabelDistribution, error) {
	if d, ok := s.delays[text]; ok {
		time.Sleep(d)
	}
	return s.classifierFake.Infer(ctx, text)
}

func TestPredictBatchOrderIndependentOfCompletionOrder(t *testing.T) {
	classifier := &slowClassifier{
		classifierFake: newClassifierFake(),
		delays: map[string]time.Duration{
			"first":  30 * time.Millisecond,
			"second": 10 * time.Millisecond,
			"third":  1 * time.Millisecond,
		},
	}
	uc := NewPredictUseCase(classifier, nil, nil, Config{BatchConcurrency: 3})

	batch, err := uc.PredictBatch(context.Background(), []string{"first", "second", "third"}, false)
	if err != nil {
		t.Fatalf("PredictBatch() error = %v", err)
	}
	for i, want := range []string{"first", "second", "third"} {
		if batch.Items[i].Text != want {
			t.Fatalf("slot %d: got %q, want %q", i, batch.Items[i].Text, want)
		}
	}
}
