package extract

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/tenderworks/boqd/internal/chunker"
	"github.com/tenderworks/boqd/internal/document"
)

// scriptedCompleter returns canned responses keyed by call order.
type scriptedCompleter struct {
	responses []func() ([]byte, error)
	calls     int
}

func (s *scriptedCompleter) Complete(ctx context.Context, system, user string) ([]byte, error) {
	i := s.calls
	s.calls++
	if i >= len(s.responses) {
		return nil, fmt.Errorf("unexpected call %d", i)
	}
	return s.responses[i]()
}

func okResponse(desc string, confidence float64) func() ([]byte, error) {
	return func() ([]byte, error) {
		return []byte(fmt.Sprintf(
			`{"items":[{"description":%q,"confidence":0.9}],"metadata":{"confidence":%f,"items_found":1}}`,
			desc, confidence)), nil
	}
}

func failResponse(msg string) func() ([]byte, error) {
	return func() ([]byte, error) { return nil, fmt.Errorf("%s", msg) }
}

func segments(n int) []chunker.Segment {
	segs := make([]chunker.Segment, n)
	for i := range segs {
		segs[i] = chunker.Segment{
			Text:          fmt.Sprintf("chunk %d text", i),
			Index:         i,
			TotalSegments: n,
			SourcePage:    i + 1,
		}
	}
	return segs
}

func TestExtractSegments_PerChunkFailureIsolation(t *testing.T) {
	client := &scriptedCompleter{responses: []func() ([]byte, error){
		okResponse("Item from chunk 0", 0.9),
		failResponse("boom"),
		okResponse("Item from chunk 2", 0.7),
	}}
	e := NewExtractor(client, nil, nil)

	result := e.ExtractSegments(context.Background(), segments(3), Context{})
	if result.TotalChunks != 3 {
		t.Errorf("total chunks: %d", result.TotalChunks)
	}
	if result.SuccessfulChunks != 2 || result.FailedChunks != 1 {
		t.Errorf("success/fail: %d/%d", result.SuccessfulChunks, result.FailedChunks)
	}
	if len(result.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(result.Items))
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "chunk 1") {
		t.Errorf("errors: %v", result.Errors)
	}
	// Items carry their source chunk and page.
	if result.Items[0].SourceChunk != 0 || result.Items[0].SourcePage != 1 {
		t.Errorf("item 0 source: chunk=%d page=%d", result.Items[0].SourceChunk, result.Items[0].SourcePage)
	}
	if result.Items[1].SourceChunk != 2 || result.Items[1].SourcePage != 3 {
		t.Errorf("item 1 source: chunk=%d page=%d", result.Items[1].SourceChunk, result.Items[1].SourcePage)
	}
	// Average over successful chunks only.
	if want := (0.9 + 0.7) / 2; result.AverageConfidence != want {
		t.Errorf("average confidence: got %f, want %f", result.AverageConfidence, want)
	}
}

func TestExtractSegments_RetriesTransientErrors(t *testing.T) {
	client := &scriptedCompleter{responses: []func() ([]byte, error){
		func() ([]byte, error) { return nil, &RetryableError{StatusCode: 503, Message: "overloaded"} },
		okResponse("Recovered item", 0.8),
	}}
	e := NewExtractor(client, nil, nil)

	result := e.ExtractSegments(context.Background(), segments(1), Context{})
	if result.SuccessfulChunks != 1 || result.FailedChunks != 0 {
		t.Fatalf("expected recovery after retry: %+v", result)
	}
	if client.calls != 2 {
		t.Errorf("expected 2 calls, got %d", client.calls)
	}
}

func TestExtractSegments_NonRetryableFailsImmediately(t *testing.T) {
	client := &scriptedCompleter{responses: []func() ([]byte, error){
		failResponse("bad request"),
	}}
	e := NewExtractor(client, nil, nil)

	result := e.ExtractSegments(context.Background(), segments(1), Context{})
	if result.FailedChunks != 1 {
		t.Fatalf("expected failure: %+v", result)
	}
	if client.calls != 1 {
		t.Errorf("non-retryable error should not be retried, got %d calls", client.calls)
	}
}

func TestExtractSegments_CancellationKeepsPartialResults(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	client := &scriptedCompleter{responses: []func() ([]byte, error){
		func() ([]byte, error) {
			cancel() // cancel after the first call succeeds
			return okResponse("First item", 0.9)()
		},
	}}
	e := NewExtractor(client, nil, nil)

	result := e.ExtractSegments(ctx, segments(3), Context{})
	if result.SuccessfulChunks != 1 {
		t.Errorf("expected 1 successful chunk, got %d", result.SuccessfulChunks)
	}
	if result.FailedChunks != 2 {
		t.Errorf("expected remaining chunks recorded as failed, got %d", result.FailedChunks)
	}
	if len(result.Items) != 1 {
		t.Errorf("partial results must be kept, got %d items", len(result.Items))
	}
}

func TestExtractTable_TagsSourcePage(t *testing.T) {
	client := &scriptedCompleter{responses: []func() ([]byte, error){
		okResponse("Row item", 0.9),
	}}
	e := NewExtractor(client, nil, nil)

	table := &document.Table{
		Headers:    []string{"Item", "Qty"},
		Rows:       [][]string{{"1", "5"}},
		PageNumber: 12,
	}
	result := e.ExtractTable(context.Background(), table, Context{})
	if result.SuccessfulChunks != 1 {
		t.Fatalf("expected success: %+v", result)
	}
	if result.Items[0].SourcePage != 12 {
		t.Errorf("source page: %d", result.Items[0].SourcePage)
	}
}

func TestExtractTable_MalformedResponseIsIsolated(t *testing.T) {
	client := &scriptedCompleter{responses: []func() ([]byte, error){
		func() ([]byte, error) { return []byte(`{"wrong": "shape"}`), nil },
	}}
	e := NewExtractor(client, nil, nil)

	result := e.ExtractTable(context.Background(), &document.Table{Headers: []string{"A"}}, Context{})
	if result.FailedChunks != 1 || len(result.Errors) != 1 {
		t.Fatalf("expected isolated failure: %+v", result)
	}
}

func TestResultMerge_WeightedConfidence(t *testing.T) {
	a := Result{TotalChunks: 2, SuccessfulChunks: 2, AverageConfidence: 0.9}
	b := Result{TotalChunks: 1, SuccessfulChunks: 1, AverageConfidence: 0.6,
		Items: []Item{{Description: "x"}}}
	a.Merge(b)

	if a.TotalChunks != 3 || a.SuccessfulChunks != 3 {
		t.Errorf("counts: %+v", a)
	}
	if want := (0.9*2 + 0.6*1) / 3; a.AverageConfidence < want-1e-9 || a.AverageConfidence > want+1e-9 {
		t.Errorf("confidence: got %f, want %f", a.AverageConfidence, want)
	}
	if len(a.Items) != 1 {
		t.Errorf("items not merged")
	}
}
