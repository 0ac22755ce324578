package pipeline_test

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/broistadev/broista/internal/alias"
	"github.com/broistadev/broista/internal/catalog"
	"github.com/broistadev/broista/internal/extract"
	"github.com/broistadev/broista/internal/extract/llmextract"
	"github.com/broistadev/broista/internal/match"
	"github.com/broistadev/broista/internal/observe"
	"github.com/broistadev/broista/internal/order"
	"github.com/broistadev/broista/internal/pipeline"
	embedmock "github.com/broistadev/broista/pkg/provider/embeddings/mock"
	"github.com/broistadev/broista/pkg/provider/llm"
	llmmock "github.com/broistadev/broista/pkg/provider/llm/mock"
)

func testProducts() []catalog.Product {
	return []catalog.Product{
		{ID: "1", Name: "Golden Eagle", Price: 5.00, Categories: []string{"coffee"}},
		{ID: "2", Name: "White Mocha", Price: 5.25, Categories: []string{"coffee"}},
		{ID: "3", Name: "Zebra Cake Smoothie", Price: 6.00, Categories: []string{"smoothie"}},
		{ID: "4", Name: "Hot Cocoa", Price: 3.50, Categories: []string{"kids"}},
	}
}

func testMetrics(t *testing.T) *observe.Metrics {
	t.Helper()
	m, err := observe.NewMetrics(sdkmetric.NewMeterProvider())
	if err != nil {
		t.Fatalf("NewMetrics returned error: %v", err)
	}
	return m
}

// newTestPipeline assembles a pipeline over the test catalog with an LLM mock
// as the candidate source and the token-hash embeddings mock for matching.
func newTestPipeline(t *testing.T, lp *llmmock.Provider, ep *embedmock.Provider) *pipeline.Pipeline {
	t.Helper()

	store := catalog.NewMemStore(testProducts(), nil)
	matcher, err := match.New(context.Background(), store, ep, alias.New(alias.DefaultTables()))
	if err != nil {
		t.Fatalf("match.New returned error: %v", err)
	}

	return pipeline.New(
		llmextract.New(lp),
		extract.NewNormalizer(),
		matcher,
		order.NewComposer(store),
		pipeline.WithMetrics(testMetrics(t)),
	)
}

func TestPipeline_ProcessText_Success(t *testing.T) {
	t.Parallel()

	lp := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{
			Content: `[{"product":"golden eagle","size":"large","temp":"hot","mods":[],"qty":1}]`,
		},
	}
	p := newTestPipeline(t, lp, &embedmock.Provider{})

	res := p.ProcessText(context.Background(), "can i get a large hot golden eagle")

	if !res.Success {
		t.Fatalf("Success=false, error=%q", res.Error)
	}
	if res.Transcription.Source != "text_input" || res.Transcription.Confidence != 1.0 {
		t.Errorf("Transcription=%+v, want text_input at confidence 1", res.Transcription)
	}
	if res.Extraction.Count != 1 {
		t.Fatalf("Extraction.Count=%d, want 1", res.Extraction.Count)
	}
	if res.Matching.MatchedCount != 1 || res.Matching.UnmatchedCount != 0 {
		t.Fatalf("Matching counts=%d/%d, want 1/0", res.Matching.MatchedCount, res.Matching.UnmatchedCount)
	}
	if len(res.Flags) != 0 {
		t.Errorf("Flags=%v, want none for a confident match", res.Flags)
	}

	if res.Order == nil {
		t.Fatal("Order is nil")
	}
	if len(res.Order.Items) != 1 {
		t.Fatalf("got %d order items, want 1", len(res.Order.Items))
	}
	it := res.Order.Items[0]
	if it.Name != "Golden Eagle" {
		t.Errorf("item Name=%q, want Golden Eagle", it.Name)
	}
	if it.Size != "large" || it.Temperature != "hot" {
		t.Errorf("item size/temp=%q/%q, want large/hot", it.Size, it.Temperature)
	}
	if res.Order.CustomerName != "Voice Customer" {
		t.Errorf("CustomerName=%q, want pipeline default", res.Order.CustomerName)
	}
}

func TestPipeline_LowConfidenceFlag(t *testing.T) {
	t.Parallel()

	// Only one of the three meaningful product words appears in the
	// transcript, which drags extraction confidence down to 0.48; averaged
	// with a perfect match score that lands below the review threshold.
	lp := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{
			Content: `[{"product":"zebra cake smoothie","qty":1}]`,
		},
	}
	p := newTestPipeline(t, lp, &embedmock.Provider{})

	res := p.ProcessText(context.Background(), "zebra please")

	if !res.Success {
		t.Fatalf("Success=false, error=%q", res.Error)
	}
	if res.Matching.MatchedCount != 1 {
		t.Fatalf("MatchedCount=%d, want 1", res.Matching.MatchedCount)
	}
	if len(res.Flags) != 1 {
		t.Fatalf("got %d flags, want 1: %+v", len(res.Flags), res.Flags)
	}
	flag := res.Flags[0]
	if flag.Reason != pipeline.ReasonLowConfidence {
		t.Errorf("flag Reason=%q, want %q", flag.Reason, pipeline.ReasonLowConfidence)
	}
	if flag.Action != pipeline.ActionReview {
		t.Errorf("flag Action=%q, want %q", flag.Action, pipeline.ActionReview)
	}
	if flag.Confidence >= 0.75 {
		t.Errorf("flag Confidence=%v, want below the review threshold", flag.Confidence)
	}
}

func TestPipeline_NotInMenuFlag(t *testing.T) {
	t.Parallel()

	lp := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{
			Content: `[{"product":"not so hot","size":"kids","qty":1}]`,
		},
	}
	p := newTestPipeline(t, lp, &embedmock.Provider{})

	res := p.ProcessText(context.Background(), "a kids not so hot please")

	if !res.Success {
		t.Fatalf("Success=false, error=%q", res.Error)
	}
	if res.Matching.UnmatchedCount != 1 {
		t.Fatalf("UnmatchedCount=%d, want 1", res.Matching.UnmatchedCount)
	}
	if len(res.Flags) != 1 || res.Flags[0].Reason != pipeline.ReasonNotInMenu {
		t.Fatalf("Flags=%+v, want a single not_in_menu flag", res.Flags)
	}
	if res.Flags[0].Action != pipeline.ActionManualSelection {
		t.Errorf("flag Action=%q, want %q", res.Flags[0].Action, pipeline.ActionManualSelection)
	}
	if len(res.Flags[0].Suggestions) == 0 {
		t.Error("flag Suggestions empty, want alternatives")
	}

	// The unmatched item still reaches the order as a placeholder line.
	if res.Order == nil || len(res.Order.Items) != 1 {
		t.Fatal("order missing the placeholder line")
	}
	it := res.Order.Items[0]
	if !it.RequiresManualSelection || it.UnitPrice != 0 {
		t.Errorf("placeholder line=%+v, want manual selection at zero price", it)
	}
	if len(it.Suggestions) == 0 {
		t.Error("placeholder line has no suggestions")
	}
}

func TestPipeline_NoMatchFlag(t *testing.T) {
	t.Parallel()

	// Pin orthogonal vectors so the off-menu phrase shares no semantic mass
	// with any catalog product.
	pinned := map[string][]float32{"spaghetti dinner": pinnedVec(63)}
	for i, name := range []string{
		"golden eagle", "white mocha", "zebra cake smoothie", "hot cocoa",
	} {
		pinned[name] = pinnedVec(i)
	}

	lp := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{
			Content: `[{"product":"spaghetti dinner","qty":1}]`,
		},
	}
	p := newTestPipeline(t, lp, &embedmock.Provider{Vectors: pinned})

	res := p.ProcessText(context.Background(), "one spaghetti dinner please")

	if !res.Success {
		t.Fatalf("Success=false, error=%q", res.Error)
	}
	if res.Matching.UnmatchedCount != 1 {
		t.Fatalf("UnmatchedCount=%d, want 1", res.Matching.UnmatchedCount)
	}
	if len(res.Flags) != 1 || res.Flags[0].Reason != pipeline.ReasonNoMatch {
		t.Fatalf("Flags=%+v, want a single no_match flag", res.Flags)
	}
	if res.Flags[0].Action != pipeline.ActionManualEntry {
		t.Errorf("flag Action=%q, want %q", res.Flags[0].Action, pipeline.ActionManualEntry)
	}

	if res.Order == nil || len(res.Order.Items) != 1 {
		t.Fatal("order missing the placeholder line")
	}
	if got := res.Order.Items[0].Name; got != "spaghetti dinner" {
		t.Errorf("placeholder Name=%q, want the customer phrasing", got)
	}
}

func pinnedVec(i int) []float32 {
	v := make([]float32, embedmock.Dimensions)
	v[i] = 1
	return v
}

func TestPipeline_SourceErrorFailsResult(t *testing.T) {
	t.Parallel()

	lp := &llmmock.Provider{CompleteErr: errors.New("backend down")}
	p := newTestPipeline(t, lp, &embedmock.Provider{})

	res := p.ProcessText(context.Background(), "a mocha")

	if res.Success {
		t.Fatal("Success=true, want false when extraction fails")
	}
	if !strings.Contains(res.Error, "backend down") {
		t.Errorf("Error=%q, want the provider error surfaced", res.Error)
	}
	if res.Order != nil {
		t.Errorf("Order=%+v, want nil on failure", res.Order)
	}
}

// panicSource triggers the pipeline's panic recovery path.
type panicSource struct{}

func (panicSource) Extract(context.Context, string) ([]extract.Candidate, error) {
	panic("stage blew up")
}

func TestPipeline_RecoversFromPanic(t *testing.T) {
	t.Parallel()

	store := catalog.NewMemStore(testProducts(), nil)
	matcher, err := match.New(context.Background(), store, &embedmock.Provider{}, alias.New(alias.DefaultTables()))
	if err != nil {
		t.Fatalf("match.New returned error: %v", err)
	}
	p := pipeline.New(
		panicSource{},
		extract.NewNormalizer(),
		matcher,
		order.NewComposer(store),
		pipeline.WithMetrics(testMetrics(t)),
	)

	res := p.ProcessText(context.Background(), "anything")

	if res.Success {
		t.Fatal("Success=true, want false after a panic")
	}
	if !strings.Contains(res.Error, "internal error") || !strings.Contains(res.Error, "stage blew up") {
		t.Errorf("Error=%q, want the recovered panic message", res.Error)
	}
}

func TestPipeline_Deterministic(t *testing.T) {
	t.Parallel()

	lp := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{
			Content: `[{"product":"golden eagle","size":"large","temp":"hot","mods":["soft top"],"qty":2},{"product":"white mocha","qty":1}]`,
		},
	}
	p := newTestPipeline(t, lp, &embedmock.Provider{})

	const text = "two large hot golden eagles with soft top and a white mocha"
	first := p.ProcessText(context.Background(), text)
	second := p.ProcessText(context.Background(), text)

	if !first.Success || !second.Success {
		t.Fatalf("Success=%v/%v, errors=%q/%q", first.Success, second.Success, first.Error, second.Error)
	}
	if !reflect.DeepEqual(first.Extraction, second.Extraction) {
		t.Errorf("extraction differs between runs:\n%+v\n%+v", first.Extraction, second.Extraction)
	}
	if !reflect.DeepEqual(first.Matching, second.Matching) {
		t.Errorf("matching differs between runs:\n%+v\n%+v", first.Matching, second.Matching)
	}
	if !reflect.DeepEqual(first.Flags, second.Flags) {
		t.Errorf("flags differ between runs:\n%+v\n%+v", first.Flags, second.Flags)
	}

	a := normalizedOrder(t, first.Order)
	b := normalizedOrder(t, second.Order)
	if !reflect.DeepEqual(a, b) {
		t.Errorf("orders differ between runs:\n%+v\n%+v", a, b)
	}
}

// normalizedOrder strips the freshly generated IDs and the composition
// timestamp so two runs can be compared structurally.
func normalizedOrder(t *testing.T, o *order.Order) order.Order {
	t.Helper()
	if o == nil {
		t.Fatal("Order is nil")
	}

	c := *o
	c.ID = ""
	c.CreatedAt = time.Time{}
	c.Items = append([]order.LineItem(nil), o.Items...)
	for i := range c.Items {
		c.Items[i].ID = ""
		c.Items[i].Modifiers = append([]order.ModifierLine(nil), c.Items[i].Modifiers...)
		for j := range c.Items[i].Modifiers {
			c.Items[i].Modifiers[j].ID = ""
		}
	}
	return c
}

// Not parallel: swaps the global tracer provider.
func TestPipeline_StageSpans(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	lp := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{
			Content: `[{"product":"golden eagle","size":"large","temp":"hot","mods":[],"qty":1}]`,
		},
	}
	p := newTestPipeline(t, lp, &embedmock.Provider{})

	res := p.ProcessText(context.Background(), "a large hot golden eagle")
	if !res.Success {
		t.Fatalf("Success=false, error=%q", res.Error)
	}

	seen := map[string]bool{}
	for _, s := range rec.Ended() {
		seen[s.Name()] = true
	}
	for _, name := range []string{
		"pipeline.process", "pipeline.extract", "pipeline.match", "pipeline.compose",
	} {
		if !seen[name] {
			t.Errorf("span %q was not recorded", name)
		}
	}
}

func TestPipeline_ProcessTranscript(t *testing.T) {
	t.Parallel()

	lp := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: `[]`},
	}
	p := newTestPipeline(t, lp, &embedmock.Provider{})

	res := p.ProcessTranscript(context.Background(), "mumbled audio", 0.42)

	if !res.Success {
		t.Fatalf("Success=false, error=%q", res.Error)
	}
	if res.Transcription.Source != "speech" || res.Transcription.Confidence != 0.42 {
		t.Errorf("Transcription=%+v, want speech at 0.42", res.Transcription)
	}
	if res.Extraction.Count != 0 {
		t.Errorf("Extraction.Count=%d, want 0", res.Extraction.Count)
	}
}
