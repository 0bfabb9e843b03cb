package ai

import (
	"context"
	"math"
	"strings"
	"testing"
)

func TestFakeProvider_EmbedDeterministic(t *testing.T) {
	f := NewFakeProvider(8)
	ctx := context.Background()

	a1, err := f.Embed(ctx, "manufacturing deficiencies")
	if err != nil {
		t.Fatal(err)
	}
	a2, _ := f.Embed(ctx, "manufacturing deficiencies")
	b, _ := f.Embed(ctx, "clinical trial design")

	if len(a1) != 8 {
		t.Fatalf("dimension: got %d", len(a1))
	}
	for i := range a1 {
		if a1[i] != a2[i] {
			t.Fatal("same text should embed identically")
		}
	}
	same := true
	for i := range a1 {
		if a1[i] != b[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("different texts should embed differently")
	}

	var sum float64
	for _, v := range a1 {
		sum += float64(v) * float64(v)
	}
	if math.Abs(sum-1.0) > 1e-5 {
		t.Errorf("expected unit length, got norm² %v", sum)
	}
}

func TestFakeProvider_DefaultDimension(t *testing.T) {
	f := NewFakeProvider(0)
	v, err := f.Embed(context.Background(), "x")
	if err != nil {
		t.Fatal(err)
	}
	if len(v) != 1536 {
		t.Errorf("default dimension: got %d, want 1536", len(v))
	}
}

func TestFakeProvider_EmbedBatch(t *testing.T) {
	f := NewFakeProvider(4)
	vs, err := f.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatal(err)
	}
	if len(vs) != 3 || len(vs[1]) != 4 {
		t.Errorf("got %d vectors", len(vs))
	}
}

func TestFakeProvider_Summarize(t *testing.T) {
	f := NewFakeProvider(4)
	ctx := context.Background()

	if _, err := f.Summarize(ctx, ""); err == nil {
		t.Error("expected error for empty text")
	}

	s, err := f.Summarize(ctx, "We have completed our review of this application.")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(s, "[DRY-RUN SUMMARY] ") {
		t.Errorf("got %q", s)
	}
	if !strings.Contains(s, "completed our review") {
		t.Errorf("summary should echo the letter head: %q", s)
	}

	long := strings.Repeat("deficiency ", 100)
	s, _ = f.Summarize(ctx, long)
	if len(s) > len("[DRY-RUN SUMMARY] ")+fakeSummaryChars+3 {
		t.Errorf("summary too long: %d chars", len(s))
	}
	if !strings.HasSuffix(s, "...") {
		t.Errorf("truncated summary should end with ellipsis: %q", s[len(s)-20:])
	}
}

func TestFakeProvider_Answer(t *testing.T) {
	f := NewFakeProvider(4)
	blocks := []ContextBlock{
		{ApplicationNumber: "NDA-1", CompanyName: "Acme", Text: "letter one"},
		{ApplicationNumber: "BLA-2", CompanyName: "Beta", Text: "letter two"},
	}
	a, err := f.Answer(context.Background(), "Why was the application rejected?", blocks)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(a, "2 retrieved letters") {
		t.Errorf("got %q", a)
	}
}

func TestHeadOfText_WordBoundary(t *testing.T) {
	// last space (index 16) falls in the final fifth of the window
	s := headOfText("alpha beta gamma delta", 19)
	if s != "alpha beta gamma..." {
		t.Errorf("got %q", s)
	}
	// last space too early for a boundary break, hard cut instead
	s = headOfText("alpha betagammadeltaepsilon", 20)
	if s != "alpha betagammadelta..." {
		t.Errorf("got %q", s)
	}
	if got := headOfText("short", 20); got != "short" {
		t.Errorf("got %q", got)
	}
}
