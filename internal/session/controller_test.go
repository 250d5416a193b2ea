package session

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/digkill/artbox/internal/download"
	"github.com/digkill/artbox/internal/models"
)

type stubGenerator struct {
	calls  int
	prompt string
	count  int
	urls   []string
	err    error
	hook   func()
}

func (g *stubGenerator) Generate(_ context.Context, prompt string, count int) ([]string, error) {
	g.calls++
	g.prompt = prompt
	g.count = count
	if g.hook != nil {
		g.hook()
	}
	if g.err != nil {
		return nil, g.err
	}
	return g.urls, nil
}

type stubSaver struct {
	calls int
	err   error
}

func (s *stubSaver) Save(_ context.Context, url string) (*download.Result, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &download.Result{Path: download.DefaultPath, ContentType: "image/png"}, nil
}

func imageURLs(n int) []string {
	urls := make([]string, n)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://images.example.com/%d.png", i)
	}
	return urls
}

func TestNewControllerStartsWithoutTier(t *testing.T) {
	c := NewController(nil, &stubGenerator{}, nil)
	snap := c.Snapshot()
	if snap.State != StateNoTierSelected || snap.Tier != nil || len(snap.Images) != 0 {
		t.Fatalf("initial snapshot = %+v", snap)
	}
}

func TestGenerateWithoutTierFailsValidation(t *testing.T) {
	gen := &stubGenerator{urls: imageURLs(5)}
	c := NewController(nil, gen, nil)

	_, err := c.Generate(context.Background(), "anything")
	var vErr *ValidationError
	if !errors.As(err, &vErr) || !errors.Is(err, ErrNoTierSelected) {
		t.Fatalf("err = %v, want ValidationError(no tier selected)", err)
	}
	if err.Error() != "no tier selected" {
		t.Fatalf("message = %q", err.Error())
	}
	if gen.calls != 0 {
		t.Fatalf("generator called %d times", gen.calls)
	}
	if snap := c.Snapshot(); len(snap.Images) != 0 || snap.State != StateNoTierSelected {
		t.Fatalf("state changed: %+v", snap)
	}
}

func TestGenerateWithEmptyPromptFailsValidation(t *testing.T) {
	for _, tier := range []models.TierName{models.TierBasic, models.TierPremium, models.TierPro} {
		gen := &stubGenerator{urls: imageURLs(5)}
		c := NewController(nil, gen, nil)
		if err := c.SelectTier(tier); err != nil {
			t.Fatalf("select tier: %v", err)
		}
		_, err := c.Generate(context.Background(), "")
		if !errors.Is(err, ErrEmptyPrompt) {
			t.Fatalf("tier %s: err = %v, want empty prompt", tier, err)
		}
		if gen.calls != 0 {
			t.Fatalf("tier %s: generator called", tier)
		}
	}
}

func TestGenerateDoesNotTrimPrompt(t *testing.T) {
	gen := &stubGenerator{urls: imageURLs(1)}
	c := NewController(nil, gen, nil)
	_ = c.SelectTier(models.TierBasic)
	if _, err := c.Generate(context.Background(), "   "); err != nil {
		t.Fatalf("whitespace prompt rejected: %v", err)
	}
	if gen.prompt != "   " {
		t.Fatalf("prompt = %q", gen.prompt)
	}
}

func TestGenerateRequestsTierQuota(t *testing.T) {
	tests := []struct {
		tier models.TierName
		want int
	}{
		{models.TierBasic, 5},
		{models.TierPremium, 7},
		{models.TierPro, 10},
	}
	for _, tt := range tests {
		gen := &stubGenerator{urls: imageURLs(1)}
		c := NewController(nil, gen, nil)
		_ = c.SelectTier(tt.tier)
		if _, err := c.Generate(context.Background(), "cat"); err != nil {
			t.Fatalf("generate: %v", err)
		}
		if gen.count != tt.want {
			t.Fatalf("tier %s requested %d, want %d", tt.tier, gen.count, tt.want)
		}
	}
}

func TestPremiumScenarioDisplaysSevenImagesInOrder(t *testing.T) {
	urls := imageURLs(7)
	c := NewController(nil, &stubGenerator{urls: urls}, nil)
	if err := c.SelectTier(models.TierPremium); err != nil {
		t.Fatalf("select tier: %v", err)
	}
	if _, err := c.Generate(context.Background(), "a red fox"); err != nil {
		t.Fatalf("generate: %v", err)
	}
	snap := c.Snapshot()
	if snap.State != StateImagesDisplayed {
		t.Fatalf("state = %s", snap.State)
	}
	if len(snap.Images) != 7 {
		t.Fatalf("got %d images, want 7", len(snap.Images))
	}
	for i, img := range snap.Images {
		if img.URL != urls[i] {
			t.Fatalf("image %d = %s, want %s", i, img.URL, urls[i])
		}
	}
	if snap.Prompt != "a red fox" {
		t.Fatalf("prompt = %q", snap.Prompt)
	}
}

func TestGenerateReplacesImagesWholesale(t *testing.T) {
	gen := &stubGenerator{urls: imageURLs(5)}
	c := NewController(nil, gen, nil)
	_ = c.SelectTier(models.TierBasic)
	if _, err := c.Generate(context.Background(), "first"); err != nil {
		t.Fatalf("generate: %v", err)
	}
	gen.urls = []string{"https://images.example.com/x.png", "https://images.example.com/y.png"}
	if _, err := c.Generate(context.Background(), "second"); err != nil {
		t.Fatalf("generate: %v", err)
	}
	snap := c.Snapshot()
	if len(snap.Images) != 2 || snap.Images[0].URL != gen.urls[0] || snap.Images[1].URL != gen.urls[1] {
		t.Fatalf("images = %+v", snap.Images)
	}
}

func TestGenerateFailureKeepsPreviousImages(t *testing.T) {
	gen := &stubGenerator{urls: imageURLs(3)}
	c := NewController(nil, gen, nil)
	_ = c.SelectTier(models.TierBasic)
	if _, err := c.Generate(context.Background(), "first"); err != nil {
		t.Fatalf("generate: %v", err)
	}

	gen.err = errors.New("status=500")
	_, err := c.Generate(context.Background(), "second")
	var gErr *GenerationError
	if !errors.As(err, &gErr) {
		t.Fatalf("err = %v, want GenerationError", err)
	}
	snap := c.Snapshot()
	if len(snap.Images) != 3 || snap.State != StateImagesDisplayed {
		t.Fatalf("previous images lost: %+v", snap)
	}
}

func TestGenerateFailureWithoutImagesStaysTierSelected(t *testing.T) {
	c := NewController(nil, &stubGenerator{err: errors.New("unauthorized")}, nil)
	_ = c.SelectTier(models.TierPro)
	if _, err := c.Generate(context.Background(), "x"); err == nil {
		t.Fatal("expected error")
	}
	if got := c.State(); got != StateTierSelected {
		t.Fatalf("state = %s", got)
	}
}

func TestGenerateRejectsMalformedResponses(t *testing.T) {
	tests := map[string][]string{
		"empty":        {},
		"over quota":   imageURLs(6),
		"relative url": {"/images/1.png"},
	}
	for name, urls := range tests {
		c := NewController(nil, &stubGenerator{urls: urls}, nil)
		_ = c.SelectTier(models.TierBasic)
		_, err := c.Generate(context.Background(), "x")
		var gErr *GenerationError
		if !errors.As(err, &gErr) {
			t.Fatalf("%s: err = %v, want GenerationError", name, err)
		}
		if len(c.Snapshot().Images) != 0 {
			t.Fatalf("%s: images stored", name)
		}
	}
}

func TestRenewDuringGenerationDiscardsResult(t *testing.T) {
	gen := &stubGenerator{urls: imageURLs(2)}
	c := NewController(nil, gen, nil)
	gen.hook = c.Renew
	_ = c.SelectTier(models.TierBasic)

	_, err := c.Generate(context.Background(), "x")
	if !errors.Is(err, ErrSessionRenewed) {
		t.Fatalf("err = %v, want session renewed", err)
	}
	snap := c.Snapshot()
	if snap.State != StateNoTierSelected || len(snap.Images) != 0 {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestSelectTierLocksOtherTiers(t *testing.T) {
	c := NewController(nil, &stubGenerator{}, nil)
	if err := c.SelectTier(models.TierPremium); err != nil {
		t.Fatalf("select: %v", err)
	}
	if err := c.SelectTier(models.TierPremium); err != nil {
		t.Fatalf("reselect same tier: %v", err)
	}
	if err := c.SelectTier(models.TierPro); !errors.Is(err, ErrTierLocked) {
		t.Fatalf("err = %v, want tier locked", err)
	}
	if c.Selectable(models.TierBasic) || !c.Selectable(models.TierPremium) {
		t.Fatal("selectable flags wrong while locked")
	}
	if snap := c.Snapshot(); snap.Tier == nil || snap.Tier.Name != models.TierPremium {
		t.Fatalf("tier = %+v", snap.Tier)
	}

	c.Renew()
	for _, tier := range models.Tiers() {
		if !c.Selectable(tier.Name) {
			t.Fatalf("tier %s locked after renew", tier.Name)
		}
	}
	if err := c.SelectTier(models.TierPro); err != nil {
		t.Fatalf("select after renew: %v", err)
	}
}

func TestSelectTierUnknown(t *testing.T) {
	c := NewController(nil, &stubGenerator{}, nil)
	if err := c.SelectTier("Gold"); !errors.Is(err, ErrUnknownTier) {
		t.Fatalf("err = %v", err)
	}
	if c.State() != StateNoTierSelected {
		t.Fatal("state changed")
	}
}

func TestRenewIsIdempotent(t *testing.T) {
	c := NewController(nil, &stubGenerator{urls: imageURLs(5)}, nil)
	_ = c.SelectTier(models.TierBasic)
	if _, err := c.Generate(context.Background(), "x"); err != nil {
		t.Fatalf("generate: %v", err)
	}

	c.Renew()
	once := c.Snapshot()
	c.Renew()
	twice := c.Snapshot()

	for _, snap := range []Snapshot{once, twice} {
		if snap.State != StateNoTierSelected || snap.Tier != nil || len(snap.Images) != 0 {
			t.Fatalf("snapshot after renew = %+v", snap)
		}
	}
}

func TestSelectImage(t *testing.T) {
	urls := imageURLs(3)
	c := NewController(nil, &stubGenerator{urls: urls}, nil)
	if _, err := c.SelectImage(urls[0]); !errors.Is(err, ErrImageNotDisplayed) {
		t.Fatalf("select before generate: %v", err)
	}
	_ = c.SelectTier(models.TierBasic)
	if _, err := c.Generate(context.Background(), "x"); err != nil {
		t.Fatalf("generate: %v", err)
	}
	img, err := c.SelectImage(urls[1])
	if err != nil || img.URL != urls[1] {
		t.Fatalf("SelectImage = %+v, %v", img, err)
	}
	if _, err := c.SelectImage("https://elsewhere.example.com/z.png"); !errors.Is(err, ErrImageNotDisplayed) {
		t.Fatalf("foreign image: %v", err)
	}
	if c.State() != StateImagesDisplayed {
		t.Fatal("select image changed state")
	}
}

func TestDownloadImageFailure(t *testing.T) {
	saver := &stubSaver{err: errors.New("connection refused")}
	c := NewController(nil, &stubGenerator{urls: imageURLs(2)}, saver)
	_ = c.SelectTier(models.TierBasic)
	if _, err := c.Generate(context.Background(), "x"); err != nil {
		t.Fatalf("generate: %v", err)
	}
	before := c.Snapshot()

	_, err := c.DownloadImage(context.Background(), before.Images[0].URL)
	var dErr *DownloadError
	if !errors.As(err, &dErr) || dErr.URL != before.Images[0].URL {
		t.Fatalf("err = %v, want DownloadError", err)
	}
	after := c.Snapshot()
	if after.State != before.State || len(after.Images) != len(before.Images) {
		t.Fatalf("download changed session: %+v", after)
	}
}

func TestDownloadImageSuccess(t *testing.T) {
	saver := &stubSaver{}
	c := NewController(nil, &stubGenerator{}, saver)
	res, err := c.DownloadImage(context.Background(), "https://images.example.com/1.png")
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if res.Path != download.DefaultPath || saver.calls != 1 {
		t.Fatalf("result = %+v, calls = %d", res, saver.calls)
	}
	if _, err := c.DownloadImage(context.Background(), ""); err == nil {
		t.Fatal("empty url accepted")
	}
	if saver.calls != 1 {
		t.Fatal("saver called for empty url")
	}
}

func TestGenerationAdvancesOnlyOnSuccess(t *testing.T) {
	gen := &stubGenerator{urls: imageURLs(2)}
	c := NewController(nil, gen, nil)
	_ = c.SelectTier(models.TierBasic)
	if got := c.Snapshot().Generation; got != 0 {
		t.Fatalf("initial generation = %d", got)
	}

	if _, err := c.Generate(context.Background(), "first"); err != nil {
		t.Fatalf("generate: %v", err)
	}
	first := c.Snapshot().Generation

	gen.err = errors.New("timeout")
	_, _ = c.Generate(context.Background(), "fails")
	if got := c.Snapshot().Generation; got != first {
		t.Fatalf("failed generation moved counter to %d", got)
	}

	c.Renew()
	_ = c.SelectTier(models.TierBasic)
	gen.err = nil
	if _, err := c.Generate(context.Background(), "after renew"); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got := c.Snapshot().Generation; got <= first {
		t.Fatalf("generation after renew = %d, want > %d", got, first)
	}
}
