package domain

import (
	"encoding/json"
	"testing"
	"time"
)

func TestJobKindValid(t *testing.T) {
	for _, kind := range []JobKind{JobKindConvert, JobKindLipSync, JobKindTextToImage, JobKindAvatarVideo} {
		if !kind.Valid() {
			t.Fatalf("%s should be valid", kind)
		}
	}
	for _, kind := range []JobKind{"", "teleport", "CONVERT"} {
		if kind.Valid() {
			t.Fatalf("%q should be invalid", kind)
		}
	}
}

func TestJobTerminal(t *testing.T) {
	job := &Job{Status: JobStatusProcessing}
	if job.Terminal() {
		t.Fatal("job without terminalAt reported terminal")
	}
	now := time.Now()
	job.TerminalAt = &now
	if !job.Terminal() {
		t.Fatal("finalized job reported non-terminal")
	}
}

func TestUnifiedResult(t *testing.T) {
	job := &Job{}
	res, err := job.UnifiedResult()
	if err != nil || res != nil {
		t.Fatalf("empty result: %v %v", res, err)
	}

	raw, _ := json.Marshal(JobResult{URL: "https://cdn.example.com/x.png", ContentType: "image/png", Width: 512})
	job.Result = raw
	res, err = job.UnifiedResult()
	if err != nil {
		t.Fatalf("UnifiedResult: %v", err)
	}
	if res.URL != "https://cdn.example.com/x.png" || res.Width != 512 {
		t.Fatalf("res = %+v", res)
	}

	job.Result = json.RawMessage(`{broken`)
	if _, err := job.UnifiedResult(); err == nil {
		t.Fatal("expected error for malformed stored result")
	}
}
