package services

import (
	"context"
	"testing"

	"github.com/LizaGhosh/mongodb-lead-agent/pkg/logger"
)

func TestKeywordFallback(t *testing.T) {
	svc := NewPreferenceAnalysisService(nil)
	log := logger.New("test", "", "")

	prefs := svc.Analyze(context.Background(),
		"I care about their funding stage and whether they support remote teams", log)
	if len(prefs.ValueIndicators) != 1 || prefs.ValueIndicators[0] != "Funding stage mentioned" {
		t.Fatalf("funding keyword not detected: %+v", prefs.ValueIndicators)
	}
	if len(prefs.CustomCriteria) != 1 || prefs.CustomCriteria[0] != "Remote work culture" {
		t.Fatalf("remote keyword not detected: %+v", prefs.CustomCriteria)
	}
}

func TestAnalyzeEmptyComments(t *testing.T) {
	svc := NewPreferenceAnalysisService(nil)
	log := logger.New("test", "", "")

	prefs := svc.Analyze(context.Background(), "   ", log)
	if len(prefs.ValueIndicators) != 0 || len(prefs.CustomCriteria) != 0 {
		t.Fatalf("blank comments should yield empty preferences: %+v", prefs)
	}
}
