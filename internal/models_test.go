package internal

import (
	"errors"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestToolCallTransitions(t *testing.T) {
	tc := ToolCall{ID: "t1", ToolName: "site_crawler", Status: ToolCallExecuting}
	if tc.Terminal() {
		t.Fatal("executing call should not be terminal")
	}

	if err := tc.Complete("42 pages"); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if tc.Status != ToolCallSuccess || tc.Output != "42 pages" {
		t.Errorf("after Complete: status = %v, output = %q", tc.Status, tc.Output)
	}

	err := tc.Fail("late")
	var terr *TransitionError
	if !errors.As(err, &terr) {
		t.Fatalf("Fail() after success should return TransitionError, got %v", err)
	}
	if terr.From != string(ToolCallSuccess) || terr.Action != "fail" {
		t.Errorf("TransitionError = %+v", terr)
	}

	failed := ToolCall{ID: "t2", Status: ToolCallExecuting}
	if err := failed.Fail("timeout"); err != nil {
		t.Fatalf("Fail() error = %v", err)
	}
	if failed.Status != ToolCallError || failed.Error != "timeout" {
		t.Errorf("after Fail: status = %v, error = %q", failed.Status, failed.Error)
	}
	if err := failed.Complete("x"); err == nil {
		t.Error("Complete() after failure should error")
	}
}

func TestAgentResponseClone(t *testing.T) {
	r := AgentResponse{
		ID:        "r1",
		Messages:  []string{"a"},
		ToolCalls: []ToolCall{{ID: "t1", Status: ToolCallExecuting}},
	}
	c := r.Clone()
	c.Messages[0] = "changed"
	c.ToolCalls[0].Status = ToolCallSuccess

	if r.Messages[0] != "a" {
		t.Error("Clone shares Messages")
	}
	if r.ToolCalls[0].Status != ToolCallExecuting {
		t.Error("Clone shares ToolCalls")
	}
}

func TestInboxItemClone(t *testing.T) {
	at := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)
	item := InboxItem{ID: "i1", ApprovedAt: &at}
	c := item.Clone()
	*c.ApprovedAt = c.ApprovedAt.Add(time.Hour)

	if !item.ApprovedAt.Equal(at) {
		t.Error("Clone shares ApprovedAt")
	}
}

func TestParseIconKind(t *testing.T) {
	tests := []struct {
		name    string
		want    IconKind
		wantErr bool
	}{
		{"architect", IconArchitect, false},
		{" QA ", IconQA, false},
		{"command", IconCommand, false},
		{"rocket", IconGeneric, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseIconKind(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseIconKind() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseIconKind() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIconKindYAML(t *testing.T) {
	var v struct {
		Icon IconKind `yaml:"icon"`
	}
	if err := yaml.Unmarshal([]byte("icon: sitecore\n"), &v); err != nil {
		t.Fatalf("Unmarshal error = %v", err)
	}
	if v.Icon != IconSitecore {
		t.Errorf("Icon = %v, want sitecore", v.Icon)
	}
	if v.Icon.Glyph() != "🧩" {
		t.Errorf("Glyph() = %q", v.Icon.Glyph())
	}

	out, err := yaml.Marshal(v)
	if err != nil {
		t.Fatalf("Marshal error = %v", err)
	}
	if string(out) != "icon: sitecore\n" {
		t.Errorf("Marshal = %q", out)
	}

	if err := yaml.Unmarshal([]byte("icon: rocket\n"), &v); err == nil {
		t.Error("unknown icon should fail to unmarshal")
	}
	if IconKind(99).Glyph() != "•" {
		t.Error("unknown kind should use the generic glyph")
	}
}
