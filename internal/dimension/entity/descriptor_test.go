package entity

import (
	"errors"
	"testing"
)

func TestValidFullName(t *testing.T) {
	cases := map[string]bool{
		"Mod/Name":   true,
		"Mod/":       false,
		"/Name":      false,
		"ModName":    false,
		"Mod/A/B":    false,
		"core/caves": true,
	}
	for name, want := range cases {
		if got := ValidFullName(name); got != want {
			t.Fatalf("ValidFullName(%q) 期望 %v, got=%v", name, want, got)
		}
	}
}

func TestDescriptor_Validate(t *testing.T) {
	noop := func(Progress, PassConfig) error { return nil }
	d := &Descriptor{FullName: "core/caves", Passes: []Pass{{Name: "a", Weight: 1, Apply: noop}}}
	if err := d.Validate(); err != nil {
		t.Fatalf("期望合法, got=%v", err)
	}
	if d.Mod() != "core" || d.Name() != "caves" {
		t.Fatalf("期望 core/caves, got=%s/%s", d.Mod(), d.Name())
	}

	d.Passes = append(d.Passes, Pass{Name: "b", Weight: 0, Apply: noop})
	if err := d.Validate(); !errors.Is(err, ErrBadWeight) {
		t.Fatalf("期望 ErrBadWeight, got=%v", err)
	}
	d.Passes = nil
	if err := d.Validate(); !errors.Is(err, ErrNoPasses) {
		t.Fatalf("期望 ErrNoPasses, got=%v", err)
	}
}

func TestPassConfig_Decode(t *testing.T) {
	cfg := PassConfig{"depth": "12", "label": "deep"}
	var out struct {
		Depth int    `mapstructure:"depth"`
		Label string `mapstructure:"label"`
	}
	if err := cfg.Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Depth != 12 || out.Label != "deep" {
		t.Fatalf("期望 depth=12 label=deep, got=%+v", out)
	}
	var g GenerationConfig
	if g.For("x") != nil {
		t.Fatalf("nil GenerationConfig 期望返回 nil")
	}
}

func TestTarget_String(t *testing.T) {
	if TargetPrimary.String() != "primary" || TargetMenu.String() != "menu" || Target(3).String() != "dimension#3" {
		t.Fatalf("target 字符串不符合预期: %s %s %s", TargetPrimary, TargetMenu, Target(3))
	}
	if TargetPrimary.IsDimension() || !Target(0).IsDimension() {
		t.Fatalf("IsDimension 判断错误")
	}
}
