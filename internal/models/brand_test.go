package models

import (
	"errors"
	"testing"
)

func TestBrandTokensValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*BrandTokens)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*BrandTokens) {}},
		{name: "zero radius", mutate: func(b *BrandTokens) { b.Radius = 0 }},
		{name: "negative radius", mutate: func(b *BrandTokens) { b.Radius = -1 }, wantErr: true},
		{name: "missing primary", mutate: func(b *BrandTokens) { b.Primary = " " }, wantErr: true},
		{name: "missing background", mutate: func(b *BrandTokens) { b.Background = "" }, wantErr: true},
		{name: "empty font stack", mutate: func(b *BrandTokens) { b.FontStack = " , ," }, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b := DefaultBrandTokens()
			tc.mutate(&b)
			err := b.Validate()
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidBrandTokens) {
					t.Errorf("Validate: got %v, want ErrInvalidBrandTokens", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Validate: unexpected error %v", err)
			}
		})
	}
}

func TestBrandTokensFontFamilies(t *testing.T) {
	b := BrandTokens{FontStack: " Inter,  Helvetica Neue ,,sans-serif "}
	got := b.FontFamilies()
	want := []string{"Inter", "Helvetica Neue", "sans-serif"}
	if len(got) != len(want) {
		t.Fatalf("FontFamilies: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("FontFamilies[%d]: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestBrandTokensRadiusPx(t *testing.T) {
	if got := (BrandTokens{Radius: 12}).RadiusPx(); got != "12px" {
		t.Errorf("RadiusPx: got %q, want %q", got, "12px")
	}
}
