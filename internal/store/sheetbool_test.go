package store

import (
	"encoding/json"
	"testing"
)

func TestNormalizeBool(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want bool
	}{
		{"native_true", true, true},
		{"native_false", false, false},
		{"string_upper_true", "TRUE", true},
		{"string_lower_true", "true", true},
		{"string_one", "1", true},
		{"string_yes", "yes", true},
		{"string_false", "FALSE", false},
		{"string_zero", "0", false},
		{"string_empty", "", false},
		{"string_garbage", "maybe", false},
		{"string_padded", "  TRUE  ", true},
		{"float_one", float64(1), true},
		{"float_zero", float64(0), false},
		{"int_nonzero", 7, true},
		{"int_zero", 0, false},
		{"nil_ish", struct{}{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeBool(tt.in); got != tt.want {
				t.Errorf("NormalizeBool(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestSheetBool_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want bool
	}{
		{"bool", `true`, true},
		{"string_true", `"TRUE"`, true},
		{"string_one", `"1"`, true},
		{"number_one", `1`, true},
		{"string_false", `"FALSE"`, false},
		{"number_zero", `0`, false},
		{"null", `null`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b SheetBool
			if err := json.Unmarshal([]byte(tt.raw), &b); err != nil {
				t.Fatalf("unmarshal %s: %v", tt.raw, err)
			}
			if b.Bool() != tt.want {
				t.Errorf("unmarshal %s = %v, want %v", tt.raw, b.Bool(), tt.want)
			}
		})
	}
}

func TestSheetBool_Scan(t *testing.T) {
	tests := []struct {
		name string
		src  any
		want bool
	}{
		{"bool", true, true},
		{"bytes_true", []byte("TRUE"), true},
		{"bytes_zero", []byte("0"), false},
		{"nil", nil, false},
		{"int64", int64(1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b SheetBool
			if err := b.Scan(tt.src); err != nil {
				t.Fatalf("scan %v: %v", tt.src, err)
			}
			if b.Bool() != tt.want {
				t.Errorf("scan %v = %v, want %v", tt.src, b.Bool(), tt.want)
			}
		})
	}
}

func TestSheetBool_RecipientJSON(t *testing.T) {
	// Sheet imports deliver the flags in mixed encodings on one row.
	raw := `{"id":"r1","campaign_id":"c1","unsubscribed":"TRUE","suppressed":0}`

	var r Recipient
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		t.Fatalf("unmarshal recipient: %v", err)
	}
	if !r.Unsubscribed.Bool() {
		t.Error("expected unsubscribed true")
	}
	if r.Suppressed.Bool() {
		t.Error("expected suppressed false")
	}
}
