package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestRateApplyRoundsHalfUp(t *testing.T) {
	cases := []struct {
		name   string
		amount Cents
		rate   float64
		want   Cents
	}{
		{name: "california", amount: 35000, rate: 0.0825, want: 2888},
		{name: "texas", amount: 50000, rate: 0.0625, want: 3125},
		{name: "zero rate", amount: 15000, rate: 0, want: 0},
		{name: "sub cent half", amount: 10, rate: 0.05, want: 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := RateFromFloat(tc.rate).Apply(tc.amount); got != tc.want {
				t.Fatalf("Apply(%d, %v) = %d, want %d", tc.amount, tc.rate, got, tc.want)
			}
		})
	}
}

func TestRatePercent(t *testing.T) {
	cases := map[float64]string{
		0.0825: "8.3",
		0.0725: "7.3",
		0.05:   "5.0",
		0.06:   "6.0",
		0:      "0.0",
	}
	for rate, want := range cases {
		if got := RateFromFloat(rate).Percent(); got != want {
			t.Fatalf("Percent(%v) = %q, want %q", rate, got, want)
		}
	}
}

func TestCentsString(t *testing.T) {
	if got := Cents(37888).String(); got != "378.88" {
		t.Fatalf("expected 378.88, got %q", got)
	}
	if got := Cents(-5).String(); got != "-0.05" {
		t.Fatalf("expected -0.05, got %q", got)
	}
	if got := Cents(37850).RoundToWhole(); got != 37900 {
		t.Fatalf("expected 37900, got %d", got)
	}
}

func TestCentsJSON(t *testing.T) {
	raw, err := json.Marshal(struct {
		Total Cents `json:"total"`
	}{Total: 37888})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `{"total":378.88}` {
		t.Fatalf("unexpected json %s", raw)
	}

	var decoded struct {
		Total Cents `json:"total"`
	}
	if err := json.Unmarshal([]byte(`{"total":"214.5"}`), &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Total != 21450 {
		t.Fatalf("expected 21450, got %d", decoded.Total)
	}
}

func TestStateTaxEntryJSON(t *testing.T) {
	entry := StateTaxEntry{Value: "CA", Label: "California", Rate: RateFromFloat(0.0825)}
	raw, err := json.Marshal(entry)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back StateTaxEntry
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back != entry {
		t.Fatalf("expected %+v, got %+v (%s)", entry, back, raw)
	}
}

func TestWrapErrorKeepsKindAndCause(t *testing.T) {
	cause := errors.New("disk full")
	err := WrapError(ErrStorage, "write ledger", cause)

	if !IsKind(err, ErrStorage) || !errors.Is(err, cause) {
		t.Fatalf("expected kind and cause to be preserved: %v", err)
	}
	if err.Error() != "write ledger: storage failure: disk full" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if WrapError(ErrStorage, "noop", nil) != nil {
		t.Fatalf("expected nil for nil cause")
	}
}

func TestDocumentFilename(t *testing.T) {
	quote := &Quote{QuoteID: "QT-LOYW3V28-AB12C", Timestamp: time.Date(2025, time.January, 31, 23, 0, 0, 0, time.FixedZone("PST", -8*3600))}
	if got := DocumentFilename(quote); got != "quote_QT-LOYW3V28-AB12C_2025-02-01.pdf" {
		t.Fatalf("unexpected filename %q", got)
	}
}
