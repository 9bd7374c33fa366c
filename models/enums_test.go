package models

import "testing"

func TestParseMarket(t *testing.T) {
	m, err := ParseMarket("shares")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if m != MarketShares {
		t.Fatalf("expected SHARES, got %s", m)
	}
	if m.ID() != 1 {
		t.Fatalf("expected market id 1, got %d", m.ID())
	}
	if _, err := ParseMarket("NASDAQ"); err == nil {
		t.Fatalf("expected error for unknown market")
	}
}

func TestParseTimeframe(t *testing.T) {
	cases := []struct {
		name string
		want Timeframe
	}{
		{"DAILY", TimeframeDaily},
		{"daily", TimeframeDaily},
		{"MINUTES5", TimeframeMinutes5},
		{"TICKS", TimeframeTicks},
		{"MONTHLY", TimeframeMonthly},
	}
	for _, c := range cases {
		got, err := ParseTimeframe(c.name)
		if err != nil {
			t.Fatalf("parse %s: %v", c.name, err)
		}
		if got != c.want {
			t.Fatalf("parse %s: expected %d, got %d", c.name, c.want, got)
		}
	}
	if _, err := ParseTimeframe("FORTNIGHTLY"); err == nil {
		t.Fatalf("expected error for unknown timeframe")
	}
}

func TestTimeframeWireCodes(t *testing.T) {
	if TimeframeTicks.Code() != 1 || TimeframeDaily.Code() != 8 || TimeframeMonthly.Code() != 10 {
		t.Fatalf("unexpected period codes: %d %d %d",
			TimeframeTicks.Code(), TimeframeDaily.Code(), TimeframeMonthly.Code())
	}
}

func TestParseFileFormat(t *testing.T) {
	cases := []struct {
		name   string
		want   FileFormat
		csvish bool
	}{
		{"CSV", FormatCSV, true},
		{"csvgz", FormatCSVGZ, true},
		{"PKL", FormatPKL, false},
		{"pklxz", FormatPKLXZ, false},
	}
	for _, c := range cases {
		got, err := ParseFileFormat(c.name)
		if err != nil {
			t.Fatalf("parse %s: %v", c.name, err)
		}
		if got != c.want {
			t.Fatalf("parse %s: expected %s, got %s", c.name, c.want, got)
		}
		if got.IsCSVFamily() != c.csvish || got.IsBinary() == c.csvish {
			t.Fatalf("format %s family misclassified", got)
		}
	}
	if _, err := ParseFileFormat("PARQUET"); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}
