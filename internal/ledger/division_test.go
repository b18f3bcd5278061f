package ledger

import "testing"

func TestResolveDivision(t *testing.T) {
	mapping := map[string]string{
		"1000": "Retail",
		"2000": "Wholesale",
		"3000": "", // mapped but blank
	}

	tests := []struct {
		name         string
		businessArea string
		mapping      map[string]string
		want         string
	}{
		{"mapped code", "1000", mapping, "Retail"},
		{"another mapped code", "2000", mapping, "Wholesale"},
		{"absent code", "9999", mapping, DivisionOthers},
		{"blank mapped value", "3000", mapping, DivisionOthers},
		{"empty mapping", "1000", map[string]string{}, DivisionOthers},
		{"nil mapping", "1000", nil, DivisionOthers},
		{"no case folding", "1000 ", mapping, DivisionOthers},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveDivision(tt.businessArea, tt.mapping); got != tt.want {
				t.Errorf("ResolveDivision(%q) = %q, want %q", tt.businessArea, got, tt.want)
			}
		})
	}
}
