package classify

import (
	"testing"

	"caneco-bridge/internal/catalog"
	"caneco-bridge/internal/record"
)

func loadCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.LoadEmbedded()
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	return c
}

func TestClassify(t *testing.T) {
	t.Parallel()

	c := loadCatalog(t)

	tests := []struct {
		name string
		rec  record.Record
		want string // archetype key, "" for no match
	}{
		{
			name: "breaker by french keyword",
			rec:  record.Record{record.FieldDescription: "Disjoncteur NSX100 32A"},
			want: "circuit_breaker",
		},
		{
			name: "breaker by product range in reference",
			rec:  record.Record{record.FieldReference: "NSX250F"},
			want: "circuit_breaker",
		},
		{
			name: "transformer",
			rec:  record.Record{record.FieldDescription: "Transformateur 1000kVA"},
			want: "transformer",
		},
		{
			name: "cable",
			rec:  record.Record{record.FieldDescription: "Cable U1000 R2V 3G2.5"},
			want: "cable",
		},
		{
			name: "busbar",
			rec:  record.Record{record.FieldDescription: "Jeu de barres 630A"},
			want: "busbar",
		},
		{
			name: "load",
			rec:  record.Record{record.FieldDescription: "Luminaire LED 36W"},
			want: "load",
		},
		{
			name: "case insensitive",
			rec:  record.Record{record.FieldDescription: "DISJONCTEUR TETE DE GROUPE"},
			want: "circuit_breaker",
		},
		{
			name: "matches specifications field too",
			rec: record.Record{
				record.FieldDescription:    "Depart 12",
				record.FieldSpecifications: "CBLAR 3G2.5",
			},
			want: "cable",
		},
		{
			name: "no keyword at all",
			rec:  record.Record{record.FieldDescription: "Gaine ICTA diametre 20"},
			want: "",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := Classify(c, tc.rec)
			switch {
			case tc.want == "" && got != nil:
				t.Fatalf("expected no match, got %q", got.Key)
			case tc.want != "" && got == nil:
				t.Fatalf("expected %q, got no match", tc.want)
			case tc.want != "" && got.Key != tc.want:
				t.Fatalf("got %q, want %q", got.Key, tc.want)
			}
		})
	}
}

// Keyword overlap must always resolve to the higher-priority archetype,
// independent of where in the text each keyword sits.
func TestClassifyPriorityOnOverlap(t *testing.T) {
	t.Parallel()

	c := loadCatalog(t)

	tests := []struct {
		desc string
		want string
	}{
		{"Disjoncteur protection transformateur", "transformer"},
		{"Transformateur protege par disjoncteur", "transformer"},
		{"Cable alimentation disjoncteur NSX", "cable"},
		{"Disjoncteur depart cable", "cable"},
	}

	for _, tc := range tests {
		got := Classify(c, record.Record{record.FieldDescription: tc.desc})
		if got == nil || got.Key != tc.want {
			key := "<none>"
			if got != nil {
				key = got.Key
			}
			t.Errorf("Classify(%q) = %s, want %s", tc.desc, key, tc.want)
		}
	}
}
