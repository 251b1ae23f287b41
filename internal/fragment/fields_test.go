package fragment

import (
	"testing"

	"caneco-bridge/internal/record"
)

func TestResolveDerivedFields(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		rec   record.Record
		field string
		want  string
	}{
		{
			name:  "rating from amp figure",
			rec:   record.Record{record.FieldDescription: "Disjoncteur NSX100 32A"},
			field: "rating",
			want:  "32.00",
		},
		{
			name:  "rating from frame size fallback",
			rec:   record.Record{record.FieldReference: "NSX250F"},
			field: "rating",
			want:  "250.00",
		},
		{
			name:  "rating from specifications",
			rec: record.Record{
				record.FieldDescription:    "Depart eclairage",
				record.FieldSpecifications: "Calibre: 16A",
			},
			field: "rating",
			want:  "16.00",
		},
		{
			name:  "rating absent",
			rec:   record.Record{record.FieldDescription: "Luminaire LED"},
			field: "rating",
			want:  "",
		},
		{
			name:  "rating plain drops trailing zeros",
			rec:   record.Record{record.FieldDescription: "Disjoncteur 32A"},
			field: "rating_plain",
			want:  "32",
		},
		{
			name:  "breaking capacity",
			rec:   record.Record{record.FieldSpecifications: "Pouvoir de coupure 36kA"},
			field: "breaking_capacity",
			want:  "36",
		},
		{
			name: "product ref column wins over text",
			rec: record.Record{
				record.FieldDescription: "Disjoncteur NSX100",
				record.FieldProductRef:  "LV429637",
			},
			field: record.FieldProductRef,
			want:  "LV429637",
		},
		{
			name:  "product ref extracted from reference",
			rec:   record.Record{record.FieldReference: "NSX100F TM-D"},
			field: record.FieldProductRef,
			want:  "NSX100F",
		},
		{
			name:  "product ref extracted from description",
			rec:   record.Record{record.FieldDescription: "Disjoncteur iDT40N 2P"},
			field: record.FieldProductRef,
			want:  "iDT40N",
		},
		{
			name:  "range nsx",
			rec:   record.Record{record.FieldReference: "NSX100F"},
			field: "range",
			want:  "NSX",
		},
		{
			name:  "range acti9",
			rec:   record.Record{record.FieldDescription: "Disjoncteur iDT40 10A"},
			field: "range",
			want:  "Acti9 iC60",
		},
		{
			name:  "range unknown",
			rec:   record.Record{record.FieldDescription: "Disjoncteur generique"},
			field: "range",
			want:  "",
		},
		{
			name:  "plain field passthrough",
			rec:   record.Record{record.FieldDescription: "Cable U1000"},
			field: record.FieldDescription,
			want:  "Cable U1000",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := Resolve(tc.rec, tc.field); got != tc.want {
				t.Errorf("Resolve(%q) = %q, want %q", tc.field, got, tc.want)
			}
		})
	}
}
