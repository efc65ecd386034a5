package service

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emergency-assist/hospital-recommender/internal/domain"
)

func TestDefaultSymptomTable(t *testing.T) {
	table := DefaultSymptomTable()

	conditions := table.Conditions()
	names := make([]string, len(conditions))
	for i, c := range conditions {
		names[i] = c.Name
	}
	assert.Equal(t, []string{
		"Cardiac Issue",
		"Severe Headache/Migraine",
		"Possible Fracture/Sprain",
		"Respiratory Infection",
		"Gastrointestinal Issue",
		"Allergic Reaction",
		"Wound/Laceration",
		"Burn Injury",
		"Syncope/Fainting",
	}, names)

	for _, f := range table.Features() {
		assert.GreaterOrEqual(t, f.Weight, 0.0, f.Phrase)
		assert.LessOrEqual(t, f.Weight, 1.0, f.Phrase)
	}

	w, ok := table.Weight("unconscious")
	require.True(t, ok)
	assert.Equal(t, 1.0, w)

	_, ok = table.Weight("sneeze")
	assert.False(t, ok)
}

func TestSymptomTable_AccessorsReturnCopies(t *testing.T) {
	table := DefaultSymptomTable()

	conditions := table.Conditions()
	conditions[0].Specialists[0] = "Changed"
	conditions[0].Name = "Changed"

	fresh := table.Conditions()
	assert.Equal(t, "Cardiac Issue", fresh[0].Name)
	assert.Equal(t, "Cardiologist", fresh[0].Specialists[0])
}

func TestLoadSymptomTable(t *testing.T) {
	t.Run("Valid_Table", func(t *testing.T) {
		doc := `
features:
  - {phrase: "itch", weight: 0.6, category: IMMUNOLOGICAL}
  - {phrase: "itch", weight: 0.1, category: IMMUNOLOGICAL}
conditions:
  - name: Skin Irritation
    category: IMMUNOLOGICAL
    urgency: LOW
    features: ["itch"]
    specialists: ["Dermatologist"]
`
		table, err := LoadSymptomTable(strings.NewReader(doc))
		require.NoError(t, err)

		w, ok := table.Weight("itch")
		require.True(t, ok)
		assert.Equal(t, 0.6, w, "first declaration wins")

		conditions := table.Conditions()
		require.Len(t, conditions, 1)
		assert.Equal(t, domain.UrgencyLow, conditions[0].Urgency)
		assert.NotNil(t, conditions[0].Equipment)
	})

	t.Run("Unknown_Field", func(t *testing.T) {
		doc := `
features: []
conditions: []
extra: true
`
		_, err := LoadSymptomTable(strings.NewReader(doc))
		assert.Error(t, err)
	})

	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{
			name:    "No_Conditions",
			doc:     "features: []\nconditions: []\n",
			wantErr: "no conditions",
		},
		{
			name: "Weight_Out_Of_Range",
			doc: `
features:
  - {phrase: "x", weight: 1.5, category: GENERAL}
conditions:
  - {name: X, category: GENERAL, urgency: LOW, features: ["x"], specialists: ["GP"]}
`,
			wantErr: "outside [0,1]",
		},
		{
			name: "Unknown_Category",
			doc: `
features:
  - {phrase: "x", weight: 0.5, category: DENTAL}
conditions:
  - {name: X, category: GENERAL, urgency: LOW, features: ["x"], specialists: ["GP"]}
`,
			wantErr: "unknown category",
		},
		{
			name: "Unknown_Urgency",
			doc: `
features:
  - {phrase: "x", weight: 0.5, category: GENERAL}
conditions:
  - {name: X, category: GENERAL, urgency: SOON, features: ["x"], specialists: ["GP"]}
`,
			wantErr: "unknown urgency",
		},
		{
			name: "Undeclared_Feature",
			doc: `
features:
  - {phrase: "x", weight: 0.5, category: GENERAL}
conditions:
  - {name: X, category: GENERAL, urgency: LOW, features: ["y"], specialists: ["GP"]}
`,
			wantErr: "undeclared feature",
		},
		{
			name: "Missing_Specialists",
			doc: `
features:
  - {phrase: "x", weight: 0.5, category: GENERAL}
conditions:
  - {name: X, category: GENERAL, urgency: LOW, features: ["x"]}
`,
			wantErr: "no specialists",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadSymptomTable(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadSymptomTableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.yaml")
	require.NoError(t, os.WriteFile(path, defaultSymptomTableYAML, 0o600))

	table, err := LoadSymptomTableFile(path)
	require.NoError(t, err)
	assert.Len(t, table.Conditions(), 9)

	_, err = LoadSymptomTableFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
