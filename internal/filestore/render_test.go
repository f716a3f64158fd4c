package filestore

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"opsbridge/internal/mergemap"
	"opsbridge/pkg/canonical"
)

func TestRender(t *testing.T) {
	m := mergemap.Map{
		"PROJECT":    canonical.String("Atlas"),
		"CLIENT":     canonical.String("Acme"),
		"START DATE": canonical.Null,
	}

	tests := []struct {
		name        string
		template    string
		want        string
		wantMissing []string
	}{
		{"plain", "Project {{PROJECT}} for {{CLIENT}}", "Project Atlas for Acme", nil},
		{"spacing and case", "{{ project }}/{{  Client}}", "Atlas/Acme", nil},
		{"null renders empty", "Start: [{{Start Date}}]", "Start: []", nil},
		{"unknown kept and reported", "{{PROJECT}} {{budget}} {{ Budget }} {{OWNER}}", "Atlas {{budget}} {{ Budget }} {{OWNER}}", []string{"BUDGET", "OWNER"}},
		{"no tokens", "nothing here", "nothing here", nil},
		{"single braces ignored", "{PROJECT}", "{PROJECT}", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, missing := Render(tt.template, m)
			assert.Equal(t, tt.want, got)
			if tt.wantMissing == nil {
				assert.Empty(t, missing)
			} else {
				assert.Equal(t, tt.wantMissing, missing)
			}
		})
	}
}

func TestObjectName(t *testing.T) {
	assert.Equal(t, "Q3 Report.txt", objectName("  Q3 Report.txt "))
	assert.Equal(t, "a-b", objectName("a/b"))
	assert.Equal(t, "x", objectName("../x"))
	assert.Len(t, objectName("///"), 36)
}

func TestJoin(t *testing.T) {
	assert.Equal(t, "doc", join("", "doc"))
	assert.Equal(t, "clients/acme/doc", join("/clients/acme/", "doc"))
}
