package skills

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePath(t *testing.T) {
	base := filepath.Join(t.TempDir(), "skills", "foo")
	skill := &Skill{ID: "foo", Directory: base}

	tests := []struct {
		name    string
		path    string
		want    string
		wantErr bool
	}{
		{name: "file", path: "reference.md", want: filepath.Join(base, "reference.md")},
		{name: "nested", path: "scripts/run.sh", want: filepath.Join(base, "scripts", "run.sh")},
		{name: "dot segments inside", path: "scripts/../data/x.json", want: filepath.Join(base, "data", "x.json")},
		{name: "directory itself", path: ".", want: base},
		{name: "empty", path: "", want: base},
		{name: "absolute path stays inside", path: "/etc/passwd", want: filepath.Join(base, "etc", "passwd")},
		{name: "parent escape", path: "../bar/SKILL.md", wantErr: true},
		{name: "deep escape", path: "../../etc/passwd", wantErr: true},
		{name: "escape after descent", path: "scripts/../../foo-evil/x", wantErr: true},
		{name: "sibling with shared prefix", path: "../foo-evil/secret", wantErr: true},
		{name: "parent directory", path: "..", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolvePath(skill, tt.path)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrPathOutsideSkill)
				assert.Empty(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsWithin(t *testing.T) {
	sep := string(filepath.Separator)
	base := sep + filepath.Join("srv", "skills", "foo")

	assert.True(t, isWithin(base, base))
	assert.True(t, isWithin(base, base+sep+"a"))
	assert.False(t, isWithin(base, base+"-evil"))
	assert.False(t, isWithin(base, filepath.Dir(base)))
}
