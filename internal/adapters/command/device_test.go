package command

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quentinrf/kbdlightd/internal/domain"
)

// fileCommands stores the level in a file through sh
func fileCommands(t *testing.T, initial string) (Commands, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "level")
	require.NoError(t, os.WriteFile(path, []byte(initial), 0o644))
	return Commands{
		Check: []string{"test", "-f", path},
		Get:   []string{"cat", path},
		Set:   []string{"sh", "-c", "echo " + LevelPlaceholder + " > " + path},
	}, path
}

func TestDevice_RoundTrip(t *testing.T) {
	cmds, path := fileCommands(t, "2\n")
	dev, err := NewDevice(cmds)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, dev.CheckCapability(ctx))

	level, err := dev.Level(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.Level(2), level)

	require.NoError(t, dev.SetLevel(ctx, 1))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "1", strings.TrimSpace(string(data)))
}

func TestDevice_CheckCapabilityFails(t *testing.T) {
	cmds, path := fileCommands(t, "1")
	require.NoError(t, os.Remove(path))
	dev, err := NewDevice(cmds)
	require.NoError(t, err)

	assert.ErrorIs(t, dev.CheckCapability(context.Background()), domain.ErrCapabilityMissing)
}

func TestDevice_GarbageOutput(t *testing.T) {
	cmds, _ := fileCommands(t, "Current_Brightness_Level : n/a")
	dev, err := NewDevice(cmds)
	require.NoError(t, err)

	_, err = dev.Level(context.Background())
	assert.ErrorIs(t, err, domain.ErrInvalidLevel)
}

func TestDevice_FailingCommandReportsStderr(t *testing.T) {
	dev, err := NewDevice(Commands{
		Get: []string{"sh", "-c", "echo 'class not found' >&2; exit 3"},
		Set: []string{"true", LevelPlaceholder},
	})
	require.NoError(t, err)

	_, err = dev.Level(context.Background())
	assert.ErrorContains(t, err, "class not found")
}

func TestCommands_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cmds    Commands
		wantErr bool
	}{
		{"lenovo preset", LenovoWMI(), false},
		{"no get", Commands{Set: []string{"x", LevelPlaceholder}}, true},
		{"no set", Commands{Get: []string{"x"}}, true},
		{"no placeholder", Commands{Get: []string{"x"}, Set: []string{"x", "2"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cmds.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLenovoWMI_SetSubstitutesLevel(t *testing.T) {
	set := LenovoWMI().Set
	assert.Contains(t, set[len(set)-1], "Set_Lighting_Current_Status(0,0,"+LevelPlaceholder+")")
}
