package migrate

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func TestMigrationsDirIsValid(t *testing.T) {
	require.NoError(t, ValidateDir("migrations"))
}

func TestValidateDirRejectsBadFiles(t *testing.T) {
	cases := map[string]struct {
		files map[string]string
	}{
		"bad name": {files: map[string]string{"001_init.sql": "-- +goose Up\n-- +goose Down\n"}},
		"missing down": {files: map[string]string{"20260101000000_init.sql": "-- +goose Up\n"}},
		"duplicate version": {files: map[string]string{
			"20260101000000_a.sql": "-- +goose Up\n-- +goose Down\n",
			"20260101000000_b.sql": "-- +goose Up\n-- +goose Down\n",
		}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			for f, body := range tc.files {
				require.NoError(t, os.WriteFile(filepath.Join(dir, f), []byte(body), 0o644))
			}
			require.Error(t, ValidateDir(dir))
		})
	}
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

	path, err := createSQLMigrationAt(dir, "Add Meal-Slot notes!", now)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "20260304050607_add_meal_slot_notes.sql"), path)
	require.NoError(t, ValidateDir(dir))

	_, err = createSQLMigrationAt(dir, "add meal slot notes", now)
	require.Error(t, err, "same version and name must not overwrite")

	_, err = createSQLMigrationAt(dir, "!!!", now)
	require.Error(t, err)
}

func TestParseVersion(t *testing.T) {
	v, err := ParseVersion("20260301090200")
	require.NoError(t, err)
	require.Equal(t, int64(20260301090200), v)

	for _, bad := range []string{"", "42", "2026030109020x"} {
		_, err := ParseVersion(bad)
		require.Error(t, err, bad)
	}
}

func TestValidateFSReportsEveryProblem(t *testing.T) {
	fsys := fstest.MapFS{
		"bad.sql":                    {Data: []byte(upMarker + "\n" + downMarker)},
		"20260101000000_down_up.sql": {Data: []byte(downMarker + "\n" + upMarker)},
		"20260101000001_ok.sql":      {Data: []byte(upMarker + "\n" + downMarker)},
		"README.md":                  {Data: []byte("ignored")},
	}
	err := validateFS(fsys)
	require.Error(t, err)
	require.Len(t, multierr.Errors(err), 2)
}

func TestSanitizeName(t *testing.T) {
	require.Equal(t, "add_meal_slot_notes", SanitizeName("  Add Meal-Slot  notes!"))
	require.Empty(t, SanitizeName("!!!"))
}
