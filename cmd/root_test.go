package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandTree(t *testing.T) {
	root := NewRootCmd()

	for _, name := range []string{"fetch", "upload", "status"} {
		sub, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, sub.Name())
	}

	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
	assert.NotNil(t, root.PersistentFlags().Lookup("verbose"))
}

func TestUploadFlagDefaults(t *testing.T) {
	upload, _, err := NewRootCmd().Find([]string{"upload"})
	require.NoError(t, err)

	tests := []struct {
		flag string
		want string
	}{
		{"csv", "sb_lucas_wellcome_images.csv"},
		{"images", "images"},
		{"progress", "upload_progress.json"},
		{"start", "0"},
		{"limit", "0"},
		{"dry-run", "false"},
	}
	for _, tt := range tests {
		f := upload.Flags().Lookup(tt.flag)
		require.NotNil(t, f, tt.flag)
		assert.Equal(t, tt.want, f.DefValue, tt.flag)
	}
}
