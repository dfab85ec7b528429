package main

import (
	"encoding/json"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/profile-images/internal/db"
	"github.com/jonathan/profile-images/internal/images"
	"github.com/jonathan/profile-images/internal/observability"
	"github.com/jonathan/profile-images/internal/scrape"
	"github.com/jonathan/profile-images/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	profileImage = "https://scontent.xx.fbcdn.net/v/t39.30808-1/7_1_320_n.jpg?stp=cp0_dst-jpg_s320x320"
	coverImage   = "https://scontent.xx.fbcdn.net/v/t39.30808-6/3_1_960_n.jpg?stp=dst-jpg_s960x960"
)

const savedPage = `<html><body>
<img src="` + profileImage + `">
<script>{"cover":"` + `https:\/\/scontent.xx.fbcdn.net\/v\/t39.30808-6\/3_1_960_n.jpg?stp=dst-jpg_s960x960` + `"}</script>
</body></html>`

func writeSavedPage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profile.html")
	require.NoError(t, os.WriteFile(path, []byte(savedPage), 0o644))
	return path
}

func TestExtractFromFile(t *testing.T) {
	path := writeSavedPage(t)
	var stderr nopWriter

	resp, err := extractFromFile(path, observability.NewPrinter(&stderr))
	require.NoError(t, err)

	assert.True(t, resp.Success)
	require.NotNil(t, resp.ProfilePicture.Standard)
	assert.Equal(t, profileImage, *resp.ProfilePicture.Standard)
	require.NotNil(t, resp.CoverPhoto.Standard)
	assert.Equal(t, coverImage, *resp.CoverPhoto.Standard)
	assert.Equal(t, 2, resp.TotalCount)
}

func TestExtractFromFile_Missing(t *testing.T) {
	_, err := extractFromFile(filepath.Join(t.TempDir(), "missing.html"), observability.NewPrinter(&nopWriter{}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read HTML file")
}

func TestWriteOutput_FileIsSchemaChecked(t *testing.T) {
	out := filepath.Join(t.TempDir(), "result.json")
	resp := types.NewExtractResponse("https://www.facebook.com/zuck",
		&images.Result{ProfilePicture: profileImage, ProfilePictureHD: profileImage, AllImages: []string{profileImage}},
		false, 300*time.Millisecond)

	require.NoError(t, writeOutput(resp, out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "0.30s", decoded["time_taken"])
}

func TestOutcomeBody(t *testing.T) {
	ok := outcomeBody(&scrape.Outcome{
		ProfileURL: "https://www.facebook.com/zuck",
		Result:     &images.Result{AllImages: []string{profileImage}},
	})
	resp, isResp := ok.(*types.ExtractResponse)
	require.True(t, isResp)
	assert.Equal(t, 1, resp.TotalCount)

	tests := []struct {
		err  error
		want string
	}{
		{err: &scrape.Error{Stage: "validate", Kind: scrape.ErrInvalidURL}, want: "Invalid URL"},
		{err: &scrape.Error{Stage: "fetch", Kind: scrape.ErrFetchFailed}, want: "Failed to scrape profile"},
		{err: errors.New("boom"), want: "Processing failed"},
	}
	for _, tt := range tests {
		body, isErr := outcomeBody(&scrape.Outcome{RequestURL: "x", Err: tt.err}).(types.ErrorResponse)
		require.True(t, isErr)
		assert.Equal(t, tt.want, body.Error)
		assert.Equal(t, tt.err.Error(), body.Message)
	}
}

func TestHistoryResponse(t *testing.T) {
	picture := profileImage
	records := []db.Extraction{
		{ID: uuid.New(), ProfilePicture: &picture, CreatedAt: time.Now()},
		{ID: uuid.New(), CreatedAt: time.Now().Add(-time.Hour)},
	}

	resp := historyResponse("https://www.facebook.com/zuck", records)

	assert.Equal(t, 2, resp.Count)
	require.Len(t, resp.Extractions, 2)
	assert.Equal(t, records[0].ID.String(), resp.Extractions[0].ID)
	assert.NotNil(t, resp.Extractions[0].ProfilePicture.Standard)
	assert.Nil(t, resp.Extractions[1].ProfilePicture.Standard)
}

func TestExtractCommand_FlagsValidation(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		errorString string
	}{
		{
			name:        "no input",
			args:        []string{"extract"},
			errorString: "must provide --url or --html",
		},
		{
			name:        "both inputs",
			args:        []string{"extract", "--url", "https://www.facebook.com/zuck", "--html", "page.html"},
			errorString: "cannot use --url with --html",
		},
		{
			name:        "invalid profile url",
			args:        []string{"extract", "--url", "https://example.com/zuck"},
			errorString: "1 of 1 extractions failed",
		},
	}

	binaryPath := getBinaryPath(t)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := exec.Command(binaryPath, tt.args...)
			cmd.Env = append(os.Environ(), "DATABASE_URL=")
			output, err := cmd.CombinedOutput()

			assert.Error(t, err)
			assert.Contains(t, string(output), tt.errorString)
		})
	}
}

func TestExtractCommand_HTMLFile(t *testing.T) {
	binaryPath := getBinaryPath(t)
	out := filepath.Join(t.TempDir(), "result.json")

	cmd := exec.Command(binaryPath, "extract", "--html", writeSavedPage(t), "--out", out)
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, string(output))

	validate := exec.Command(binaryPath, "validate-result", "--file", out,
		"--schema", filepath.Join("..", "..", "schemas", "extraction_response.schema.json"))
	output, err = validate.CombinedOutput()
	assert.NoError(t, err)
	assert.Contains(t, string(output), "Validation passed")
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }
