package archive

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type object struct {
	body        string
	contentType string
}

type fakeUploader struct {
	objects map[string]object
	failOn  string
}

func (f *fakeUploader) Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	key := aws.ToString(input.Key)
	if f.failOn != "" && strings.HasSuffix(key, f.failOn) {
		return nil, errors.New("access denied")
	}
	data, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}
	if f.objects == nil {
		f.objects = map[string]object{}
	}
	f.objects[aws.ToString(input.Bucket)+"/"+key] = object{body: string(data), contentType: aws.ToString(input.ContentType)}
	return &manager.UploadOutput{}, nil
}

func writeRun(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "run-20250301_090000")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	files := map[string]string{
		"prompt.txt":                 "Search for accommodation in Paris",
		"screenshot_0.png":           "png0",
		"screenshot_0.txt":           "BLOCKERS: none",
		"screenshot_1.png":           "png1",
		"screenshot_1_annotated.png": "ann1",
	}
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	return dir
}

func TestUploadCopiesEveryFile(t *testing.T) {
	dir := writeRun(t)
	up := &fakeUploader{}

	n, err := New(up, nil).Upload(context.Background(), dir, "traces", "runs")
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	keys := make([]string, 0, len(up.objects))
	for k := range up.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	assert.Equal(t, []string{
		"traces/runs/run-20250301_090000/prompt.txt",
		"traces/runs/run-20250301_090000/screenshot_0.png",
		"traces/runs/run-20250301_090000/screenshot_0.txt",
		"traces/runs/run-20250301_090000/screenshot_1.png",
		"traces/runs/run-20250301_090000/screenshot_1_annotated.png",
	}, keys)

	png := up.objects["traces/runs/run-20250301_090000/screenshot_1.png"]
	assert.Equal(t, "png1", png.body)
	assert.Equal(t, "image/png", png.contentType)
}

func TestUploadStopsOnFailure(t *testing.T) {
	dir := writeRun(t)
	up := &fakeUploader{failOn: "screenshot_0.txt"}

	_, err := New(up, nil).Upload(context.Background(), dir, "traces", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
	assert.Contains(t, err.Error(), "screenshot_0.txt")
}

func TestUploadRejectsBadInput(t *testing.T) {
	a := New(&fakeUploader{}, nil)

	_, err := a.Upload(context.Background(), t.TempDir(), "", "runs")
	assert.Error(t, err)

	_, err = a.Upload(context.Background(), filepath.Join(t.TempDir(), "missing"), "traces", "runs")
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "prompt.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	_, err = a.Upload(context.Background(), file, "traces", "runs")
	assert.Error(t, err)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "runs/run-1/screenshot_0.png", Key("runs", "/tmp/runs/run-1/", "screenshot_0.png"))
	assert.Equal(t, "run-1/sub/a.txt", Key("", "run-1", filepath.Join("sub", "a.txt")))
}
