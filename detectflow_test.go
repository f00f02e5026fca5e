package detectflow_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/detectflow"
	"github.com/BaSui01/detectflow/testutil"
	"github.com/BaSui01/detectflow/testutil/detectxtest"
)

func TestNew_RequiresHost(t *testing.T) {
	t.Parallel()

	_, err := detectflow.New()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "host is required")
}

func TestNew_TalksToService(t *testing.T) {
	t.Parallel()

	srv := detectxtest.New()
	defer srv.Close()

	c, err := detectflow.New(detectflow.WithHost(srv.Host()))
	require.NoError(t, err)
	defer c.Close()

	caps, err := c.Capabilities(testutil.TestContext(t))
	require.NoError(t, err)
	assert.Equal(t, "detectx", caps.Server)
}

func TestRunBatch_EndToEnd(t *testing.T) {
	t.Parallel()

	srv := detectxtest.New().WithDetections(detectxtest.Detection("person", 0.9))
	defer srv.Close()

	dir := t.TempDir()
	testutil.WriteJPEG(t, dir, "a.jpg", 32, 24)
	testutil.WriteJPEG(t, dir, "b.jpg", 40, 30)

	var lastDone int
	report, err := detectflow.RunBatch(context.Background(), dir,
		detectflow.WithHost(srv.Host()),
		detectflow.WithWorkers(2),
		detectflow.WithProgress(func(done, total, succeeded int) { lastDone = done }),
	)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Statistics.TotalImages)
	assert.Equal(t, 2, report.Statistics.Successful)
	assert.Equal(t, 2, report.Statistics.TotalDetections)
	assert.Equal(t, 2, lastDone)
	assert.NotEmpty(t, report.RunID)
}

func TestRunBatch_EmptyDirectory(t *testing.T) {
	t.Parallel()

	srv := detectxtest.New()
	defer srv.Close()

	_, err := detectflow.RunBatch(context.Background(), t.TempDir(),
		detectflow.WithHost(srv.Host()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no images found")
}

func TestRunBatch_MinConfidence(t *testing.T) {
	t.Parallel()

	srv := detectxtest.New().WithDetections(
		detectxtest.Detection("person", 0.9),
		detectxtest.Detection("car", 0.2),
	)
	defer srv.Close()

	dir := t.TempDir()
	testutil.WriteJPEG(t, dir, "one.jpg", 32, 24)

	report, err := detectflow.RunBatch(context.Background(), dir,
		detectflow.WithHost(srv.Host()),
		detectflow.WithMinConfidence(0.5),
	)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Statistics.TotalDetections)
}
