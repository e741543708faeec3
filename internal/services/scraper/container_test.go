package scraper

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/reportrelay/internal/common"
)

func TestProcessContainer(t *testing.T) {
	html := `<p>Intro</p>
		<script>alert("x")</script>
		<img src="/wp-content/uploads/chart.png">
		<img data-src="https://cdn.example.com/lazy.jpg" src="data:image/gif;base64,R0lGOD">
		<img src="/wp-content/uploads/chart.png">
		<img src="data:image/png;base64,AAAA">`

	cleaned, images := processContainer(html, "https://protradingskills.com/analysis/weekly/")

	assert.NotContains(t, cleaned, "<script")
	assert.Contains(t, cleaned, "<p>Intro</p>")
	assert.Equal(t, []string{
		"https://protradingskills.com/wp-content/uploads/chart.png",
		"https://cdn.example.com/lazy.jpg",
	}, images)
}

func TestProcessContainer_Empty(t *testing.T) {
	cleaned, images := processContainer("  ", "https://example.com")

	assert.Equal(t, "", cleaned)
	assert.NotNil(t, images)
	assert.Empty(t, images)
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "timeout", errorMessage(fmt.Errorf("failed to load report page: %w", context.DeadlineExceeded)))
	assert.Equal(t, "login rejected by report site", errorMessage(ErrLoginRejected))
}

func TestRequireCredentials(t *testing.T) {
	source := common.NewDefaultConfig().Source
	source.Username = ""
	source.Password = ""

	err := NewFetcher(source, arbor.NewLogger()).requireCredentials(source.LoginURL())

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingCredentials))
	assert.True(t, errors.Is(err, common.ErrConfiguration))

	source.Username = "trader"
	source.Password = "secret"
	assert.NoError(t, NewFetcher(source, arbor.NewLogger()).requireCredentials(source.LoginURL()))
}
