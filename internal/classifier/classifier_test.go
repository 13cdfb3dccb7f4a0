package classifier

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jobradar/jobradar/internal/jobs"
)

func newTestClassifier(t *testing.T) *Classifier {
	t.Helper()
	c, err := New("https://job4freshers.co.in", []string{
		"/category/", "/tag/", "/author/", "/sitemap",
		"/contact", "/about",
		"latest-government-jobs", "job-by-location",
	})
	require.NoError(t, err)
	return c
}

func TestClassifyJobSlugs(t *testing.T) {
	t.Parallel()
	c := newTestClassifier(t)

	jobURLs := []string{
		"https://job4freshers.co.in/optum-off-campus-data-analyst/",
		"https://job4freshers.co.in/qualcomm-associate-engineer/",
		"https://job4freshers.co.in/microsoft-software-developer",
		"https://job4freshers.co.in/senior-data-analyst-optum/",
	}
	for _, u := range jobURLs {
		require.Equal(t, jobs.ClassJob, c.Classify(u), u)
	}
}

func TestClassifyNonJobPatterns(t *testing.T) {
	t.Parallel()
	c := newTestClassifier(t)

	nonJobURLs := []string{
		"https://job4freshers.co.in/latest-government-jobs/",
		"https://job4freshers.co.in/job-by-location-2/",
		"https://job4freshers.co.in/category/tech-jobs/",
		"https://job4freshers.co.in/tag/software/",
		"https://job4freshers.co.in/author/admin/",
		"https://job4freshers.co.in/sitemap/",
		"https://job4freshers.co.in/contact/",
		"https://job4freshers.co.in/about/",
	}
	for _, u := range nonJobURLs {
		require.Equal(t, jobs.ClassNonJob, c.Classify(u), u)
	}
}

// Pattern check must win even when the URL also looks like a flat slug.
func TestClassifyPatternBeatsSlugShape(t *testing.T) {
	t.Parallel()
	c := newTestClassifier(t)

	require.Equal(t, jobs.ClassNonJob, c.Classify("https://job4freshers.co.in/latest-government-jobs/"))
	require.Equal(t, jobs.ClassNonJob, c.Classify("HTTPS://JOB4FRESHERS.CO.IN/CATEGORY/TECH/"))
}

func TestClassifyUnknown(t *testing.T) {
	t.Parallel()
	c := newTestClassifier(t)

	cases := map[string]string{
		"foreign host": "https://other-site.example.com/some-job-posting/",
		"nested path":  "https://job4freshers.co.in/jobs/backend-engineer/",
		"root page":    "https://job4freshers.co.in/",
		"short slug":   "https://job4freshers.co.in/ab/",
		"empty":        "",
		"unparseable":  "http://%zz",
	}
	for name, u := range cases {
		require.Equal(t, jobs.ClassUnknown, c.Classify(u), name)
	}
}

func TestClassifyRelativePathUsesSiteRoot(t *testing.T) {
	t.Parallel()
	c := newTestClassifier(t)

	require.Equal(t, jobs.ClassJob, c.Classify("/widgetco-backend-engineer/"))
	require.Equal(t, jobs.ClassNonJob, c.Classify("/category/tech-jobs/"))
}
