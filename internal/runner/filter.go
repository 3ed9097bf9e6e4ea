package runner

import "regexp"

// testFilter compiles settings.TestFilter (case-insensitive) once per run,
// mirroring validator.rs's RegexBuilder::new(filter).case_insensitive(true).
type testFilter struct {
	re      *regexp.Regexp
	inverse bool
}

func newTestFilter(s Settings) (*testFilter, error) {
	if s.TestFilter == "" {
		return &testFilter{inverse: s.InvertFilter}, nil
	}
	re, err := regexp.Compile("(?i)" + s.TestFilter)
	if err != nil {
		return nil, err
	}
	return &testFilter{re: re, inverse: s.InvertFilter}, nil
}

// matches reports whether a test named name should run under this filter.
func (f *testFilter) matches(name string) bool {
	if f.re == nil {
		return true
	}
	hit := f.re.MatchString(name)
	if f.inverse {
		return !hit
	}
	return hit
}

// pluginMatches reports whether a plugin id should be tested, honoring
// settings.PluginID (empty means "every plugin").
func pluginMatches(s Settings, pluginID string) bool {
	return s.PluginID == "" || s.PluginID == pluginID
}
