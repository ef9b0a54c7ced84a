// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package installer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSpec(t *testing.T) {
	cases := []struct {
		raw   string
		name  string
		fetch string
		typ   SpecType
	}{
		{"a@1.2.3", "a", "1.2.3", TypeVersion},
		{"a@^1.0.0", "a", "^1.0.0", TypeRange},
		{"a@>=1.0.0 <2.0.0", "a", ">=1.0.0 <2.0.0", TypeRange},
		{"a@latest", "a", "latest", TypeTag},
		{"a@beta", "a", "beta", TypeTag},
		{"a", "a", "latest", TypeTag},
		{"@scope/a@^2.0.0", "@scope/a", "^2.0.0", TypeRange},
		{"@scope/a", "@scope/a", "latest", TypeTag},
		{"./fixtures/a", "", "./fixtures/a", TypeLocal},
		{"../a", "", "../a", TypeLocal},
		{"/abs/path/a", "", "/abs/path/a", TypeLocal},
		{"a-1.0.0.tgz", "", "a-1.0.0.tgz", TypeLocal},
		{"https://example.com/a-1.0.0.tgz", "", "https://example.com/a-1.0.0.tgz", TypeRemote},
		{"git://github.com/user/a.git", "", "git://github.com/user/a.git", TypeGit},
		{"git+ssh://git@github.com/user/a.git", "", "git+ssh://git@github.com/user/a.git", TypeGit},
		{"user/repo", "user/repo", "", TypeHosted},
	}

	for _, c := range cases {
		c := c
		t.Run(c.raw, func(t *testing.T) {
			spec, err := ParseSpec(c.raw)
			require.NoError(t, err)
			assert.Equal(t, c.name, spec.Name)
			assert.Equal(t, c.fetch, spec.Fetch)
			assert.Equal(t, c.typ, spec.Type)
			assert.Equal(t, c.raw, spec.Raw)
		})
	}
}

func TestParseSpecRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"", "   ", "a/b/c"} {
		_, err := ParseSpec(raw)
		var re *ResolveError
		require.Error(t, err, "spec %q", raw)
		assert.ErrorAs(t, err, &re)
	}
}

func TestRangeSatisfied(t *testing.T) {
	assert.True(t, rangeSatisfied("^1.0.0", "1.2.3"))
	assert.False(t, rangeSatisfied("^1.0.0", "2.0.0"))
	assert.True(t, rangeSatisfied("*", "0.0.1"))
	assert.True(t, rangeSatisfied("", "anything"))
	// non-semver falls back to exact comparison
	assert.True(t, rangeSatisfied("weird", "weird"))
	assert.False(t, rangeSatisfied("weird", "1.0.0"))
}

func TestSatisfiesNonRangeTypes(t *testing.T) {
	assert.False(t, satisfies(Requested{Spec: "latest", Type: TypeTag}, "1.0.0"))
	assert.True(t, satisfies(Requested{Spec: "1.0.0", Type: TypeVersion}, "1.0.0"))
}
