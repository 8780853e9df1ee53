// Copyright (c) 2026 Yakura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package resultcache_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/yakura/internal/resultcache"
	"github.com/taibuivan/yakura/internal/translate"
)

/*
TestNewFingerprint checks the identity contract: every build dimension
changes the build digest, while the chapter digest depends on the URL
alone so chapter sweeps can address all builds of one URL.
*/
func TestNewFingerprint(t *testing.T) {
	base := resultcache.NewFingerprint("https://site.com/ch-1", "tr", translate.BackendLLM, "clean")

	assert.Len(t, base.Chapter, 64)
	assert.Len(t, base.Build, 64)

	same := resultcache.NewFingerprint("https://site.com/ch-1", "tr", translate.BackendLLM, "clean")
	assert.Equal(t, base, same)

	tests := []struct {
		name  string
		other resultcache.Fingerprint
	}{
		{
			name:  "target_changes_build",
			other: resultcache.NewFingerprint("https://site.com/ch-1", "es", translate.BackendLLM, "clean"),
		},
		{
			name:  "backend_changes_build",
			other: resultcache.NewFingerprint("https://site.com/ch-1", "tr", translate.BackendMT, "clean"),
		},
		{
			name:  "mode_changes_build",
			other: resultcache.NewFingerprint("https://site.com/ch-1", "tr", translate.BackendLLM, "overlay"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, base.Chapter, tt.other.Chapter, "chapter digest is URL-only")
			assert.NotEqual(t, base.Build, tt.other.Build)
		})
	}

	elsewhere := resultcache.NewFingerprint("https://site.com/ch-2", "tr", translate.BackendLLM, "clean")
	assert.NotEqual(t, base.Chapter, elsewhere.Chapter)
	assert.NotEqual(t, base.Build, elsewhere.Build)
}
