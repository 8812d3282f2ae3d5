package paths

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveVirtualPrefix(t *testing.T) {
	r := NewResolver("/storage/emulated/0")

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"root itself", VirtualRoot, "/storage/emulated/0"},
		{"nested file", VirtualRoot + "/DCIM/a.jpg", "/storage/emulated/0/DCIM/a.jpg"},
		{"remainder kept verbatim", VirtualRoot + "//x/../y ", "/storage/emulated/0//x/../y "},
		{"prefix glued to name", VirtualRoot + "foo", "/storage/emulated/0foo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Resolve(tt.in))
		})
	}
}

func TestResolvePassThrough(t *testing.T) {
	r := NewResolver("/storage")

	for _, p := range []string{
		"",
		"/storage/DCIM",
		"relative/path",
		"/tmp" + VirtualRoot,
		"/__cross_profile_roo",
	} {
		assert.Equal(t, p, r.Resolve(p), "path %q should pass through", p)
	}
}

func TestResolveIdempotent(t *testing.T) {
	r := NewResolver("/storage")

	once := r.Resolve(VirtualRoot + "/Music")
	assert.Equal(t, once, r.Resolve(once))
}

func TestZeroResolver(t *testing.T) {
	var r Resolver
	assert.Equal(t, VirtualRoot+"/a", r.Resolve(VirtualRoot+"/a"))
}
