package pkg

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func TestIdentity(t *testing.T) {
	t.Parallel()

	if Name != "letbind" {
		t.Errorf("Name = %q, want %q", Name, "letbind")
	}

	if Description == "" {
		t.Error("Description is empty")
	}
}

func TestVersion(t *testing.T) {
	t.Parallel()

	// Tests run in the package directory.
	buf, err := os.ReadFile("VERSION")
	if err != nil {
		t.Fatalf("read VERSION: %v", err)
	}

	if content := strings.TrimSpace(string(buf)); strings.TrimSpace(Version) != content {
		t.Errorf("Version = %q, want %q", Version, content)
	}
}

func TestAuthor(t *testing.T) {
	t.Parallel()

	if !slices.ContainsFunc(Author, func(a AuthorInfo) bool {
		return a.Name == "ardnew" && a.Email == "andrew@ardnew.com"
	}) {
		t.Errorf("Author = %v, want ardnew", Author)
	}

	for i, author := range Author {
		if author.Name == "" && author.Email == "" {
			t.Errorf("Author[%d] must define at least Name or Email", i)
		}
	}
}

func TestUserDir(t *testing.T) {
	t.Setenv(EnvPrefix()+"_TEST_DIR", "")

	tests := []struct {
		name string
		env  string
		base func() (string, error)
		want string
	}{
		{
			name: "base",
			base: func() (string, error) { return "/base", nil },
			want: filepath.Join("/base", Prefix()),
		},
		{
			name: "override",
			env:  "/override",
			base: func() (string, error) { return "/base", nil },
			want: "/override",
		},
		{
			name: "home",
			base: func() (string, error) { return "", os.ErrNotExist },
			want: "hidden",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvPrefix()+"_TEST_DIR", tt.env)

			got := userDir("TEST_DIR", tt.base, "hidden")

			if tt.want == "hidden" {
				if filepath.Base(got) != Prefix() || filepath.Base(filepath.Dir(got)) != "hidden" {
					t.Errorf("userDir() = %q, want .../hidden/%s", got, Prefix())
				}

				return
			}

			if got != tt.want {
				t.Errorf("userDir() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEnvPrefix(t *testing.T) {
	t.Parallel()

	if got := EnvPrefix(); got != strings.ToUpper(got) || strings.ContainsAny(got, "-.") {
		t.Errorf("EnvPrefix() = %q", got)
	}
}
