package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport/http"

	clog "github.com/xrsl/wfsync/pkg/log"
	"github.com/xrsl/wfsync/pkg/utils"
)

var _ Source = (*Git)(nil)

// Git reads templates from a shallow clone of the template repository. The
// clone lives in a temporary directory removed before Templates returns.
type Git struct {
	url   string
	repo  Repo
	token string
	depth int
}

// GitOption configures Git.
type GitOption func(*Git)

// WithGitToken authenticates HTTPS clones as x-access-token.
func WithGitToken(token string) GitOption {
	return func(g *Git) {
		g.token = token
	}
}

// WithDepth sets the clone depth. 0 clones full history.
func WithDepth(depth int) GitOption {
	return func(g *Git) {
		g.depth = depth
	}
}

// NewGit returns a Git source. cloneURL defaults to the GitHub HTTPS URL of
// repo when empty.
func NewGit(cloneURL string, repo Repo, opts ...GitOption) *Git {
	if cloneURL == "" {
		cloneURL = "https://github.com/" + repo.Owner + "/" + repo.Name + ".git"
	}
	g := &Git{url: cloneURL, repo: repo, depth: 1}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Git) Templates(ctx context.Context) ([]Template, error) {
	tmp, err := os.MkdirTemp("", "wfsync-git-*")
	if err != nil {
		return nil, fmt.Errorf("temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(tmp) }()

	opts := &git.CloneOptions{
		URL:          g.url,
		SingleBranch: true,
		Depth:        g.depth,
	}
	if g.repo.Ref != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(g.repo.Ref)
	}
	if g.token != "" {
		opts.Auth = &http.BasicAuth{Username: "x-access-token", Password: g.token}
	}

	clog.Debug("cloning template repository", "url", g.url, "ref", g.repo.Ref, "depth", g.depth)
	if _, err := git.PlainCloneContext(ctx, tmp, false, opts); err != nil {
		return nil, fmt.Errorf("failed to fetch central workflows: clone %s: %w", g.url, err)
	}

	base := filepath.Join(tmp, filepath.FromSlash(strings.Trim(g.repo.Dir, "/")))
	rel, err := filepath.Rel(tmp, base)
	if err != nil || strings.HasPrefix(rel, "..") {
		return nil, fmt.Errorf("template dir %q escapes the repository", g.repo.Dir)
	}
	info, err := os.Stat(base)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to fetch central workflows: %s not found in %s", g.repo.Dir, g.url)
	}
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("failed to fetch central workflows: %s is not a directory", g.repo.Dir)
	}

	names, err := utils.ListYAML(base)
	if err != nil {
		return nil, err
	}
	out := make([]Template, 0, len(names))
	for _, name := range names {
		content, err := utils.ReadFile(filepath.Join(base, name))
		if err != nil {
			return nil, fmt.Errorf("read template %s: %w", name, err)
		}
		out = append(out, Template{Name: name, Content: content})
	}
	sortTemplates(out)
	return out, nil
}
