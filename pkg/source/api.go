package source

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/xrsl/wfsync/pkg/gh"
	clog "github.com/xrsl/wfsync/pkg/log"
	"github.com/xrsl/wfsync/pkg/utils"
)

var _ Source = (*API)(nil)

// downloadConcurrency bounds parallel content requests.
const downloadConcurrency = 4

// API reads templates through the GitHub contents API.
type API struct {
	client gh.API
	repo   Repo
}

func NewAPI(client gh.API, repo Repo) *API {
	return &API{client: client, repo: repo}
}

// Templates lists the directory and downloads every YAML file in it.
// Directories and other entry types are skipped. The first failed download
// cancels the rest.
func (a *API) Templates(ctx context.Context) ([]Template, error) {
	entries, err := a.client.ListDir(ctx, a.repo.Owner, a.repo.Name, a.repo.Dir, a.repo.Ref)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch central workflows: %w", err)
	}

	var files []gh.Entry
	for _, e := range entries {
		if !e.IsFile() || !utils.IsYAML(e.Name) {
			clog.Debug("skipping entry", "name", e.Name, "type", e.Type)
			continue
		}
		if err := CheckName(e.Name); err != nil {
			return nil, fmt.Errorf("failed to fetch central workflows: %w", err)
		}
		files = append(files, e)
	}

	out := make([]Template, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(downloadConcurrency)
	for i, e := range files {
		g.Go(func() error {
			content, err := a.client.Download(gctx, e.DownloadURL)
			if err != nil {
				return fmt.Errorf("failed to fetch workflow %s: %w", e.Name, err)
			}
			out[i] = Template{Name: e.Name, Content: content}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sortTemplates(out)
	return out, nil
}
