// Package mirror maintains the local, integrity-verified mirror of library
// artifacts: endpoint resolution from the registry's service description,
// incremental candidate downloading, and the persistent state and manifest.
package mirror

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/mcu-pkgs/libmirror/client"
)

// downloadOperationID identifies the "fetch a library version's artifact"
// operation in the service description.
const downloadOperationID = "libraryVersionDownload"

// Historical spellings of the path template placeholders.
var placeholderSpellings = map[string][]string{
	"owner":   {"owner", "user", "author"},
	"library": {"library", "libname", "lib", "name"},
	"version": {"version", "ver", "tag", "version-or-latest", "versionOrLatest"},
}

// DownloadOp is the resolved artifact-download endpoint.
type DownloadOp struct {
	Method   string
	Template string // absolute URL with placeholders
}

type swaggerDoc struct {
	BasePath string                            `json:"basePath"`
	Paths    map[string]map[string]swaggerOper `json:"paths"`
}

type swaggerOper struct {
	OperationID string `json:"operationId"`
}

// ResolveDownloadOp fetches the service description document and locates the
// artifact-download operation. The description is tried at the bare base URL
// and then with a "swagger.json" suffix. A description that does not expose
// the operation is fatal to the run.
func ResolveDownloadOp(ctx context.Context, c *client.Client, swaggerURL string) (*DownloadOp, error) {
	base := strings.TrimSuffix(swaggerURL, "/")
	candidates := []string{base + "/", base + "/swagger.json"}

	var doc swaggerDoc
	var lastErr error
	found := false
	for _, candidate := range candidates {
		if err := c.GetJSON(ctx, candidate, &doc); err != nil {
			lastErr = err
			continue
		}
		if len(doc.Paths) > 0 {
			found = true
			break
		}
		lastErr = fmt.Errorf("service description at %s has no paths", candidate)
	}
	if !found {
		return nil, fmt.Errorf("fetching service description: %w", lastErr)
	}

	root, err := serviceRoot(swaggerURL)
	if err != nil {
		return nil, err
	}

	// Iterate paths in sorted order so resolution is deterministic even if
	// the document ever listed the operation twice.
	paths := make([]string, 0, len(doc.Paths))
	for p := range doc.Paths {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		for _, method := range sortedKeys(doc.Paths[p]) {
			if doc.Paths[p][method].OperationID == downloadOperationID {
				return &DownloadOp{
					Method:   strings.ToUpper(method),
					Template: root + doc.BasePath + p,
				}, nil
			}
		}
	}
	return nil, fmt.Errorf("service description does not expose operation %q", downloadOperationID)
}

// URL instantiates the operation's path template for one candidate,
// tolerating the historical placeholder spellings.
func (op *DownloadOp) URL(owner, library, version string) string {
	u := op.Template
	values := map[string]string{"owner": owner, "library": library, "version": version}
	for canonical, spellings := range placeholderSpellings {
		for _, spelling := range spellings {
			u = strings.ReplaceAll(u, "{"+spelling+"}", url.PathEscape(values[canonical]))
		}
	}
	return u
}

func serviceRoot(swaggerURL string) (string, error) {
	u, err := url.Parse(swaggerURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid service description URL %q", swaggerURL)
	}
	return u.Scheme + "://" + u.Host, nil
}

func sortedKeys(m map[string]swaggerOper) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
