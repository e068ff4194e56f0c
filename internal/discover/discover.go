// Package discover enumerates FITS files laid out as
// <root>/<proposal_id>/<rootname>/<rootname>_<filetype>.fits.
package discover

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/acsql/acsql/internal/models"
)

var fileNamePattern = regexp.MustCompile(`^([a-z0-9]+)_([a-z0-9]+)\.fits$`)

// Target narrows a discovery run. The zero value selects every file.
type Target struct {
	ProposalID string
	Rootname   string
	// Rootnames restricts the run to a list of rootnames, e.g. from a filelist.
	Rootnames []string
	Filetypes []string
}

func (t Target) rootnameSet() map[string]bool {
	if t.Rootname == "" && len(t.Rootnames) == 0 {
		return nil
	}
	set := make(map[string]bool, len(t.Rootnames)+1)
	if t.Rootname != "" {
		set[strings.ToLower(t.Rootname)] = true
	}
	for _, r := range t.Rootnames {
		if r = strings.ToLower(strings.TrimSpace(r)); r != "" {
			set[r] = true
		}
	}
	return set
}

func (t Target) filetypeSet() map[string]bool {
	set := make(map[string]bool)
	for _, ft := range t.Filetypes {
		if ft = strings.ToLower(strings.TrimSpace(ft)); ft != "" && ft != "all" {
			set[ft] = true
		}
	}
	if len(set) == 0 {
		return nil
	}
	return set
}

// Discoverer walks a filesystem root. It never writes.
type Discoverer struct {
	root string
	log  logrus.FieldLogger
}

// New creates a Discoverer for root.
func New(root string, logger logrus.FieldLogger) *Discoverer {
	return &Discoverer{root: root, log: logger}
}

// Discover returns every matching file ordered by proposal, rootname and
// filetype. A missing root is a *models.DiscoveryError; unreadable
// subdirectories are logged and skipped.
func (d *Discoverer) Discover(ctx context.Context, target Target) ([]models.DataFile, error) {
	info, err := os.Stat(d.root)
	if err != nil {
		return nil, &models.DiscoveryError{Root: d.root, Err: err}
	}
	if !info.IsDir() {
		return nil, &models.DiscoveryError{Root: d.root, Err: errors.New("not a directory")}
	}

	c := &collector{log: d.log, filetypes: target.filetypeSet(), seen: make(map[string]string)}

	d.log.Infof("Scanning for files in: %s", d.root)

	rootnames := target.rootnameSet()
	if rootnames != nil && target.ProposalID == "" {
		err = d.lookup(ctx, rootnames, c)
	} else {
		err = d.walk(ctx, target.ProposalID, rootnames, c)
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &models.DiscoveryError{Root: d.root, Err: err}
	}

	files := c.files
	sort.Slice(files, func(i, j int) bool {
		a, b := files[i], files[j]
		if a.ProposalID != b.ProposalID {
			return a.ProposalID < b.ProposalID
		}
		if a.Rootname != b.Rootname {
			return a.Rootname < b.Rootname
		}
		return a.Filetype < b.Filetype
	})

	d.log.Infof("Found %d files to process.", len(files))
	return files, nil
}

// lookup reads <root>/<rootname[:4]>/<rootname> for each rootname without
// walking the other proposal directories.
func (d *Discoverer) lookup(ctx context.Context, rootnames map[string]bool, c *collector) error {
	names := make([]string, 0, len(rootnames))
	for r := range rootnames {
		names = append(names, r)
	}
	sort.Strings(names)

	for _, rootname := range names {
		if err := ctx.Err(); err != nil {
			return err
		}
		if len(rootname) < 4 {
			d.log.Warnf("Rootname %q is too short to locate, skipping", rootname)
			continue
		}
		proposal := rootname[:4]
		dir := filepath.Join(d.root, proposal, rootname)
		entries, err := os.ReadDir(dir)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				d.log.Warnf("No directory for rootname %s at %s", rootname, dir)
			} else {
				d.log.WithError(err).Warnf("Cannot read %s, skipping", dir)
			}
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			c.add(proposal, rootname, filepath.Join(dir, entry.Name()), entry)
		}
	}
	return nil
}

func (d *Discoverer) walk(ctx context.Context, proposalID string, rootnames map[string]bool, c *collector) error {
	return filepath.WalkDir(d.root, func(path string, entry fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if path == d.root {
				return walkErr
			}
			d.log.WithError(walkErr).Warnf("Cannot read %s, skipping", path)
			if entry != nil && entry.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if path == d.root {
			return nil
		}

		rel, err := filepath.Rel(d.root, path)
		if err != nil {
			return err
		}
		parts := strings.Split(rel, string(filepath.Separator))
		depth := len(parts)

		if entry.IsDir() {
			switch {
			case depth == 1 && proposalID != "" && parts[0] != proposalID:
				return fs.SkipDir
			case depth == 2 && rootnames != nil && !rootnames[strings.ToLower(parts[1])]:
				return fs.SkipDir
			case depth > 2:
				return fs.SkipDir
			}
			return nil
		}

		if depth == 3 {
			c.add(parts[0], parts[1], path, entry)
		}
		return nil
	})
}

// collector accepts files named <rootname>_<filetype>.fits inside their
// rootname directory and drops duplicate identifiers.
type collector struct {
	log       logrus.FieldLogger
	filetypes map[string]bool
	seen      map[string]string
	files     []models.DataFile
}

func (c *collector) add(proposal, rootname, path string, entry fs.DirEntry) {
	match := fileNamePattern.FindStringSubmatch(entry.Name())
	if match == nil || match[1] != rootname {
		return
	}
	filetype := match[2]
	if !models.IsValidFiletype(filetype) || (c.filetypes != nil && !c.filetypes[filetype]) {
		return
	}

	info, err := entry.Info()
	if err != nil {
		c.log.WithError(err).Warnf("Cannot stat %s, skipping", path)
		return
	}

	file := models.DataFile{
		ProposalID: proposal,
		Rootname:   rootname,
		Filetype:   filetype,
		Path:       path,
		ModTime:    info.ModTime(),
		Size:       info.Size(),
	}
	if previous, dup := c.seen[file.Identifier()]; dup {
		c.log.Warnf("%s appears in both %s and %s, keeping the first", file.Identifier(), previous, path)
		return
	}
	c.seen[file.Identifier()] = path
	c.files = append(c.files, file)
}

// ReadFilelist reads one rootname per line, ignoring blanks and # comments.
func ReadFilelist(path string) ([]string, error) {
	//nolint:gosec // G304: filelist path is supplied by the operator
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading filelist %s", path)
	}

	var rootnames []string
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rootnames = append(rootnames, strings.ToLower(line))
	}
	return rootnames, nil
}
