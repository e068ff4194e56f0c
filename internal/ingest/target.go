package ingest

import (
	"fmt"
	"strings"

	"github.com/acsql/acsql/internal/discover"
)

// Mode selects which files a run considers.
type Mode string

const (
	ModeProposal Mode = "proposal"
	ModeRootname Mode = "rootname"
	ModeFilelist Mode = "filelist"
	ModeAll      Mode = "all"
	// ModeNew ingests rootnames missing from the store and files modified
	// since the previous run started.
	ModeNew Mode = "new"
)

// Target is what the caller asked a run to ingest.
type Target struct {
	Mode       Mode
	ProposalID string
	Rootname   string
	Rootnames  []string
	Filetypes  []string
}

// Validate checks that the fields required by Mode are set.
func (t Target) Validate() error {
	switch t.Mode {
	case ModeProposal:
		if t.ProposalID == "" {
			return fmt.Errorf("proposal target needs a proposal id")
		}
	case ModeRootname:
		if t.Rootname == "" {
			return fmt.Errorf("rootname target needs a rootname")
		}
	case ModeFilelist:
		if len(t.Rootnames) == 0 {
			return fmt.Errorf("filelist target has no rootnames")
		}
	case ModeAll, ModeNew:
	default:
		return fmt.Errorf("unknown target mode %q", t.Mode)
	}
	return nil
}

// String describes the target for logs and the run history.
func (t Target) String() string {
	var b strings.Builder
	b.WriteString(string(t.Mode))
	switch t.Mode {
	case ModeProposal:
		b.WriteString(":" + t.ProposalID)
	case ModeRootname:
		b.WriteString(":" + strings.ToLower(t.Rootname))
	case ModeFilelist:
		fmt.Fprintf(&b, ":%d rootnames", len(t.Rootnames))
	}
	if len(t.Filetypes) > 0 {
		b.WriteString(" [" + strings.Join(t.Filetypes, ",") + "]")
	}
	return b.String()
}

func (t Target) discoverTarget() discover.Target {
	dt := discover.Target{Filetypes: t.Filetypes}
	switch t.Mode {
	case ModeProposal:
		dt.ProposalID = t.ProposalID
	case ModeRootname:
		dt.Rootname = t.Rootname
	case ModeFilelist:
		dt.Rootnames = t.Rootnames
	}
	return dt
}
