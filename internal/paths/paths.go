// Package paths derives the proposal directories that exports and analysis
// results are written to.
package paths

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/nsls2-sst/ucal-export/internal/lookup"
	"github.com/nsls2-sst/ucal-export/internal/messages"
	"github.com/nsls2-sst/ucal-export/internal/serviceerrors"
	"github.com/nsls2-sst/ucal-export/pkg/api"
)

const (
	DefaultProposalRoot = "/nsls2/data/sst/proposals"
	processingDirName   = "ucal_processing"
	commissioningDir    = "commissioning"
)

// visitDateLayouts are tried in order when parsing start_datetime.
var visitDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Proposals resolves directories below a proposal root.
type Proposals struct {
	Root string
	// Now is used when a run has no start_datetime.
	Now func() time.Time
}

func NewProposals(root string) *Proposals {
	if root == "" {
		root = DefaultProposalRoot
	}
	return &Proposals{Root: root, Now: time.Now}
}

// ProposalPath is <root>/<cycle>/pass-<id>, or <root>/commissioning/pass-<id>
// for commissioning proposals. It fails when proposal id or cycle is absent.
func (p *Proposals) ProposalPath(run *api.Run) (string, error) {
	start := map[string]any(run.Start)
	proposal := lookup.Map(start, "proposal")
	proposalID, hasProposal := proposal["proposal_id"]
	cycle, hasCycle := start["cycle"]
	if !hasProposal || proposalID == nil || !hasCycle || cycle == nil {
		return "", serviceerrors.NewServiceError(messages.ProposalMetadataMissing, "ScanId", lookup.String(run.ScanID()))
	}
	dir := lookup.String(cycle)
	if lookup.ContainsFold(lookup.StringDefault(proposal, "type", ""), commissioningDir) {
		dir = commissioningDir
	}
	return filepath.Join(p.Root, dir, "pass-"+lookup.String(proposalID)), nil
}

// SaveDirectory is where the analysis step keeps its results for the run.
func (p *Proposals) SaveDirectory(run *api.Run) (string, error) {
	proposalPath, err := p.ProposalPath(run)
	if err != nil {
		return "", err
	}
	return filepath.Join(proposalPath, processingDirName), nil
}

// ExportPath is <proposal path>/<YYYYMMDD>_export, dated by start_datetime
// or today.
func (p *Proposals) ExportPath(run *api.Run) (string, error) {
	proposalPath, err := p.ProposalPath(run)
	if err != nil {
		return "", err
	}
	visit, err := p.visitDate(run)
	if err != nil {
		return "", err
	}
	return filepath.Join(proposalPath, visit.Format("20060102")+"_export"), nil
}

func (p *Proposals) visitDate(run *api.Run) (time.Time, error) {
	raw, ok := run.Start["start_datetime"].(string)
	if !ok || strings.TrimSpace(raw) == "" {
		return p.Now(), nil
	}
	for _, layout := range visitDateLayouts {
		if t, err := time.Parse(layout, strings.TrimSpace(raw)); err == nil {
			return t, nil
		}
	}
	return time.Time{}, serviceerrors.NewServiceError(messages.ExportDateInvalid, "Value", raw, "ScanId", lookup.String(run.ScanID()))
}
